package authz

import (
	"sync"
	"time"

	"crm-auth-service/internal/model"
)

// MemStore is an in-memory Store used by tests and local development. It
// mirrors the gorm implementation's semantics, including tenant-scoped
// membership lookups presenting cross-tenant ids as not found.
type MemStore struct {
	mu          sync.Mutex
	users       map[uint]*model.User
	tenants     map[uint]*model.Tenant
	memberships map[uint]*model.Membership
	plans       map[uint]*model.Plan
	nextID      uint
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		users:       make(map[uint]*model.User),
		tenants:     make(map[uint]*model.Tenant),
		memberships: make(map[uint]*model.Membership),
		plans:       make(map[uint]*model.Plan),
	}
}

func (s *MemStore) id() uint {
	s.nextID++
	return s.nextID
}

// AddUser inserts a user, assigning an id when absent.
func (s *MemStore) AddUser(u *model.User) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.id()
	}
	s.users[u.ID] = u
	return u
}

// AddTenant inserts a tenant, assigning an id when absent.
func (s *MemStore) AddTenant(t *model.Tenant) *model.Tenant {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	s.tenants[t.ID] = t
	return t
}

// AddPlan inserts a plan, assigning an id when absent.
func (s *MemStore) AddPlan(p *model.Plan) *model.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.id()
	}
	s.plans[p.ID] = p
	return p
}

// AddMembership inserts a membership, assigning an id when absent.
func (s *MemStore) AddMembership(m *model.Membership) *model.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.id()
	}
	s.memberships[m.ID] = m
	return m
}

func (s *MemStore) FindUserByEmail(email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) FindUserByID(id uint) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (s *MemStore) CreateUser(u *model.User) error {
	s.AddUser(u)
	return nil
}

func (s *MemStore) FindMembership(tenantID, userID uint) (*model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.memberships {
		if m.TenantID == tenantID && m.UserID == userID {
			return m, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) FindMembershipByID(tenantID, membershipID uint) (*model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[membershipID]
	if !ok || m.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *MemStore) ListMembershipsForUser(userID uint) ([]model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Membership
	for _, m := range s.memberships {
		if m.UserID == userID {
			copied := *m
			if t, ok := s.tenants[m.TenantID]; ok {
				copied.Tenant = *t
			}
			out = append(out, copied)
		}
	}
	return out, nil
}

func (s *MemStore) ListMembershipsForTenant(tenantID uint) ([]model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Membership
	for _, m := range s.memberships {
		if m.TenantID == tenantID {
			copied := *m
			if u, ok := s.users[m.UserID]; ok {
				copied.User = *u
			}
			out = append(out, copied)
		}
	}
	return out, nil
}

func (s *MemStore) FindTenant(tenantID uint) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tenants[tenantID]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func (s *MemStore) FindTenantBySlug(slug string) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tenants {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) CreateTenantWithOwner(t *model.Tenant, ownerID uint) error {
	s.AddTenant(t)
	s.AddMembership(&model.Membership{
		TenantID: t.ID,
		UserID:   ownerID,
		Role:     model.RoleOwner,
		JoinedAt: time.Now(),
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[ownerID]; ok {
		id := t.ID
		u.ActiveTenantID = &id
	}
	return nil
}

func (s *MemStore) SaveTenant(t *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
	return nil
}

func (s *MemStore) DeleteTenant(t *model.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range s.memberships {
		if m.TenantID == t.ID {
			delete(s.memberships, id)
		}
	}
	for _, u := range s.users {
		if u.ActiveTenantID != nil && *u.ActiveTenantID == t.ID {
			u.ActiveTenantID = nil
		}
	}
	delete(s.tenants, t.ID)
	return nil
}

func (s *MemStore) FindPlan(planID uint) (*model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.plans[planID]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

func (s *MemStore) FindPlanByName(name string) (*model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) CountOwners(tenantID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, m := range s.memberships {
		if m.TenantID == tenantID && m.Role == model.RoleOwner {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) CreateMembership(m *model.Membership) error {
	s.AddMembership(m)
	return nil
}

func (s *MemStore) SaveMembership(m *model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberships[m.ID] = m
	return nil
}

func (s *MemStore) DeleteMembership(m *model.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memberships, m.ID)
	return nil
}

func (s *MemStore) UpdateUserActiveTenant(userID uint, tenantID *uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.ActiveTenantID = tenantID
	}
	return nil
}
