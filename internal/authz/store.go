package authz

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"crm-auth-service/internal/model"
)

// ErrNotFound is returned by Store lookups when no row matches. The gorm
// implementation maps gorm.ErrRecordNotFound onto it so the services never
// import gorm directly.
var ErrNotFound = errors.New("record not found")

// Store is the persistence collaborator for the authorization subsystem.
// All methods are simple keyed lookups or single-row writes; the services
// in this package hold no state of their own.
type Store interface {
	FindUserByEmail(email string) (*model.User, error)
	FindUserByID(id uint) (*model.User, error)
	CreateUser(u *model.User) error
	FindMembership(tenantID, userID uint) (*model.Membership, error)
	FindMembershipByID(tenantID, membershipID uint) (*model.Membership, error)
	ListMembershipsForUser(userID uint) ([]model.Membership, error)
	ListMembershipsForTenant(tenantID uint) ([]model.Membership, error)
	FindTenant(tenantID uint) (*model.Tenant, error)
	FindTenantBySlug(slug string) (*model.Tenant, error)
	CreateTenantWithOwner(t *model.Tenant, ownerID uint) error
	SaveTenant(t *model.Tenant) error
	DeleteTenant(t *model.Tenant) error
	FindPlan(planID uint) (*model.Plan, error)
	FindPlanByName(name string) (*model.Plan, error)
	CountOwners(tenantID uint) (int64, error)
	CreateMembership(m *model.Membership) error
	SaveMembership(m *model.Membership) error
	DeleteMembership(m *model.Membership) error
	UpdateUserActiveTenant(userID uint, tenantID *uint) error
}

// GormStore implements Store on top of the shared gorm connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm connection in the Store interface.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (s *GormStore) FindUserByID(id uint) (*model.User, error) {
	var user model.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(u *model.User) error {
	return s.db.Create(u).Error
}

func (s *GormStore) FindMembership(tenantID, userID uint) (*model.Membership, error) {
	var m model.Membership
	err := s.db.Where("tenant_id = ? AND user_id = ?", tenantID, userID).First(&m).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &m, nil
}

func (s *GormStore) FindMembershipByID(tenantID, membershipID uint) (*model.Membership, error) {
	var m model.Membership
	// Scoped by tenant so a membership id from another tenant presents as
	// not found, never as found-but-forbidden.
	err := s.db.Where("tenant_id = ? AND id = ?", tenantID, membershipID).First(&m).Error
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &m, nil
}

func (s *GormStore) ListMembershipsForUser(userID uint) ([]model.Membership, error) {
	var ms []model.Membership
	err := s.db.Preload("Tenant").Where("user_id = ?", userID).Find(&ms).Error
	return ms, err
}

func (s *GormStore) ListMembershipsForTenant(tenantID uint) ([]model.Membership, error) {
	var ms []model.Membership
	err := s.db.Preload("User").Where("tenant_id = ?", tenantID).Find(&ms).Error
	return ms, err
}

func (s *GormStore) FindTenant(tenantID uint) (*model.Tenant, error) {
	var t model.Tenant
	if err := s.db.First(&t, tenantID).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &t, nil
}

func (s *GormStore) FindTenantBySlug(slug string) (*model.Tenant, error) {
	var t model.Tenant
	if err := s.db.Where("slug = ?", slug).First(&t).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &t, nil
}

// CreateTenantWithOwner creates the tenant, its first owner membership and
// points the creator's active tenant at it, in one transaction.
func (s *GormStore) CreateTenantWithOwner(t *model.Tenant, ownerID uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		m := model.Membership{
			TenantID: t.ID,
			UserID:   ownerID,
			Role:     model.RoleOwner,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).Where("id = ?", ownerID).
			Update("active_tenant_id", t.ID).Error
	})
}

func (s *GormStore) SaveTenant(t *model.Tenant) error {
	return s.db.Save(t).Error
}

// DeleteTenant soft-deletes the tenant and its memberships and clears the
// active-tenant pointer of any user still pointing at it.
func (s *GormStore) DeleteTenant(t *model.Tenant) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", t.ID).Delete(&model.Membership{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("active_tenant_id = ?", t.ID).
			Update("active_tenant_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(t).Error
	})
}

func (s *GormStore) FindPlan(planID uint) (*model.Plan, error) {
	var p model.Plan
	if err := s.db.First(&p, planID).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &p, nil
}

func (s *GormStore) FindPlanByName(name string) (*model.Plan, error) {
	var p model.Plan
	if err := s.db.Where("name = ?", name).First(&p).Error; err != nil {
		return nil, mapNotFound(err)
	}
	return &p, nil
}

func (s *GormStore) CountOwners(tenantID uint) (int64, error) {
	var count int64
	err := s.db.Model(&model.Membership{}).
		Where("tenant_id = ? AND role = ?", tenantID, model.RoleOwner).
		Count(&count).Error
	return count, err
}

func (s *GormStore) CreateMembership(m *model.Membership) error {
	return s.db.Create(m).Error
}

func (s *GormStore) SaveMembership(m *model.Membership) error {
	return s.db.Save(m).Error
}

func (s *GormStore) DeleteMembership(m *model.Membership) error {
	return s.db.Delete(m).Error
}

func (s *GormStore) UpdateUserActiveTenant(userID uint, tenantID *uint) error {
	return s.db.Model(&model.User{}).Where("id = ?", userID).
		Update("active_tenant_id", tenantID).Error
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
