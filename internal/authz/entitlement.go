package authz

import (
	"errors"

	"crm-auth-service/internal/model"
)

// Entitlements resolves which product features a tenant may use. It never
// mutates anything. Resolution order, first match wins:
//
//  1. tenant feature override (can grant or revoke relative to the plan)
//  2. plan default, when a plan is attached
//  3. disabled (a tenant with no plan has no paid features)
type Entitlements struct {
	store Store
}

// NewEntitlements builds an entitlement resolver over the given store.
func NewEntitlements(store Store) *Entitlements {
	return &Entitlements{store: store}
}

// FeatureEnabled resolves a single feature key for a tenant.
func (e *Entitlements) FeatureEnabled(tenantID uint, feature Feature) (bool, error) {
	tenant, err := e.store.FindTenant(tenantID)
	if err != nil {
		return false, err
	}
	plan, err := e.planFor(tenant)
	if err != nil {
		return false, err
	}
	return resolveFeature(tenant, plan, feature), nil
}

// Features resolves the full feature map for a tenant. Exposed to the UI
// layer as advisory data only; server-side authorization always goes
// through the Gate.
func (e *Entitlements) Features(tenantID uint) (map[Feature]bool, error) {
	tenant, err := e.store.FindTenant(tenantID)
	if err != nil {
		return nil, err
	}
	plan, err := e.planFor(tenant)
	if err != nil {
		return nil, err
	}
	out := make(map[Feature]bool, len(AllFeatures))
	for _, f := range AllFeatures {
		out[f] = resolveFeature(tenant, plan, f)
	}
	return out, nil
}

func (e *Entitlements) planFor(tenant *model.Tenant) (*model.Plan, error) {
	if tenant.PlanID == nil {
		return nil, nil
	}
	plan, err := e.store.FindPlan(*tenant.PlanID)
	if err != nil {
		// A dangling plan reference behaves like no plan at all.
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return plan, nil
}

func resolveFeature(tenant *model.Tenant, plan *model.Plan, feature Feature) bool {
	if v, ok := tenant.OverrideFor(string(feature)); ok {
		return v
	}
	if plan != nil {
		return plan.DefaultFor(string(feature))
	}
	return false
}
