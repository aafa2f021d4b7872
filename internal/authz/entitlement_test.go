package authz_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"gorm.io/datatypes"

	"crm-auth-service/internal/authz"
	"crm-auth-service/internal/model"
)

func TestFeatureEnabledPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		plan      datatypes.JSONMap
		overrides datatypes.JSONMap
		feature   authz.Feature
		expected  bool
	}{
		{
			name:     "plan default grants",
			plan:     datatypes.JSONMap{"crm": true},
			feature:  authz.FeatureCRM,
			expected: true,
		},
		{
			name:     "plan default denies",
			plan:     datatypes.JSONMap{"crm": true, "ai_agents": false},
			feature:  authz.FeatureAIAgents,
			expected: false,
		},
		{
			name:      "override revokes plan grant",
			plan:      datatypes.JSONMap{"crm": true},
			overrides: datatypes.JSONMap{"crm": false},
			feature:   authz.FeatureCRM,
			expected:  false,
		},
		{
			name:      "override grants over plan denial",
			plan:      datatypes.JSONMap{"ai_agents": false},
			overrides: datatypes.JSONMap{"ai_agents": true},
			feature:   authz.FeatureAIAgents,
			expected:  true,
		},
		{
			name:     "feature absent from plan",
			plan:     datatypes.JSONMap{"crm": true},
			feature:  authz.FeatureWhatsApp,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)

			store := authz.NewMemStore()
			plan := store.AddPlan(&model.Plan{Name: model.PlanGrowth, Features: tt.plan})
			tenant := store.AddTenant(&model.Tenant{
				Name:             "Acme",
				Slug:             "acme",
				PlanID:           &plan.ID,
				FeatureOverrides: tt.overrides,
			})

			enabled, err := authz.NewEntitlements(store).FeatureEnabled(tenant.ID, tt.feature)
			c.Assert(err, qt.IsNil)
			c.Assert(enabled, qt.Equals, tt.expected)
		})
	}
}

func TestFeatureEnabledNoPlan(t *testing.T) {
	c := qt.New(t)

	store := authz.NewMemStore()
	tenant := store.AddTenant(&model.Tenant{Name: "Acme", Slug: "acme"})
	ents := authz.NewEntitlements(store)

	// Closed by default: no plan means no paid features.
	for _, f := range authz.AllFeatures {
		enabled, err := ents.FeatureEnabled(tenant.ID, f)
		c.Assert(err, qt.IsNil)
		c.Assert(enabled, qt.IsFalse, qt.Commentf("feature %s", f))
	}
}

func TestFeatureEnabledNoPlanButOverride(t *testing.T) {
	c := qt.New(t)

	store := authz.NewMemStore()
	tenant := store.AddTenant(&model.Tenant{
		Name:             "Acme",
		Slug:             "acme",
		FeatureOverrides: datatypes.JSONMap{"crm": true},
	})

	enabled, err := authz.NewEntitlements(store).FeatureEnabled(tenant.ID, authz.FeatureCRM)
	c.Assert(err, qt.IsNil)
	c.Assert(enabled, qt.IsTrue)
}

func TestFeatureEnabledOverrideRemoval(t *testing.T) {
	c := qt.New(t)

	store := authz.NewMemStore()
	plan := store.AddPlan(&model.Plan{
		Name:     model.PlanGrowth,
		Features: datatypes.JSONMap{"whatsapp": true},
	})
	tenant := store.AddTenant(&model.Tenant{
		Name:             "Acme",
		Slug:             "acme",
		PlanID:           &plan.ID,
		FeatureOverrides: datatypes.JSONMap{"whatsapp": false},
	})
	ents := authz.NewEntitlements(store)

	enabled, err := ents.FeatureEnabled(tenant.ID, authz.FeatureWhatsApp)
	c.Assert(err, qt.IsNil)
	c.Assert(enabled, qt.IsFalse)

	// Removing the override falls back to the plan default.
	tenant.FeatureOverrides = nil
	enabled, err = ents.FeatureEnabled(tenant.ID, authz.FeatureWhatsApp)
	c.Assert(err, qt.IsNil)
	c.Assert(enabled, qt.IsTrue)
}

func TestFeaturesMap(t *testing.T) {
	c := qt.New(t)

	store := authz.NewMemStore()
	plan := store.AddPlan(&model.Plan{
		Name:     model.PlanStarter,
		Features: datatypes.JSONMap{"crm": true, "reports": false},
	})
	tenant := store.AddTenant(&model.Tenant{
		Name:             "Acme",
		Slug:             "acme",
		PlanID:           &plan.ID,
		FeatureOverrides: datatypes.JSONMap{"reports": true},
	})

	features, err := authz.NewEntitlements(store).Features(tenant.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(features[authz.FeatureCRM], qt.IsTrue)
	c.Assert(features[authz.FeatureReports], qt.IsTrue)
	c.Assert(features[authz.FeatureAIAgents], qt.IsFalse)
	c.Assert(features, qt.HasLen, len(authz.AllFeatures))
}

func TestFeatureEnabledDanglingPlan(t *testing.T) {
	c := qt.New(t)

	store := authz.NewMemStore()
	missing := uint(999)
	tenant := store.AddTenant(&model.Tenant{Name: "Acme", Slug: "acme", PlanID: &missing})

	// A dangling plan reference behaves like no plan.
	enabled, err := authz.NewEntitlements(store).FeatureEnabled(tenant.ID, authz.FeatureCRM)
	c.Assert(err, qt.IsNil)
	c.Assert(enabled, qt.IsFalse)
}
