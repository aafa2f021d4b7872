package authz

import "crm-auth-service/internal/model"

// Action is a role-gated administrative action inside a tenant.
type Action string

const (
	ActionUpdateTenant     Action = "tenant.update"
	ActionDeleteTenant     Action = "tenant.delete"
	ActionInviteMember     Action = "members.invite"
	ActionRemoveMember     Action = "members.remove"
	ActionChangeMemberRole Action = "members.change_role"
)

// Feature is a plan-gated product feature key. Keys match the Plan.Features
// and Tenant.FeatureOverrides maps.
type Feature string

const (
	FeatureCRM            Feature = "crm"
	FeatureWhatsApp       Feature = "whatsapp"
	FeatureAIAgents       Feature = "ai_agents"
	FeatureLeadExtraction Feature = "lead_extraction"
	FeatureUserManagement Feature = "user_management"
	FeatureReports        Feature = "reports"
)

// AllFeatures enumerates the known feature keys, in the order the advisory
// endpoint reports them.
var AllFeatures = []Feature{
	FeatureCRM,
	FeatureWhatsApp,
	FeatureAIAgents,
	FeatureLeadExtraction,
	FeatureUserManagement,
	FeatureReports,
}

// capabilityKey maps each action to the capability flag a plain member may
// hold to perform it. Actions absent from this map cannot be delegated:
// role changes and tenant deletion always require the role itself.
var capabilityKey = map[Action]string{
	ActionUpdateTenant: "tenant.update",
	ActionInviteMember: "members.invite",
	ActionRemoveMember: "members.remove",
}

// CanPerform is the single predicate deciding whether a membership may
// perform a role-gated action: owners and admins always may (owners only,
// for tenant deletion), members only with an explicit capability grant.
func CanPerform(m *model.Membership, action Action) bool {
	if m == nil {
		return false
	}
	switch m.Role {
	case model.RoleOwner:
		return true
	case model.RoleAdmin:
		return action != ActionDeleteTenant
	}
	key, ok := capabilityKey[action]
	if !ok {
		return false
	}
	return m.HasCapability(key)
}
