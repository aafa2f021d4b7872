package authz

import "errors"

// Terminal, caller-visible outcomes of the authorization chain. None of
// these are retried; handlers map them to stable machine codes.
//
// ErrInvalidCredentials and ErrInvalidToken deliberately do not say which
// sub-check failed, to avoid account/token enumeration.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNoActiveTenant     = errors.New("no active tenant selected")
	ErrNotATenantMember   = errors.New("not a member of the tenant")
	ErrForbidden          = errors.New("insufficient role or capability")
	ErrFeatureDisabled    = errors.New("feature not enabled for tenant")
	ErrLastOwner          = errors.New("tenant must keep at least one owner")
	ErrAlreadyMember      = errors.New("user is already a member of the tenant")
	ErrUserNotFound       = errors.New("user not found")
	ErrSlugConflict       = errors.New("tenant slug already in use")
)
