package authz

import (
	"context"
	"errors"
)

// Action names a privileged operation of the sync engine.
type Action string

const (
	// ActionUnsync removes an enrollment from a physical terminal.
	ActionUnsync Action = "device_sync:unsync"
)

// ErrForbidden is returned when the principal's role does not allow an action.
var ErrForbidden = errors.New("operator role is not allowed to perform this action")

// Principal identifies the caller of a gated operation.
type Principal struct {
	Subject string
	Role    string
}

// Authorizer gates privileged operations. The real decision lives in the
// authorization domain; this interface is all the sync engine depends on.
type Authorizer interface {
	Authorize(ctx context.Context, p Principal, action Action) error
}

// RoleAuthorizer is a static role-list authorizer.
type RoleAuthorizer struct {
	allowed map[Action]map[string]bool
}

// NewRoleAuthorizer builds an authorizer from an action→roles table.
func NewRoleAuthorizer(rules map[Action][]string) *RoleAuthorizer {
	allowed := make(map[Action]map[string]bool, len(rules))
	for action, roles := range rules {
		set := make(map[string]bool, len(roles))
		for _, role := range roles {
			set[role] = true
		}
		allowed[action] = set
	}
	return &RoleAuthorizer{allowed: allowed}
}

// NewDefaultAuthorizer allows Unsync for the administrator and device-operator roles.
func NewDefaultAuthorizer() *RoleAuthorizer {
	return NewRoleAuthorizer(map[Action][]string{
		ActionUnsync: {"admin", "device-operator"},
	})
}

// Authorize checks the principal's role against the action's role list.
func (a *RoleAuthorizer) Authorize(_ context.Context, p Principal, action Action) error {
	if a.allowed[action][p.Role] {
		return nil
	}
	return ErrForbidden
}
