// Package authz centralizes role and tenant access decisions so handlers and
// services consult a single policy instead of scattering conditionals.
package authz

import (
	"errors"
	"fmt"
)

// Role enumerates the caller roles forwarded by the auth gateway.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCustomer Role = "customer"
)

// Action identifies an operation gated by the policy.
type Action string

const (
	ActionOrderCreate       Action = "order:create"
	ActionOrderRead         Action = "order:read"
	ActionOrderList         Action = "order:list"
	ActionOrderUpdateStatus Action = "order:update-status"
)

// ErrForbidden is returned for any denied decision.
var ErrForbidden = errors.New("forbidden")

// Decide returns nil when the caller may perform the action on a resource
// belonging to resourceTenant. Managers are confined to their own tenant;
// customers may only create and read (ownership of reads is checked by the
// caller, which knows the customer id on the resource).
func Decide(role Role, callerTenant string, action Action, resourceTenant string) error {
	switch role {
	case RoleAdmin:
		return nil
	case RoleManager:
		switch action {
		case ActionOrderRead, ActionOrderList, ActionOrderUpdateStatus:
			if resourceTenant != "" && callerTenant != resourceTenant {
				return fmt.Errorf("%w: tenant %q may not act on tenant %q", ErrForbidden, callerTenant, resourceTenant)
			}
			return nil
		}
		return fmt.Errorf("%w: managers may not %s", ErrForbidden, action)
	case RoleCustomer:
		switch action {
		case ActionOrderCreate, ActionOrderRead:
			return nil
		}
		return fmt.Errorf("%w: customers may not %s", ErrForbidden, action)
	default:
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, role)
	}
}
