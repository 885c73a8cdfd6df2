// Package access decides whether an actor may see a tenant's resources.
// Every tenant-scoped operation (documents, conversations, notifications,
// user management) must go through the same predicate; no endpoint gets
// its own looser rule.
package access

import "support-chat-service/internal/model"

// GrantChecker reports whether a manager holds an explicit access grant
// for a tenant other than their home tenant.
type GrantChecker interface {
	HasGrant(userID, tenantID uint) (bool, error)
}

// Resolver evaluates tenant access for an actor.
type Resolver struct {
	grants GrantChecker
}

// NewResolver creates a Resolver backed by the given grant store.
func NewResolver(grants GrantChecker) *Resolver {
	return &Resolver{grants: grants}
}

// CanAccess reports whether the actor may view or act on the target
// tenant's resources:
//   - ADMIN always may.
//   - Anyone may within their home tenant.
//   - MANAGER may iff a ManagerTenantAccess grant exists.
//   - SUPPORT_AGENT never may outside their home tenant.
func (r *Resolver) CanAccess(actor *model.User, targetTenantID uint) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.Role == model.RoleAdmin {
		return true, nil
	}
	if actor.TenantID == targetTenantID {
		return true, nil
	}
	if actor.Role == model.RoleManager {
		return r.grants.HasGrant(actor.ID, targetTenantID)
	}
	return false, nil
}
