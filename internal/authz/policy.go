package authz

import "github.com/Arpan7125/procto-3.0/internal/model"

// Operation identifies a guarded exam-session action.
type Operation string

const (
	SessionStart  Operation = "session:start"
	SessionSave   Operation = "session:save"
	SessionSubmit Operation = "session:submit"
	SessionRead   Operation = "session:read"
)

// Capability expresses what a role may do for an operation.
type Capability int

const (
	// Deny refuses the operation outright.
	Deny Capability = iota
	// OwnerOnly permits the operation only on resources the caller owns.
	OwnerOnly
	// Any permits the operation on any resource.
	Any
)

// policy is the role capability table for session operations. Mutating
// operations are student-owner-only; reads extend to course staff.
var policy = map[Operation]map[model.Role]Capability{
	SessionStart: {
		model.RoleStudent: OwnerOnly,
	},
	SessionSave: {
		model.RoleStudent: OwnerOnly,
	},
	SessionSubmit: {
		model.RoleStudent: OwnerOnly,
	},
	SessionRead: {
		model.RoleStudent: OwnerOnly,
		model.RoleFaculty: Any,
		model.RoleAdmin:   Any,
	},
}

// CapabilityFor returns the capability the role holds for the operation.
// Unknown operations and unlisted roles resolve to Deny.
func CapabilityFor(op Operation, role model.Role) Capability {
	roles, ok := policy[op]
	if !ok {
		return Deny
	}
	return roles[role]
}

// Allowed reports whether the role may perform the operation, given
// whether the caller owns the target resource.
func Allowed(op Operation, role model.Role, isOwner bool) bool {
	switch CapabilityFor(op, role) {
	case Any:
		return true
	case OwnerOnly:
		return isOwner
	default:
		return false
	}
}
