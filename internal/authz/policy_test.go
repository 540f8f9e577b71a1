package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

func TestCapabilityFor(t *testing.T) {
	require.Equal(t, OwnerOnly, CapabilityFor(SessionStart, model.RoleStudent))
	require.Equal(t, Deny, CapabilityFor(SessionStart, model.RoleFaculty))
	require.Equal(t, Deny, CapabilityFor(SessionStart, model.RoleAdmin))

	require.Equal(t, OwnerOnly, CapabilityFor(SessionRead, model.RoleStudent))
	require.Equal(t, Any, CapabilityFor(SessionRead, model.RoleFaculty))
	require.Equal(t, Any, CapabilityFor(SessionRead, model.RoleAdmin))

	require.Equal(t, Deny, CapabilityFor(Operation("session:unknown"), model.RoleAdmin))
}

func TestAllowed(t *testing.T) {
	// Students may only mutate their own sessions.
	require.True(t, Allowed(SessionSave, model.RoleStudent, true))
	require.False(t, Allowed(SessionSave, model.RoleStudent, false))

	// Staff may read any session but never mutate one.
	require.True(t, Allowed(SessionRead, model.RoleFaculty, false))
	require.True(t, Allowed(SessionRead, model.RoleAdmin, false))
	require.False(t, Allowed(SessionSubmit, model.RoleFaculty, true))
	require.False(t, Allowed(SessionSubmit, model.RoleAdmin, false))
}
