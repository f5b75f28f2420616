package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGate_Authorize(t *testing.T) {
	g := NewGate("submit-token", "approve-token", "")

	require.Equal(t, RoleSubmitter, g.Authorize("Bearer submit-token"))
	require.Equal(t, RoleApprover, g.Authorize("Bearer approve-token"))
	require.Equal(t, RoleAnonymous, g.Authorize("Bearer wrong-token"))
	require.Equal(t, RoleAnonymous, g.Authorize(""))
	require.Equal(t, RoleAnonymous, g.Authorize("not-bearer submit-token"))
}

func TestGate_LegacyTokenGrantsBothLanes(t *testing.T) {
	g := NewGate("", "", "legacy-token")
	require.Equal(t, RoleApprover, g.Authorize("Bearer legacy-token"))
}

func TestCanSubmitCanApprove(t *testing.T) {
	require.True(t, CanSubmit(RoleSubmitter))
	require.True(t, CanSubmit(RoleApprover))
	require.False(t, CanSubmit(RoleAnonymous))

	require.True(t, CanApprove(RoleApprover))
	require.False(t, CanApprove(RoleSubmitter))
	require.False(t, CanApprove(RoleAnonymous))
}
