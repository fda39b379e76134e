package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type lightState string

func TestTransitionsCanTransition(t *testing.T) {
	table := Transitions[lightState]{
		"red":   {"green"},
		"green": {"amber"},
		"amber": {"red"},
	}
	require.True(t, table.CanTransition("red", "green"))
	require.False(t, table.CanTransition("red", "amber"))
	require.False(t, table.CanTransition("blue", "red"))

	targets := table.Targets("green")
	require.Equal(t, []lightState{"amber"}, targets)
	targets[0] = "red"
	require.True(t, table.CanTransition("green", "amber"))
}

func TestTenantContextRoundTrip(t *testing.T) {
	ctx := ContextWithTenant(t.Context(), 42)
	id, ok := TenantFromContext(ctx)
	require.True(t, ok)
	require.EqualValues(t, 42, id)

	_, ok = TenantFromContext(t.Context())
	require.False(t, ok)
	require.Zero(t, ActorFromContext(t.Context()))
	require.EqualValues(t, 7, ActorFromContext(ContextWithActor(t.Context(), 7)))
}
