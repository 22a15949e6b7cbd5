package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallerCapabilities(t *testing.T) {
	ceo := NewCaller("7", "Nadia", CapWriteOff, CapCreditBlock, " ")
	require.True(t, ceo.Has(CapWriteOff))
	require.True(t, ceo.Has(CapCreditBlock))
	require.False(t, ceo.Has(CapReceivablesView))
	require.Len(t, ceo.Capabilities(), 2)

	agent := NewCaller("8", "", CapReceivablesView)
	require.False(t, agent.Has(CapWriteOff))
	require.Equal(t, "8", agent.DisplayName())
}

func TestSystemCallerDisplayName(t *testing.T) {
	sys := SystemCaller()
	require.True(t, sys.IsSystem())
	require.Equal(t, "system", sys.DisplayName())
	require.False(t, sys.Has(CapWriteOff))
}

func TestCallerContextRoundTrip(t *testing.T) {
	_, ok := CallerFromContext(context.Background())
	require.False(t, ok)

	ctx := ContextWithCaller(context.Background(), NewCaller("1", "Omar"))
	caller, ok := CallerFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "Omar", caller.DisplayName())
}

func TestStoreErrorWrapping(t *testing.T) {
	require.NoError(t, StoreError("op", nil))

	err := StoreError("list receivables", errors.New("conn reset"))
	require.ErrorIs(t, err, ErrStore)
	require.Contains(t, err.Error(), "conn reset")

	require.Equal(t, ErrNotFound, StoreError("get", ErrNotFound))
	require.Equal(t, "the receivables store is unavailable, please retry", UserSafeMessage(err))
}

func TestUserSafeMessagePassesDomainErrors(t *testing.T) {
	err := Preconditionf("receivable %d is already paid", 4)
	require.ErrorIs(t, err, ErrPreconditionFailed)
	require.Equal(t, "precondition failed: receivable 4 is already paid", UserSafeMessage(err))
	require.Equal(t, "unexpected error", UserSafeMessage(errors.New("boom")))
}
