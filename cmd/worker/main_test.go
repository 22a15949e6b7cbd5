package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/betonops/receivables/internal/app"
	_ "github.com/betonops/receivables/internal/testing/guard"
)

func TestWorkerSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}
