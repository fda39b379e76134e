package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sao-erp/sao-erp/internal/app"
	_ "github.com/sao-erp/sao-erp/testing"
)

func TestMainReturnsInTestMode(t *testing.T) {
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}
