package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/catchment/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "catchment version")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := testutils.WriteGrid(t, dir, "good.asc", testutils.Converging5x5())
	bad := testutils.WriteGrid(t, dir, "cycle.asc", [][]int{{1, 4}, {64, 16}})

	out, err := execute(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "25 cells, 1 outlets")

	out, err = execute(t, "validate", good, bad)
	assert.EqualError(t, err, "1 of 2 grids are invalid")
	assert.Contains(t, out, "✗ "+bad)
}

func TestDelineateCommand(t *testing.T) {
	dir := t.TempDir()
	flow := testutils.WriteGrid(t, dir, "flwdir.asc", testutils.Chain10())

	out, err := execute(t, "delineate", "--flow", flow, "--output", "json", `{"basin": [4.5, 0.5]}`)
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "basin"`)
}
