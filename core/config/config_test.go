package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsValid(t *testing.T) {
	args, err := ParseArgs([]string{"directory.local", "9000", "0"})
	require.NoError(t, err)
	assert.Equal(t, "directory.local", args.DirectoryHost)
	assert.Equal(t, 9000, args.DirectoryPort)
	assert.Equal(t, 0, args.NodePort)
	assert.Empty(t, args.DataFile)
}

func TestParseArgsWithDataFile(t *testing.T) {
	args, err := ParseArgs([]string{"directory.local", "9000", "8080", "seed.bin"})
	require.NoError(t, err)
	assert.Equal(t, "seed.bin", args.DataFile)
}

func TestParseArgsRejectsTooFewArgs(t *testing.T) {
	_, err := ParseArgs([]string{"directory.local", "9000"})
	assert.Error(t, err)
}

func TestParseArgsRejectsNonPositiveDirectoryPort(t *testing.T) {
	_, err := ParseArgs([]string{"directory.local", "0", "8080"})
	assert.Error(t, err)
}

func TestParseArgsRejectsOutOfRangePorts(t *testing.T) {
	_, err := ParseArgs([]string{"directory.local", "70000", "8080"})
	assert.Error(t, err)

	_, err = ParseArgs([]string{"directory.local", "9000", "-1"})
	assert.Error(t, err)
}

func TestLoadTunablesDefaults(t *testing.T) {
	tunables, err := LoadTunables()
	require.NoError(t, err)
	assert.Equal(t, 2, tunables.ScannerCount)
}

func TestLoadTunablesOverride(t *testing.T) {
	t.Setenv("PARITY_SCANNER_COUNT", "5")
	tunables, err := LoadTunables()
	require.NoError(t, err)
	assert.Equal(t, 5, tunables.ScannerCount)
}
