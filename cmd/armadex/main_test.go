package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swapStd points *std at a temp file for the duration of the test.
func swapStd(t *testing.T, std **os.File) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "std")
	require.NoError(t, err)
	orig := *std
	*std = f
	t.Cleanup(func() {
		*std = orig
		f.Close()
	})
	return f
}

func TestLogOutputKeepsStdoutClean(t *testing.T) {
	stdout := swapStd(t, &os.Stdout)
	stderr := swapStd(t, &os.Stderr)
	path := filepath.Join(t.TempDir(), "armadex.log")

	out, closeFile, err := openLogOutput(path)
	require.NoError(t, err)
	_, err = fmt.Fprintln(out, "level=info msg=started")
	require.NoError(t, err)
	closeFile()

	logged, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "level=info msg=started\n", string(logged))

	console, err := os.ReadFile(stderr.Name())
	require.NoError(t, err)
	assert.Equal(t, "level=info msg=started\n", string(console))

	tables, err := os.ReadFile(stdout.Name())
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestLogOutputBadPath(t *testing.T) {
	_, _, err := openLogOutput(filepath.Join(t.TempDir(), "missing", "armadex.log"))
	assert.Error(t, err)
}
