package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ssargent/fxtree/pkg/fxtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runIndexCmd(t *testing.T, args ...string) {
	t.Helper()
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
}

func TestIndexCommandsRoundTrip(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "freyja_index_cmd_test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "index.fxt")

	runIndexCmd(t, "index", "insert", "--file", path, "alice", "7")
	runIndexCmd(t, "index", "search", "--file", path, "alice")

	tree, err := fxtree.Open(path, false)
	require.NoError(t, err)
	defer tree.Close()

	status, value := tree.Search(fxtree.NewKey("alice"))
	assert.Equal(t, 0, status)
	assert.Equal(t, int32(7), value)
}

func TestIndexCommandRegistered(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Name() == "index" {
			found = true
		}
	}
	assert.True(t, found, "index command should be registered on rootCmd")
}
