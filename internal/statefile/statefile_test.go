package statefile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Timestamp int64  `json:"timestamp"`
	Note      string `json:"note"`
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node_status.json")

	want := sample{Timestamp: 1700000000, Note: "hello"}
	require.NoError(t, WriteJSON(path, want))

	var got sample
	require.NoError(t, ReadJSON(path, &got))
	require.Equal(t, want, got)
}

func TestReadMissingFileIsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	var got sample
	err := ReadJSON(path, &got)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestOverwriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peer_discovery.json")

	require.NoError(t, WriteJSON(path, sample{Timestamp: 1}))
	require.NoError(t, WriteJSON(path, sample{Timestamp: 2}))

	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the final file should remain, no leftover .tmp")
}
