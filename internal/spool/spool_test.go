package spool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteListReadRoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	name, err := s.WriteNew(Pending, []byte("payload-1"))
	require.NoError(t, err)

	names, err := s.List(Pending)
	require.NoError(t, err)
	require.Equal(t, []string{name}, names)

	data, err := s.Read(Pending, name)
	require.NoError(t, err)
	require.Equal(t, []byte("payload-1"), data)
}

func TestOldestFirstOrdering(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	var names []string
	for i := 0; i < 3; i++ {
		name, err := s.WriteNew(Pending, []byte("x"))
		require.NoError(t, err)
		names = append(names, name)
	}

	listed, err := s.List(Pending)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i := 1; i < len(listed); i++ {
		require.LessOrEqual(t, listed[i-1], listed[i], "list must be oldest-first")
	}
}

func TestMoveNeverDuplicatesFilename(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	name, err := s.WriteNew(Pending, []byte("payload"))
	require.NoError(t, err)

	require.NoError(t, s.Move(Pending, SentBuffer, name))

	pending, err := s.List(Pending)
	require.NoError(t, err)
	require.Empty(t, pending)

	buffered, err := s.List(SentBuffer)
	require.NoError(t, err)
	require.Equal(t, []string{name}, buffered)
}

func TestTakeIncomingThenCommit(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	name, err := s.WriteNew(Incoming, []byte("inbound"))
	require.NoError(t, err)

	data, commit, err := s.TakeIncoming(name)
	require.NoError(t, err)
	require.Equal(t, []byte("inbound"), data)

	// While in-flight, it must not reappear in List.
	listed, err := s.List(Incoming)
	require.NoError(t, err)
	require.Empty(t, listed)

	require.NoError(t, commit())

	listed, err = s.List(Incoming)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestRecoverIncomingResurfacesAfterCrash(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	name, err := s.WriteNew(Incoming, []byte("inbound"))
	require.NoError(t, err)

	_, _, err = s.TakeIncoming(name)
	require.NoError(t, err)

	// Simulate a crash: no commit() call. A fresh Spool over the same
	// root, after RecoverIncoming, must see the file again.
	s2, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s2.RecoverIncoming())

	listed, err := s2.List(Incoming)
	require.NoError(t, err)
	require.Equal(t, []string{name}, listed)
}

func TestPurgeClearsAllThreeStages(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.WriteNew(Pending, []byte("a"))
	require.NoError(t, err)
	_, err = s.WriteNew(SentBuffer, []byte("b"))
	require.NoError(t, err)
	_, err = s.WriteNew(Incoming, []byte("c"))
	require.NoError(t, err)

	require.NoError(t, s.Purge())

	for _, stage := range []Stage{Pending, SentBuffer, Incoming} {
		listed, err := s.List(stage)
		require.NoError(t, err)
		require.Empty(t, listed)
	}
}

func TestFilenameNeverInTwoDirectoriesAtOnce(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	require.NoError(t, err)

	name, err := s.WriteNew(Pending, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Move(Pending, SentBuffer, name))

	_, errPending := os.Stat(filepath.Join(root, pendingDirName, name))
	_, errBuffer := os.Stat(filepath.Join(root, sentBufferDirName, name))
	require.True(t, os.IsNotExist(errPending))
	require.NoError(t, errBuffer)
}
