// Package spool implements spec.md §3 SpoolFile and §4.5's "disk as
// queue" discipline: three staged directories (pending, sent_buffer,
// incoming) with atomic moves between them, the only durability and
// ordering mechanism in the system.
//
// Grounded on
// _examples/original_source/.../new_implementation/file_manager.py's
// FileManager: create_directories, save_incoming_file (timestamped
// filename), move_to_processing (os.rename), get_pending_files(sort).
// google/uuid, one of the teacher's declared-but-previously-unused
// dependencies, supplies the collision-resistant suffix the Python
// original leaves to chance (it keys solely on a second-resolution
// timestamp).
package spool

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	pendingDirName    = "pending"
	sentBufferDirName = "sent_buffer"
	incomingDirName   = "incoming"

	scratchPrefix = ".processing-"
	fileExt       = ".zst"
)

// Stage names one of the three spool directories.
type Stage int

const (
	Pending Stage = iota
	SentBuffer
	Incoming
)

// Spool is the shared on-disk queue between PB and ROS.
type Spool struct {
	root string
}

// Open ensures the three staged directories exist under root and
// returns a Spool over them.
func Open(root string) (*Spool, error) {
	s := &Spool{root: root}
	for _, dir := range []string{s.dir(Pending), s.dir(SentBuffer), s.dir(Incoming)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, newSpoolError("open", dir, err)
		}
	}
	return s, nil
}

func (s *Spool) dir(stage Stage) string {
	switch stage {
	case Pending:
		return filepath.Join(s.root, pendingDirName)
	case SentBuffer:
		return filepath.Join(s.root, sentBufferDirName)
	default:
		return filepath.Join(s.root, incomingDirName)
	}
}

// newFilename encodes the current millisecond timestamp, per spec.md
// §6's "<ts_ms>.<ext>", with a short uuid suffix to disambiguate
// same-millisecond arrivals.
func newFilename() string {
	return time.Now().Format("20060102150405.000") + "-" + uuid.NewString()[:8] + fileExt
}

// WriteNew writes data into stage as a new file via write-to-temp plus
// atomic rename within the same directory tree, per spec.md §4.5 step 5
// and §6. Returns the new filename (not the full path).
func (s *Spool) WriteNew(stage Stage, data []byte) (string, error) {
	name := newFilename()
	dir := s.dir(stage)
	final := filepath.Join(dir, name)
	tmp := filepath.Join(dir, scratchPrefix+name)

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", newSpoolError("write", tmp, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return "", newSpoolError("rename", final, err)
	}
	return name, nil
}

// List returns the filenames currently in stage, oldest-first by
// filename (the timestamp prefix sorts correctly), excluding any
// in-flight scratch files.
func (s *Spool) List(stage Stage) ([]string, error) {
	entries, err := os.ReadDir(s.dir(stage))
	if err != nil {
		return nil, newSpoolError("list", s.dir(stage), err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), scratchPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the contents of name in stage.
func (s *Spool) Read(stage Stage, name string) ([]byte, error) {
	path := filepath.Join(s.dir(stage), name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newSpoolError("read", path, err)
	}
	return data, nil
}

// Move atomically relocates name from one stage to another, preserving
// the filename — spec.md §4.6 step 2c's pending/ -> sent_buffer/ move.
func (s *Spool) Move(from, to Stage, name string) error {
	src := filepath.Join(s.dir(from), name)
	dst := filepath.Join(s.dir(to), name)
	if err := os.Rename(src, dst); err != nil {
		return newSpoolError("move", src, err)
	}
	return nil
}

// Remove deletes name from stage.
func (s *Spool) Remove(stage Stage, name string) error {
	path := filepath.Join(s.dir(stage), name)
	if err := os.Remove(path); err != nil {
		return newSpoolError("remove", path, err)
	}
	return nil
}

// RecoverIncoming undoes any scratch rename left behind by a crash
// between TakeIncoming's rename and its commit, so the file resurfaces
// on the next List(Incoming) pass exactly as spec.md §4.5 step 1
// requires ("on crash mid-processing, the file resurfaces on next
// pass"). Call once at startup before the egress loop begins.
func (s *Spool) RecoverIncoming() error {
	dir := s.dir(Incoming)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return newSpoolError("recover", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), scratchPrefix) {
			continue
		}
		scratch := filepath.Join(dir, e.Name())
		original := filepath.Join(dir, strings.TrimPrefix(e.Name(), scratchPrefix))
		if err := os.Rename(scratch, original); err != nil {
			return newSpoolError("recover", scratch, err)
		}
	}
	return nil
}

// TakeIncoming implements spec.md §4.5 egress step 1: rename name to a
// process-local scratch name within the same directory (so the rename
// is atomic and stays on the same filesystem), read its contents, and
// return a commit function that unlinks the scratch file only after
// the caller has finished processing. A crash between the rename and
// the commit leaves the scratch file in place; RecoverIncoming restores
// it to its original name on the next startup.
func (s *Spool) TakeIncoming(name string) (data []byte, commit func() error, err error) {
	dir := s.dir(Incoming)
	src := filepath.Join(dir, name)
	scratch := filepath.Join(dir, scratchPrefix+name)

	if err := os.Rename(src, scratch); err != nil {
		return nil, nil, newSpoolError("take", src, err)
	}

	data, readErr := os.ReadFile(scratch)
	if readErr != nil {
		return nil, nil, newSpoolError("read", scratch, readErr)
	}

	commit = func() error {
		if err := os.Remove(scratch); err != nil {
			return newSpoolError("commit", scratch, err)
		}
		return nil
	}
	return data, commit, nil
}

// Purge removes every file (including in-flight scratch files) from
// all three stages, per spec.md §4.5's quiescence behaviour.
func (s *Spool) Purge() error {
	for _, stage := range []Stage{Pending, SentBuffer, Incoming} {
		dir := s.dir(stage)
		entries, err := os.ReadDir(dir)
		if err != nil {
			return newSpoolError("purge", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				return newSpoolError("purge", path, err)
			}
		}
	}
	return nil
}
