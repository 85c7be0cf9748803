// Package statefile implements the write-to-temp-plus-atomic-rename
// discipline spec.md requires of node_status and peer_discovery, and
// the "stale read tolerance" contract of spec.md §5 and §7: a failed
// parse never overwrites the caller's last-known-good value.
//
// Grounded on the atomic-write pattern shared by
// ogm_monitor.py's write_status, file_manager.py, and
// rns_monitor.py's collect_and_write_status — all three write to
// "<path>.tmp" then os.rename into place.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ParseError reports a JSON state file that failed to parse. Per
// spec.md §7, the caller treats this as "previous value still holds"
// and must not propagate it as fatal.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("statefile: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteJSON atomically replaces path's contents with the JSON encoding
// of v: marshal, write to a sibling temp file, fsync, then rename onto
// path. The rename is atomic on any POSIX filesystem, so a reader
// never observes a partially written file.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("statefile: marshal %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(path), uuid.NewString()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("statefile: create temp for %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("statefile: write temp for %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("statefile: sync temp for %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("statefile: close temp for %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("statefile: rename temp for %s: %w", path, err)
	}
	return nil
}

// ReadJSON reads and unmarshals path into v. Returns a *ParseError on
// any read or unmarshal failure; callers should retain their previous
// parsed value rather than treat this as fatal.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ParseError{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}
