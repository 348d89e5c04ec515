package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arcane-autoheal/autoheal/internal/common"
)

// writeJSONAtomic marshals v and replaces path's contents without ever
// leaving a half-written file behind: write to a temp file in the same
// directory, fsync it, then rename over the target. Rename within one
// filesystem is atomic, so a reader never observes a partial write or a
// process crash mid-write.
//
// No library in this corpus covers this narrow concern (the teacher's
// fs.WriteFileWithPerm writes directly via os.WriteFile with no
// crash-safety), so this is the one store primitive built on the standard
// library rather than an ecosystem package — recorded in DESIGN.md.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, common.DirPerm); err != nil {
		return fmt.Errorf("store: create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("store: encode %s: %w", path, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, common.FilePerm); err != nil {
		return fmt.Errorf("store: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("store: rename into place %s: %w", path, err)
	}
	return nil
}

// readJSON loads path into v. ok is false when the file does not exist yet,
// the normal case on first boot before any state has been persisted.
func readJSON(path string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("store: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorruptState, path, err)
	}
	return true, nil
}
