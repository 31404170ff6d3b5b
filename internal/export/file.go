package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkordes/trackbook/backend/internal/domain"
)

// tempPrefix marks in-flight writes. Prune skips them.
const tempPrefix = ".tmp-"

// WriteFile writes data to dir/name and returns the full path.
//
// The data goes to a temporary file in dir which is synced and then renamed
// over the destination, so readers see either the previous file or the
// complete new one. On failure the temporary file is removed and the
// destination is left untouched.
func WriteFile(dir, name string, data []byte) (path string, err error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export.WriteFile: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+name+"-*")
	if err != nil {
		return "", fmt.Errorf("export.WriteFile: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return "", fmt.Errorf("export.WriteFile: write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("export.WriteFile: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("export.WriteFile: close: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("export.WriteFile: chmod: %w", err)
	}

	path = filepath.Join(dir, name)
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("export.WriteFile: rename: %w", err)
	}
	return path, nil
}

// Exists reports whether dir/name is an existing regular file.
func Exists(dir, name string) bool {
	info, err := os.Stat(filepath.Join(dir, name))
	return err == nil && info.Mode().IsRegular()
}

// Prune deletes regular files in dir ending in ext that were last modified
// before now-olderThan and returns how many were removed. An empty ext
// matches every file. Subdirectories and in-flight temporary files are left
// alone. A missing dir is not an error.
func Prune(dir, ext string, olderThan time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("export.Prune: %w", err)
	}

	cutoff := now.Add(-olderThan)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue // removed concurrently
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, fmt.Errorf("export.Prune: %w", errors.Join(errs...))
	}
	return removed, nil
}

// validateName rejects names that would escape the export directory or
// collide with in-flight temporary files.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: invalid export file name %q", domain.ErrValidation, name)
	}
	if strings.HasPrefix(name, tempPrefix) {
		return fmt.Errorf("%w: export file name %q uses the reserved prefix %q", domain.ErrValidation, name, tempPrefix)
	}
	return nil
}
