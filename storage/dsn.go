package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const defaultFilePragmas = "mode=rwc&_busy_timeout=5000&_journal_mode=WAL"

// ErrPathRequired is returned when a sqlite path is empty.
var ErrPathRequired = errors.New("storage: sqlite path must be configured")

// FileDSN converts a filesystem path into an on-disk SQLite DSN. Values that
// already carry the file: scheme are passed through.
func FileDSN(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}
	if strings.HasPrefix(trimmed, "file:") {
		return trimmed, nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}
	return fmt.Sprintf("file:%s?%s", abs, defaultFilePragmas), nil
}
