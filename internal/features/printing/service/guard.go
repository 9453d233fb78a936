package service

import (
	"os"
	"path/filepath"
	"strings"

	"printerbot-backend/internal/common/logger"
)

// PathGuard confines user-supplied path references to the storage root.
// Action payloads carry raw paths back from the chat transport, so this is
// the last check before any delete or print touches the filesystem.
type PathGuard struct {
	root string
}

func NewPathGuard(root string) (*PathGuard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &PathGuard{root: abs}, nil
}

// Validate reports whether candidate resolves to an existing regular file
// inside the storage root. The comparison is done on symlink-resolved
// absolute paths and segment-wise, so `storage-evil/x` does not pass for a
// root named `storage`, and a symlink escaping the root does not pass
// either. Any resolution error counts as a miss.
func (g *PathGuard) Validate(candidate string) bool {
	resolvedRoot, err := filepath.EvalSymlinks(g.root)
	if err != nil {
		logger.Warn().Err(err).Str("root", g.root).Msg("Storage root failed to resolve")
		return false
	}

	abs, err := filepath.Abs(candidate)
	if err != nil {
		return false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Also the nonexistent-file case.
		return false
	}

	rel, err := filepath.Rel(resolvedRoot, resolved)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	return true
}
