package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

var (
	ErrEmptyPath  = errors.New("empty vault path")
	ErrNotRegular = errors.New("vault path is not a regular file")
)

// PermissionMask covers the group and other permission bits. A vault file
// with any of them set is readable by someone other than its owner.
const PermissionMask fs.FileMode = 0o077

// VaultFile describes what is at the configured vault path
type VaultFile struct {
	Path   string
	Exists bool
	Mode   fs.FileMode
}

// Loose reports whether group or other users have access to the file
func (v VaultFile) Loose() bool {
	return v.Exists && v.Mode.Perm()&PermissionMask != 0
}

// CheckVaultPath cleans the path and inspects what lives there. A missing
// file is fine. Symlinks are followed so a vault kept in a dotfiles
// directory still works, but the final target must be a regular file.
func CheckVaultPath(path string) (VaultFile, error) {
	if path == "" {
		return VaultFile{}, ErrEmptyPath
	}

	clean := filepath.Clean(path)
	v := VaultFile{Path: clean}

	info, err := os.Stat(clean)
	if errors.Is(err, fs.ErrNotExist) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("stat vault: %w", err)
	}

	if !info.Mode().IsRegular() {
		return v, fmt.Errorf("%w: %s", ErrNotRegular, clean)
	}

	v.Exists = true
	v.Mode = info.Mode()
	return v, nil
}
