package compare

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Bucket identifies a logical object-store address: a bucket name and a
// path prefix within it. Values are immutable.
type Bucket struct {
	Name string
	Path string
}

// Work is the shared work area: a bucket location for staged data plus a
// local directory for symlink manifests and output files. The directory is
// created once if absent and never deleted by the tool.
type Work struct {
	Location Bucket
	Dir      string
}

// NewWork creates the work area, expanding a leading ~ in localDir and
// creating the directory if needed.
func NewWork(loc Bucket, localDir string) (*Work, error) {
	dir, err := expandHome(localDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create local workdir %s: %w", dir, err)
	}
	return &Work{Location: loc, Dir: dir}, nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// normalizeIdentifier maps a bucket name to a valid table identifier by
// replacing every non-alphanumeric character with an underscore.
func normalizeIdentifier(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// normalizePathName flattens a key prefix into a single local file name
// component.
func normalizePathName(p string) string {
	return strings.ReplaceAll(p, "/", "-")
}
