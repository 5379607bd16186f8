// File: internal/infra/storage/evidence.go
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pos-license-platform/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.EvidenceStore = (*LocalEvidenceStore)(nil)

// LocalEvidenceStore writes payment evidence files under a configured
// directory. Files are named by content hash so duplicate uploads of the
// same receipt land on one file, and the returned path is what the core
// persists on the confirmation record.
type LocalEvidenceStore struct {
	dir string
}

func NewLocalEvidenceStore(dir string) (*LocalEvidenceStore, error) {
	if dir == "" {
		dir = "evidence"
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("evidence store: %w", err)
	}
	return &LocalEvidenceStore{dir: dir}, nil
}

func (s *LocalEvidenceStore) Store(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("evidence store: empty file %q", filename)
	}
	sum := sha256.Sum256(data)
	name := hex.EncodeToString(sum[:16]) + sanitizeExt(filename)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("evidence store: %w", err)
	}
	return path, nil
}

// sanitizeExt keeps a short, safe extension from the uploaded name.
func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}
