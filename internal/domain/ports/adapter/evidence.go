package adapter

import "context"

// EvidenceStore persists payment-evidence files. Write-only from the core's
// perspective: the core keeps the returned path and never reads the bytes
// back.
type EvidenceStore interface {
	// Store writes the file and returns an opaque relative path.
	Store(ctx context.Context, filename string, data []byte) (string, error)
}
