// File: internal/usecase/executor.go
package usecase

import (
	"context"
	"hash/fnv"

	"github.com/jackc/pgx/v4"

	"pos-license-platform/internal/domain/ports/repository"
)

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

// lockMerchant serializes conflicting operations for one merchant with an
// advisory xact lock. Invariants like one-active-subscription and
// one-active-token-per-device must hold under concurrent requests, so every
// compound mutation takes this lock inside its transaction. The in-memory
// (test) path has no tx handle and relies on the mock repos' own locking.
func lockMerchant(ctx context.Context, tx repository.Tx, merchantID string) error {
	px, ok := tx.(pgx.Tx)
	if !ok {
		return nil
	}
	_, err := px.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(merchantID))
	return err
}
