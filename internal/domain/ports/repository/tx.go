package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Its concrete type is infra-defined
// (pgx.Tx for Postgres); repositories must accept nil and fall back to their
// non-transactional path.
type Tx interface{}

// NoTX marks an explicitly non-transactional call site.
var NoTX Tx = nil

// TransactionManager executes fn inside a single database transaction,
// passing the tx handle through so repositories share it. Every compound
// mutation in the use-case layer (checkout, trial start, payment approval,
// activation, token issue/refresh) runs through WithTx: partial application
// is a correctness violation, not a degraded state.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
