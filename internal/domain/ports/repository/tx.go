package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx = interface{}

var NoTX interface{}

// TransactionManager runs fn inside one storage transaction and passes the
// handle along as tx. Repository methods accept the handle as `qx any` and
// MUST accept nil (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
