package persist

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tonindexer/scanner/core/schema"
)

// wrapErr maps a pgx error into a structured StoreError status.
// pgx.ErrNoRows becomes NOT_FOUND; everything else is DB_ERROR.
func wrapErr(op string, err error) *schema.StoreError {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return schema.NotFound(op)
	}
	return schema.DBError(op, err)
}
