package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// InsertRecord appends one record row. headersJSON is nil for a missing
// headers list, which binds to SQL NULL. key and value are bound as-is,
// including zero-length (but non-nil) slices, which persist as empty byte
// strings rather than NULL.
func InsertRecord(
	ctx context.Context,
	tx pgx.Tx,
	topic string,
	partition int32,
	offset int64,
	ts time.Time,
	headersJSON []byte,
	key []byte,
	value []byte,
) error {
	_, err := tx.Exec(ctx, insertData, topic, partition, offset, ts, headersJSON, key, value)
	return err
}
