package sqlutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and nullable column types

// FromSqlInt32 converts sql.NullInt32 to Go int pointer
func FromSqlInt32(val sql.NullInt32) *int {
	if !val.Valid {
		return nil
	}
	i := int(val.Int32)
	return &i
}

// FromSqlTime converts sql.NullTime to Go time pointer
func FromSqlTime(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time
	return &t
}

// ToNullJSON marshals v into a JSONB column value. A nil slice is stored as SQL NULL.
func ToNullJSON[T any](v []T) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{Valid: false}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("failed to marshal json column: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

// FromNullJSON unmarshals a JSONB column into a slice. SQL NULL yields an empty, non-nil slice.
func FromNullJSON[T any](val pqtype.NullRawMessage) ([]T, error) {
	out := make([]T, 0)
	if !val.Valid || len(val.RawMessage) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(val.RawMessage, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	return out, nil
}
