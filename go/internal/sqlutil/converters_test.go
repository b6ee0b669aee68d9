package sqlutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/sqlc-dev/pqtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestNullJSON(t *testing.T) {
	t.Run("nil slice stored as null", func(t *testing.T) {
		v, err := ToNullJSON[entry](nil)
		require.NoError(t, err)
		assert.False(t, v.Valid)
	})

	t.Run("null column reads as empty slice", func(t *testing.T) {
		out, err := FromNullJSON[entry](pqtype.NullRawMessage{})
		require.NoError(t, err)
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})

	t.Run("preserves order", func(t *testing.T) {
		in := []entry{{"b", 2}, {"a", 1}}
		v, err := ToNullJSON(in)
		require.NoError(t, err)
		assert.True(t, v.Valid)

		out, err := FromNullJSON[entry](v)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := FromNullJSON[entry](pqtype.NullRawMessage{RawMessage: []byte("{"), Valid: true})
		assert.Error(t, err)
	})
}

func TestFromSqlNullables(t *testing.T) {
	assert.Nil(t, FromSqlInt32(sql.NullInt32{}))
	if got := FromSqlInt32(sql.NullInt32{Int32: 7, Valid: true}); assert.NotNil(t, got) {
		assert.Equal(t, 7, *got)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Nil(t, FromSqlTime(sql.NullTime{}))
	if got := FromSqlTime(sql.NullTime{Time: now, Valid: true}); assert.NotNil(t, got) {
		assert.True(t, now.Equal(*got))
	}
}
