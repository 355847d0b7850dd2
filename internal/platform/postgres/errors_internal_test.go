package postgres

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordl-bot/wordl/internal/store"
)

func TestMapStoreError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, mapStoreError(nil, "word", "create"))

	err := mapStoreError(&pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "words_pkey"}, "word", "create")
	assert.ErrorIs(t, err, store.ErrDuplicate)
	var storeErr *store.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "word", storeErr.Entity)
	assert.Equal(t, "create", storeErr.Operation)

	err = mapStoreError(sql.ErrNoRows, "user", "get_points")
	assert.True(t, store.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "get_points operation on user failed")
}
