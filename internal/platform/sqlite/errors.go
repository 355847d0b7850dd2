package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/wordl-bot/wordl/internal/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// mapError translates driver errors into the store taxonomy inside a
// *store.StoreError naming the entity and operation. A nil error maps to nil.
func mapError(err error, entity, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return store.NewStoreError(entity, op, "no rows", store.ErrNotFound)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.NewStoreError(entity, op, "unique constraint", errors.Wrap(store.ErrDuplicate, err.Error()))
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			sqlite3.SQLITE_CONSTRAINT_CHECK,
			sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return store.NewStoreError(entity, op, "constraint violation", errors.Wrap(store.ErrInvalidEntity, err.Error()))
		}
	}

	return store.NewStoreError(entity, op, "query failed", err)
}

// isForeignKeyViolation reports whether err is a foreign key failure.
func isForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}

// checkRowsAffected returns notFound when result touched no rows.
func checkRowsAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
