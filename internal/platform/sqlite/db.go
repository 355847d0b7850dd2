package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/wordl-bot/wordl/internal/store"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DriverName is the database/sql driver used by this package.
const DriverName = "sqlite"

const (
	dateLayout    = time.DateOnly
	instantLayout = time.RFC3339Nano
)

// Open connects to the SQLite database at dsn, enabling foreign keys and a
// busy timeout when the DSN does not set them. The pool is limited to one
// connection: SQLite has a single writer, and an in-memory database exists
// per connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, withPragmas(dsn))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite database")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to connect to sqlite database")
	}
	return db, nil
}

func withPragmas(dsn string) string {
	pragmas := []string{}
	if !strings.Contains(dsn, "foreign_keys") {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "busy_timeout") {
		pragmas = append(pragmas, "_pragma=busy_timeout(5000)")
	}
	if len(pragmas) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}

// NewMigrator returns a goose provider over the embedded schema.
func NewMigrator(db *sqlx.DB) (*goose.Provider, error) {
	fsys, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open embedded migrations")
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db.DB, fsys)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migration provider")
	}
	return provider, nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	provider, err := NewMigrator(db)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}
	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("component", "sqlite"),
			slog.Int64("version", r.Source.Version),
			slog.Duration("duration", r.Duration))
	}
	return nil
}

// NewStores bundles every SQLite store on db.
func NewStores(db *sqlx.DB) store.Stores {
	return store.Stores{
		DB:       db.DB,
		Words:    NewWordStore(db),
		Stats:    NewStatsStore(db),
		Sessions: NewSessionStore(db),
		Users:    NewUserStore(db),
		Groups:   NewGroupStore(db),
	}
}

// conn is the query surface shared by *sqlx.DB and *sqlx.Tx.
type conn interface {
	sqlx.ExtContext
}

// bindTx wraps a database/sql transaction so sqlx scanning works on it.
func bindTx(db *sqlx.DB, tx *sql.Tx) conn {
	return &sqlx.Tx{Tx: tx, Mapper: db.Mapper}
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(instantLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid timestamp %q", s)
	}
	return t, nil
}
