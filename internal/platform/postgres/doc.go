// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces (repositories) defined in the internal/store package.
// It handles the details of database connections, schema migrations, query
// execution, and data mapping between domain entities and database records.
//
// Every store runs against a store.DBTX, so the same code serves a pooled
// *sql.DB and a *sql.Tx obtained from store.RunInTransaction.
package postgres
