// Package store defines the repository contracts the review engine depends on.
//
// The interfaces keep scheduling, session and cache logic independent of the
// database in use. Two implementations exist: internal/platform/postgres for
// production and internal/platform/sqlite for local use and tests. Both share
// the same DBTX abstraction and run multi-store writes through RunInTransaction
// using a Stores bundle rebound to the transaction.
package store
