// Package sqlite implements the store interfaces on an embedded SQLite database.
//
// It is the default backend for local use and the backend every store-level
// test runs against. The schema lives in migrations/ and is applied with goose.
// Calendar dates are stored as YYYY-MM-DD text, which keeps eligibility
// comparisons plain string comparisons; instants are stored as RFC 3339 text.
//
// Write paths that must be atomic across tables go through store.Stores.InTx;
// every store here can be rebound to a transaction with WithTx.
package sqlite
