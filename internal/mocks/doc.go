// Package mocks provides hand-written store mocks for unit tests.
//
// Each mock has function fields that override individual methods and an
// in-memory default behavior, so tests only stub what they assert on:
//
//	words := mocks.NewMockWordStore(&domain.Word{UserID: 1, Source: "cat", Target: "mushuk"})
//	words.LoadEligibleFn = func(ctx context.Context, s domain.Scope, asOf time.Time) ([]*domain.Word, error) {
//	    return nil, errors.New("db down")
//	}
//
// Tests that need real SQL and transactions use the SQLite store instead.
package mocks
