// Package stats records answers and added words, and folds finished sessions
// into per-user aggregates.
//
// Every write here is one transaction spanning the event log, the word row,
// the answer aggregates and the user's points. Cached eligible sets are
// dropped only after that transaction commits.
package stats
