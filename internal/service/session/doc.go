// Package session runs quiz and blitz sessions as explicit state machines.
//
// A quiz asks a fixed number of questions; a blitz asks questions until its
// deadline. Both move through created, awaiting_answer and scored until they
// reach a terminal state: finished, no_words or cancelled. Each session is
// guarded by its own mutex, so a double-tapped answer is processed once and
// the second is rejected as stale.
//
// Finalization happens exactly once. The blitz timer, an explicit finish, the
// last quiz answer and the sweeper all race to finalize through a single
// compare-and-swap taken under the session lock; the losers observe the
// cached summary. A failed persist clears the flag again, and the sweeper
// retries expired sessions until one succeeds.
package session
