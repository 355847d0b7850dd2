// Package picker chooses the next question of a session.
//
// A question is drawn uniformly from the cached eligible set of a scope, never
// repeating the word asked last in that scope while an alternative exists. The
// wrong options are sampled from other words in the same scope and padded with
// fixed placeholders when the scope is too small.
package picker
