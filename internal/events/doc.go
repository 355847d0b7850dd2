// Package events provides an in-process publish/subscribe channel.
//
// The session engine emits a session.finished event whenever a quiz or blitz
// session is finalized, including finalization triggered by a blitz timer with
// no user action. Transports register handlers to notify the learner without
// the engine knowing how messages are delivered.
package events
