// Package domain contains the core entities of the vocabulary trainer: words and
// their mastery fields, review scopes, stats events and quiz session results.
// It has no knowledge of storage or transport.
package domain
