// Package vocabulary implements the write side of a learner's word list:
// adding single words, bulk import from "source - target" lines, deleting
// words and groups, and creating groups.
//
// Every write runs in one transaction and invalidates the affected cached
// eligible sets only after the transaction commits, so a concurrent reader
// can never cache a set that is about to change.
package vocabulary
