// Package cache holds process-wide derived state for the review engine:
// the per-scope eligible word cache and a per-key mutex used to serialize
// actions on the same scope.
//
// The store remains the single source of truth. Dropping any cache entry at any
// time only costs an extra store read.
package cache
