// Package task runs short background jobs on a bounded in-memory queue
// served by a fixed pool of workers. The session engine uses it to finalize
// blitz sessions off the timer goroutine when their deadline passes.
package task
