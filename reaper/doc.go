// Package reaper runs deferred cleanup jobs on a single background worker.
//
// Jobs are queued without blocking the caller and executed one at a time in
// submission order, so two cleanup jobs never run concurrently on the same
// Reaper. Default returns a lazily started process-wide instance shared by
// all caches that do not configure their own.
package reaper
