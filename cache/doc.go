// Package cache shares reference-counted resources by key.
//
// A Cache creates a resource on the first Get for a key, hands every caller
// its own reference, and keeps one reference of its own (the keep-alive
// reference) while the entry is in the map. When the last external holder
// releases, a job on the background reaper drops the keep-alive reference,
// which destroys the resource and removes the entry.
//
// Creation is serialized by a single lock, so a key is never created twice
// concurrently. Shutdown releases every keep-alive reference and, when leak
// tracing is enabled, waits a bounded time for outstanding references before
// reporting and force-closing the leaks.
package cache
