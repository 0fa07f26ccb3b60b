// Package collab provides the shared state core of the collab-core broker:
// the domain types, the in-memory store that owns them, and the event bus
// that fans every successful mutation out to subscribers.
//
// The store serializes all mutations behind a single mutex and publishes the
// resulting events to the bus inside the same critical section, so a
// subscriber that attaches at any point receives a snapshot plus a live
// stream that together cover every mutation exactly once. Boundary layers
// (HTTP, WebSocket, the observer scanner, the Redis mirror) depend only on
// this package.
package collab
