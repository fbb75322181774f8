// Package journal persists pool lifecycle events to Postgres.
//
// The writer is an optional pool.EventSink: connection and channel
// transitions are buffered, batched, and inserted into the pool_events
// table on a flush interval. The journal is observability support; the
// pool itself never depends on it.
package journal
