// Package pool implements the resilient connection/channel pool.
//
// A Registry holds named logical clients. Each client owns a fixed ring
// of broker connections, and each connection a fixed ring of
// multiplexed channels. Every slot has one long-lived watcher goroutine
// that turns asynchronous close notifications into recovery: mark
// not-ready, retry at a fixed interval until the handle is
// re-established, never give up the slot. Failures never remove a slot
// from its ring and never surface to callers as anything other than
// ErrUnavailable from the nonblocking round-robin Acquire calls.
package pool
