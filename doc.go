// Package dirwatch watches a single directory and delivers a normalized,
// ordered stream of change events to a client callback.
//
// A Watcher first reports every regular file already present as an initial
// batch of Modified events, then switches to live notifications from the
// platform backend. Delivery is best-effort but ordered: the initial batch
// precedes all live batches, and a terminal WatcherInvalidated event is
// delivered exactly once, last, on every exit path. Clients should tolerate
// an occasional duplicate Modified event; the backends cannot always tell a
// metadata touch from a content change.
package dirwatch
