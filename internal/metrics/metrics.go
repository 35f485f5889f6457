// Package metrics counts what the watch engine does: handles started and
// invalidated, batches and events delivered, raw notifications coalesced,
// backend failures. Counters are cheap atomics; the registry can render
// itself in Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

type Registry struct {
	watchersStarted     atomic.Int64
	watchersInvalidated atomic.Int64
	batchesDelivered    atomic.Int64
	eventsDelivered     atomic.Int64
	eventsCoalesced     atomic.Int64
	backendErrors       atomic.Int64
	subscriberDrops     atomic.Int64
}

// Default is used when no registry is injected.
var Default = &Registry{}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	WatchersStarted     int64 `json:"watchers_started"`
	WatchersInvalidated int64 `json:"watchers_invalidated"`
	BatchesDelivered    int64 `json:"batches_delivered"`
	EventsDelivered     int64 `json:"events_delivered"`
	EventsCoalesced     int64 `json:"events_coalesced"`
	BackendErrors       int64 `json:"backend_errors"`
	SubscriberDrops     int64 `json:"subscriber_drops"`
}

func (r *Registry) IncWatchersStarted() {
	if r == nil {
		return
	}
	r.watchersStarted.Add(1)
}

func (r *Registry) IncWatchersInvalidated() {
	if r == nil {
		return
	}
	r.watchersInvalidated.Add(1)
}

func (r *Registry) AddBatchDelivered(events int) {
	if r == nil {
		return
	}
	r.batchesDelivered.Add(1)
	r.eventsDelivered.Add(int64(events))
}

func (r *Registry) AddEventsCoalesced(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.eventsCoalesced.Add(int64(count))
}

func (r *Registry) IncBackendErrors() {
	if r == nil {
		return
	}
	r.backendErrors.Add(1)
}

func (r *Registry) AddSubscriberDrops(count int) {
	if r == nil || count <= 0 {
		return
	}
	r.subscriberDrops.Add(int64(count))
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		WatchersStarted:     r.watchersStarted.Load(),
		WatchersInvalidated: r.watchersInvalidated.Load(),
		BatchesDelivered:    r.batchesDelivered.Load(),
		EventsDelivered:     r.eventsDelivered.Load(),
		EventsCoalesced:     r.eventsCoalesced.Load(),
		BackendErrors:       r.backendErrors.Load(),
		SubscriberDrops:     r.subscriberDrops.Load(),
	}
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}
	snapshot := r.Snapshot()
	writeCounter(writer, "dirwatch_watchers_started_total", "Watcher handles created", snapshot.WatchersStarted)
	writeCounter(writer, "dirwatch_watchers_invalidated_total", "Watcher handles invalidated", snapshot.WatchersInvalidated)
	writeCounter(writer, "dirwatch_batches_delivered_total", "Event batches delivered to callbacks", snapshot.BatchesDelivered)
	writeCounter(writer, "dirwatch_events_delivered_total", "Events delivered to callbacks", snapshot.EventsDelivered)
	writeCounter(writer, "dirwatch_events_coalesced_total", "Raw notifications merged into earlier events", snapshot.EventsCoalesced)
	writeCounter(writer, "dirwatch_backend_errors_total", "Platform backend transport errors", snapshot.BackendErrors)
	writeCounter(writer, "dirwatch_subscriber_drops_total", "Batches dropped for slow bus subscribers", snapshot.SubscriberDrops)
	return nil
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}
