package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the number of live observer connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logrelay_active_connections",
			Help: "Number of live observer connections",
		},
	)

	// ActiveRooms tracks the number of rooms with at least one member.
	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logrelay_active_rooms",
			Help: "Number of rooms with at least one member",
		},
	)

	// EventsPublished counts publish calls by event kind (log / stream_error).
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logrelay_events_published_total",
			Help: "Events published to rooms by kind",
		},
		[]string{"kind"},
	)

	// EventsDelivered counts events enqueued to member outboxes.
	EventsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logrelay_events_delivered_total",
			Help: "Events enqueued to member connections",
		},
	)

	// EventsDropped counts events dropped because a member's outbox was full.
	// Each drop also triggers that member's disconnect cleanup.
	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logrelay_events_dropped_total",
			Help: "Events dropped due to a full member outbox",
		},
	)
)
