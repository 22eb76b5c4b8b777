package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WSConnections tracks currently open websocket connections.
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "kindred_ws_connections",
		Help: "Number of open websocket connections.",
	})

	// EventsPublished counts fan-out events by type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kindred_events_published_total",
		Help: "Real-time events published to channels.",
	}, []string{"type"})

	// MessagesPersisted counts messages written to the store.
	MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kindred_messages_persisted_total",
		Help: "Messages appended to conversations.",
	})
)

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
