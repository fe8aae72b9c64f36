package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections is the number of registered (joined) connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livecount_active_connections",
		Help: "Number of joined WebSocket connections.",
	})

	// RoomOccupancy is the current visitor count per room.
	RoomOccupancy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "livecount_room_occupancy",
		Help: "Current visitor count per room.",
	}, []string{"room"})

	// TotalVisitors is the visitor count across all rooms.
	TotalVisitors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "livecount_total_visitors",
		Help: "Current visitor count across all rooms.",
	})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
