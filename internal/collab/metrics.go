package collab

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "figdraw_collab_clients",
		Help: "WebSocket clients currently joined to a room",
	})

	openRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "figdraw_collab_rooms",
		Help: "Rooms with a loaded drawing",
	})

	documentSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "figdraw_collab_saves_total",
		Help: "Drawing saves by outcome",
	}, []string{"outcome"})
)
