package editor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "figdraw_editor_operations_total",
		Help: "Editor operations applied, by type and outcome",
	}, []string{"op", "outcome"})

	historyActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "figdraw_editor_history_actions_total",
		Help: "Undo, redo and cancelled snapshots",
	}, []string{"action"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "figdraw_editor_sessions",
		Help: "Editor sessions currently open",
	})
)

func observeOperation(op string, changed bool, err error) {
	outcome := "unchanged"
	switch {
	case err != nil:
		outcome = "error"
	case changed:
		outcome = "changed"
	}
	operationsTotal.WithLabelValues(op, outcome).Inc()
}
