package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_sessions_started_total",
			Help: "Total number of study sessions started",
		},
	)

	SessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_sessions_ended_total",
			Help: "Total number of study sessions ended",
		},
		[]string{"valid"},
	)

	FocusSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_focus_seconds_total",
			Help: "Total active focus seconds recorded across ended sessions",
		},
	)

	PersistResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_persist_total",
			Help: "Local persistence attempts by result",
		},
		[]string{"result"},
	)

	SyncResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_remote_sync_total",
			Help: "Remote sync attempts by result",
		},
		[]string{"operation", "result"},
	)

	TimerStateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracker_timer_state",
			Help: "Current timer state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)
)

// SetTimerState flips the state gauge to the given state.
func SetTimerState(state string) {
	for _, s := range []string{"idle", "running", "paused"} {
		v := 0.0
		if s == state {
			v = 1.0
		}
		TimerStateGauge.WithLabelValues(s).Set(v)
	}
}
