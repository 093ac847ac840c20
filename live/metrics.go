package live

import (
	"errors"

	"github.com/Dosada05/livescore/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Commits        *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	CommitDuration prometheus.Histogram
	ResidentMatch  prometheus.Gauge
	Topics         prometheus.Gauge
	Sessions       prometheus.Gauge
	Delivered      prometheus.Counter
	Resyncs        prometheus.Counter
	Overflows      prometheus.Counter
}

// NewMetrics registers the collectors on reg. A nil reg leaves them
// unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livescore",
			Name:      "match_commits_total",
			Help:      "Committed match mutations by command.",
		}, []string{"command"}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livescore",
			Name:      "match_rejections_total",
			Help:      "Rejected match mutations by command and reason.",
		}, []string{"command", "reason"}),
		CommitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "livescore",
			Name:      "match_commit_duration_seconds",
			Help:      "Time from lock acquisition to delta enqueue.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		ResidentMatch: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "livescore",
			Name:      "resident_matches",
			Help:      "Matches held in memory by the state machine.",
		}),
		Topics: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "livescore",
			Name:      "topics",
			Help:      "Match topics with at least one subscriber.",
		}),
		Sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "livescore",
			Name:      "sessions",
			Help:      "Connected subscription sessions.",
		}),
		Delivered: f.NewCounter(prometheus.CounterOpts{
			Namespace: "livescore",
			Name:      "frames_delivered_total",
			Help:      "Delta and snapshot frames queued to sessions.",
		}),
		Resyncs: f.NewCounter(prometheus.CounterOpts{
			Namespace: "livescore",
			Name:      "session_resyncs_total",
			Help:      "Forced snapshot resyncs after a version gap.",
		}),
		Overflows: f.NewCounter(prometheus.CounterOpts{
			Namespace: "livescore",
			Name:      "session_overflows_total",
			Help:      "Sessions dropped for exceeding their outbound buffer.",
		}),
	}
}

// Reason returns a short label for err, used in metrics and error frames.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, ErrOutOfOrderEvent):
		return "out_of_order_event"
	case errors.Is(err, ErrSessionOverflow):
		return "session_overflow"
	case errors.Is(err, models.ErrMatchNotFound):
		return "not_found"
	case errors.Is(err, ErrUnknownCommand):
		return "unknown_command"
	default:
		return "internal"
	}
}
