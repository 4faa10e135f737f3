package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IntentsTotal counts intents by name and outcome.
	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_intents_total",
		Help: "Total number of intents handled by outcome",
	}, []string{"intent", "outcome"})

	// PendingTransitions is the number of sign-in transitions waiting on
	// simulated latency.
	PendingTransitions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statusfeed_pending_transitions",
		Help: "Number of session transitions currently pending",
	})

	// TransitionLatency records how long pending transitions took to resolve.
	TransitionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "statusfeed_transition_latency_seconds",
		Help:    "Time from entering the pending state to resolution",
		Buckets: prometheus.DefBuckets,
	}, []string{"intent", "outcome"})

	// FeedPosts is the number of posts held in the feed store.
	FeedPosts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "statusfeed_feed_posts",
		Help: "Number of posts in the in-memory feed",
	})

	// Subscribers is the number of active view subscribers per hub.
	Subscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "statusfeed_subscribers",
		Help: "Number of active subscribers per hub",
	}, []string{"hub"})

	// SubscriberDrops counts updates coalesced or dropped for slow subscribers.
	SubscriberDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statusfeed_subscriber_drops_total",
		Help: "Total number of subscriber updates dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// Outcome maps an intent result onto a low-cardinality label.
func Outcome(err error, code string) string {
	if err == nil {
		return "ok"
	}
	if code == "" {
		return "error"
	}
	return strings.ToLower(code)
}

// RecordIntent increments IntentsTotal for the given outcome.
func RecordIntent(intent, outcome string) {
	IntentsTotal.WithLabelValues(intent, outcome).Inc()
}

// TrackTransition returns a function that records the latency of a pending
// transition when called with its outcome.
func TrackTransition(intent string) func(outcome string) {
	start := time.Now()
	PendingTransitions.Inc()
	return func(outcome string) {
		PendingTransitions.Dec()
		TransitionLatency.WithLabelValues(intent, outcome).Observe(time.Since(start).Seconds())
	}
}
