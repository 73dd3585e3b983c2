package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors exist from package init so the Inc helpers are safe from any
// goroutine; Register only exposes them on the default registry.
var (
	factory = promauto.With(nil)

	httpRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polling",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed by the polling API.",
	}, []string{"method", "path", "status"})

	votesTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polling",
		Name:      "votes_total",
		Help:      "Vote attempts by outcome.",
	}, []string{"result"})

	pollsCreatedTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "polling",
		Name:      "polls_created_total",
		Help:      "Polls created.",
	})

	voteEventsProcessedTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "polling",
		Name:      "vote_events_processed_total",
		Help:      "Vote events consumed by the stats worker.",
	})

	registerOnce sync.Once
)

// Register exposes the metrics on the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal, votesTotal, pollsCreatedTotal, voteEventsProcessedTotal)
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// IncVote records a vote attempt; result is "accepted", "already_voted",
// "invalid_option", "not_found" or "error".
func IncVote(result string) {
	votesTotal.WithLabelValues(result).Inc()
}

func IncPollCreated() {
	pollsCreatedTotal.Inc()
}

func IncVoteEventProcessed() {
	voteEventsProcessedTotal.Inc()
}
