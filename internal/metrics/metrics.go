package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MatchActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "collab_match_actions_total", Help: "Total successful match operations by action"},
		[]string{"action"},
	)
	RecommendationScores = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "collab_recommendation_scores_total", Help: "Total recommendation scores computed"},
	)
	RecommendationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "collab_recommendation_failures_total", Help: "Total recommendation scores that fell back to zero"},
	)
	MalformedFields = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "collab_malformed_string_sets_total", Help: "Total stored skill or technology lists that failed to parse"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(MatchActions, RecommendationScores, RecommendationFailures, MalformedFields)
	})
}
