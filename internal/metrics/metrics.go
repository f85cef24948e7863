// Package metrics holds the Prometheus instrumentation for the game
// loop and the unlock gate. Counters are registered on the default
// registry and served by Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GamesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alphagate_games_started_total",
		Help: "Game sessions that entered the playing phase.",
	})

	GamesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alphagate_games_finished_total",
		Help: "Game sessions that ran down to the finished phase.",
	})

	TargetsSpawned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alphagate_targets_spawned_total",
		Help: "Targets placed into play areas.",
	})

	TargetsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alphagate_targets_expired_total",
		Help: "Targets removed by aging out unclicked.",
	})

	TargetHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alphagate_target_hits_total",
		Help: "Successful target clicks.",
	})

	TargetMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alphagate_target_misses_total",
		Help: "Clicks on empty play area.",
	})

	UnlockAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alphagate_unlock_attempts_total",
		Help: "Unlock gate decisions by outcome.",
	}, []string{"outcome"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
