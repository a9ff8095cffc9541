package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	drawsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardami_draws_total",
		Help: "Total number of draws dealt on page entry.",
	})

	emptyDrawsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardami_empty_draws_total",
		Help: "Total number of draws with no unclaimed cards left.",
	})

	shufflesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardami_shuffles_total",
			Help: "Shuffle requests by outcome (started, ignored, completed, stale).",
		},
		[]string{"outcome"},
	)

	claimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardami_claims_total",
			Help: "Claim submissions by result.",
		},
		[]string{"result"},
	)

	staleResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardami_stale_results_total",
		Help: "Fetch results discarded because the page visit changed.",
	})

	galleryFlipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardami_gallery_flips_total",
		Help: "Total number of gallery card flips.",
	})
)
