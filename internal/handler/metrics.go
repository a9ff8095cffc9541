package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardami_sign_ins_total",
			Help: "Sign-in attempts by method and status.",
		},
		[]string{"method", "status"},
	)

	signUpsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cardami_sign_ups_total",
		Help: "Total number of successful sign-ups.",
	})
)
