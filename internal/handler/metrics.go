package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome.",
		},
		[]string{"status"},
	)

	tokenVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Bearer token checks by outcome.",
		},
		[]string{"status"},
	)

	initialSetupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_initial_setup_total",
			Help: "Initial setup calls by outcome.",
		},
		[]string{"status"},
	)
)
