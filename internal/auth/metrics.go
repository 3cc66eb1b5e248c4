// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StockCtrl Contributors

package auth

import "github.com/prometheus/client_golang/prometheus"

// Metrics records account and session outcomes. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	SignupsTotal       *prometheus.CounterVec
	LoginsTotal        *prometheus.CounterVec
	TokenChecksTotal   *prometheus.CounterVec
	RevocationsTotal   *prometheus.CounterVec
	StorageErrorsTotal *prometheus.CounterVec
	SessionsSwept      prometheus.Counter
}

// NewMetrics creates and registers auth metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockctrl_auth_signups_total",
				Help: "Total number of account creation attempts by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockctrl_auth_logins_total",
				Help: "Total number of login attempts by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		TokenChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockctrl_auth_token_checks_total",
				Help: "Total number of session token checks by outcome",
			},
			[]string{"outcome"},
		),
		RevocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockctrl_auth_revocations_total",
				Help: "Total number of session revocations by outcome",
			},
			[]string{"outcome"},
		),
		StorageErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockctrl_auth_storage_errors_total",
				Help: "Total number of persistence failures by operation",
			},
			[]string{"operation"},
		),
		SessionsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stockctrl_auth_sessions_swept_total",
				Help: "Total number of expired or revoked sessions deleted by the sweeper",
			},
		),
	}

	reg.MustRegister(
		m.SignupsTotal,
		m.LoginsTotal,
		m.TokenChecksTotal,
		m.RevocationsTotal,
		m.StorageErrorsTotal,
		m.SessionsSwept,
	)
	return m
}

func (m *Metrics) signup(kind AccountKind, outcome Outcome) {
	if m == nil {
		return
	}
	m.SignupsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
}

func (m *Metrics) login(kind AccountKind, outcome Outcome) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(string(kind), string(outcome)).Inc()
}

func (m *Metrics) tokenCheck(outcome Outcome) {
	if m == nil {
		return
	}
	m.TokenChecksTotal.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) revocation(outcome Outcome) {
	if m == nil {
		return
	}
	m.RevocationsTotal.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) storageError(operation string) {
	if m == nil {
		return
	}
	m.StorageErrorsTotal.WithLabelValues(operation).Inc()
}

func (m *Metrics) swept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsSwept.Add(float64(n))
}
