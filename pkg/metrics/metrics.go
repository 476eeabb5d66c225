package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CacheReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "codespace", Name: "cache_reads_total", Help: "Live-field reads by outcome (hit = served from cache, miss = durable fallback)."},
		[]string{"outcome"},
	)
	Flushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "codespace", Name: "flushes_total", Help: "Flush attempts by result."},
		[]string{"result"},
	)
	TmpCodespaces = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "codespace", Name: "tmp_codespaces_total", Help: "Ephemeral codespace operations by kind."},
		[]string{"op"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "codespace", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "codespace", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(CacheReads)
	reg.MustRegister(Flushes)
	reg.MustRegister(TmpCodespaces)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
