package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts dataset operations by outcome.
type Metrics struct {
	SyncsTotal   *prometheus.CounterVec
	QueriesTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datamanager_syncs_total",
			Help: "Upstream sync operations by dataset kind and outcome.",
		}, []string{"kind", "outcome"}),
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "datamanager_queries_total",
			Help: "Partition queries by dataset kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}
