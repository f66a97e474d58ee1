// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type BridgeCollector struct {
	SessionLoginsTotal *prometheus.CounterVec
	PollsTotal         *prometheus.CounterVec
	PollDuration       prometheus.Histogram
	TorrentsFoundTotal prometheus.Counter
	ItemsTotal         *prometheus.CounterVec
	ItemFailuresTotal  *prometheus.CounterVec
}

func NewBridgeCollector(r *prometheus.Registry) *BridgeCollector {
	m := &BridgeCollector{
		SessionLoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbnc",
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Total number of qBittorrent logins by result",
		}, []string{"result"}),
		PollsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbnc",
			Name:      "polls_total",
			Help:      "Total number of poll cycles by result",
		}, []string{"result"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qbnc",
			Name:      "poll_duration_seconds",
			Help:      "Duration of poll cycles including marking and rescans",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}),
		TorrentsFoundTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "qbnc",
			Name:      "torrents_found_total",
			Help:      "Total number of completed torrents returned by the download client",
		}),
		ItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbnc",
			Name:      "items_total",
			Help:      "Total number of per-torrent steps by stage and result",
		}, []string{"stage", "result"}),
		ItemFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qbnc",
			Name:      "item_failures_total",
			Help:      "Total number of per-torrent failures by error kind",
		}, []string{"kind"}),
	}

	r.MustRegister(m.SessionLoginsTotal)
	r.MustRegister(m.PollsTotal)
	r.MustRegister(m.PollDuration)
	r.MustRegister(m.TorrentsFoundTotal)
	r.MustRegister(m.ItemsTotal)
	r.MustRegister(m.ItemFailuresTotal)
	return m
}

func (m *BridgeCollector) GetItemsTotal(stage, result string) prometheus.Counter {
	return m.ItemsTotal.With(prometheus.Labels{
		"stage":  stage,
		"result": result,
	})
}

func (m *BridgeCollector) GetItemFailuresTotal(kind string) prometheus.Counter {
	return m.ItemFailuresTotal.With(prometheus.Labels{
		"kind": kind,
	})
}

// Result maps an error to the result label.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
