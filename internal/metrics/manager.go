// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/qbnc/internal/domain"
	"github.com/autobrr/qbnc/internal/metrics/collector"
	"github.com/autobrr/qbnc/internal/poller"
)

var _ poller.Recorder = (*Manager)(nil)

// Manager owns the registry and records poll controller activity.
type Manager struct {
	registry            *prometheus.Registry
	controllerCollector *ControllerCollector
	bridge              *collector.BridgeCollector
	source              StateSource
}

func NewManager(source StateSource) *Manager {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	controllerCollector := NewControllerCollector(source)
	registry.MustRegister(controllerCollector)

	bridge := collector.NewBridgeCollector(registry)

	log.Debug().Msg("Metrics manager initialized")

	return &Manager{
		registry:            registry,
		controllerCollector: controllerCollector,
		bridge:              bridge,
		source:              source,
	}
}

func (m *Manager) GetRegistry() *prometheus.Registry {
	return m.registry
}

// State reports the watched controller's state, or Stopped when none is set.
func (m *Manager) State() poller.State {
	if m.source == nil {
		return poller.StateStopped
	}
	return m.source.State()
}

func (m *Manager) StateChanged(state poller.State) {
	log.Trace().Stringer("state", state).Msg("Recorded controller state")
}

func (m *Manager) SessionRenewed(err error) {
	m.bridge.SessionLoginsTotal.WithLabelValues(collector.Result(err)).Inc()
}

func (m *Manager) PollFinished(found int, elapsed time.Duration, err error) {
	m.bridge.PollsTotal.WithLabelValues(collector.Result(err)).Inc()
	m.bridge.PollDuration.Observe(elapsed.Seconds())
	if found > 0 {
		m.bridge.TorrentsFoundTotal.Add(float64(found))
	}
}

func (m *Manager) ItemProcessed(stage poller.Stage, err error) {
	m.bridge.GetItemsTotal(string(stage), collector.Result(err)).Inc()
	if err != nil {
		m.bridge.GetItemFailuresTotal(domain.KindOf(err)).Inc()
	}
}
