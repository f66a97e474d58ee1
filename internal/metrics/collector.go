// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/autobrr/qbnc/internal/poller"
)

// StateSource reports the current controller state.
type StateSource interface {
	State() poller.State
}

var allStates = []poller.State{
	poller.StateStarting,
	poller.StateRunning,
	poller.StateDraining,
	poller.StateStopped,
}

// ControllerCollector reads the controller state at scrape time.
type ControllerCollector struct {
	source StateSource

	stateDesc *prometheus.Desc
}

func NewControllerCollector(source StateSource) *ControllerCollector {
	return &ControllerCollector{
		source: source,

		stateDesc: prometheus.NewDesc(
			"qbnc_controller_state",
			"Poll controller state (1 for the current state, 0 otherwise)",
			[]string{"state"},
			nil,
		),
	}
}

func (c *ControllerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stateDesc
}

func (c *ControllerCollector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}

	current := c.source.State()
	for _, state := range allStates {
		value := 0.0
		if state == current {
			value = 1
		}
		ch <- prometheus.MustNewConstMetric(
			c.stateDesc,
			prometheus.GaugeValue,
			value,
			state.String(),
		)
	}
}
