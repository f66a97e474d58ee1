// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package collector

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeCollectorCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewBridgeCollector(registry)

	m.GetItemsTotal("mark", ResultSuccess).Inc()
	m.GetItemsTotal("rescan", ResultFailure).Inc()
	m.GetItemFailuresTotal("exec").Inc()
	m.GetItemFailuresTotal("exec").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(m.GetItemsTotal("mark", ResultSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.GetItemFailuresTotal("exec")), 0)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "qbnc_items_total")
	assert.Contains(t, names, "qbnc_item_failures_total")
}

func TestResult(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ResultSuccess, Result(nil))
	assert.Equal(t, ResultFailure, Result(errors.New("boom")))
}
