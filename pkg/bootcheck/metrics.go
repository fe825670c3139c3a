// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bootcheck

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootcheck_runs_total",
			Help: "Total number of boot checks by outcome",
		},
		[]string{"outcome"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bootcheck_stage_duration_seconds",
			Help:    "Time spent in each controller state",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
		[]string{"state"},
	)

	drainRounds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bootcheck_drain_rounds",
			Help: "Dump rounds used by the last drain",
		},
	)

	remainingModules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bootcheck_remaining_modules",
			Help: "Modules left without a dump after the last drain",
		},
	)

	rebootCounter = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bootcheck_reboot_counter",
			Help: "Consecutive self-triggered abnormal reboots",
		},
	)
)

// WriteMetrics writes every registered metric to path in the node-exporter
// textfile format.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
