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

package dumper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dumperRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bootcheck_dumper_runs_total",
			Help: "Total number of dumper invocations",
		},
		[]string{"dumper", "status"}, // success or error
	)

	dumperDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bootcheck_dumper_duration_seconds",
			Help:    "Time taken by individual dumpers",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 120},
		},
		[]string{"dumper"},
	)

	registeredDumpers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bootcheck_registered_dumpers",
			Help: "Number of dumpers currently registered",
		},
	)
)
