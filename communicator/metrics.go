// Copyright 2022 Sogang University
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

package communicator

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors of a communicator server.  A nil *Metrics
// discards every observation.
type Metrics struct {
	jobs         prometheus.Gauge
	bcasts       *prometheus.CounterVec
	planDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with the given
// registerer, if any.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		jobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "detfeed_jobs",
			Help: "Number of sampling jobs currently initialized.",
		}),
		bcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "detfeed_bcast_total",
			Help: "Number of shards served, by rank.",
		}, []string{"rank"}),
		planDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "detfeed_plan_duration_seconds",
			Help:    "Time spent drawing the batch layout of an epoch.",
			Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10),
		}),
	}

	if registerer != nil {
		registerer.MustRegister(metrics.jobs, metrics.bcasts, metrics.planDuration)
	}
	return metrics
}

func (m *Metrics) setJobs(jobs int) {
	if m == nil {
		return
	}
	m.jobs.Set(float64(jobs))
}

func (m *Metrics) countBcast(rank int64) {
	if m == nil {
		return
	}
	m.bcasts.WithLabelValues(strconv.FormatInt(rank, 10)).Inc()
}

func (m *Metrics) observePlan(duration time.Duration) {
	if m == nil {
		return
	}
	m.planDuration.Observe(duration.Seconds())
}
