// Copyright 2025 Esteban Alvarez. All Rights Reserved.
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

// Package metrics exposes phase-scoped counters over Prometheus, opt-in
// and additive to the stdout/CSV reporting; disabled by default.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	opsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mdworkbench_ops_total",
		Help: "Total backend operations by phase, kind and outcome",
	}, []string{"phase", "kind", "outcome"})

	phaseWallClockSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mdworkbench_phase_wall_clock_seconds",
		Help: "Wall clock seconds of the most recently completed phase",
	}, []string{"phase"})

	throughputMiBPerSecond = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mdworkbench_throughput_mib_per_second",
		Help: "Throughput in MiB/s of the most recently completed phase",
	}, []string{"phase"})
)

func init() {
	prometheus.MustRegister(opsTotal, phaseWallClockSeconds, throughputMiBPerSecond)
}

// Recorder owns the optional /metrics HTTP server. Per-phase outcomes are
// recorded by the package-level RecordOp, AddOp and RecordPhase functions,
// whether or not a Recorder exists. A nil *Recorder is valid and Stop is
// then a no-op, so the driver can hold one unconditionally.
type Recorder struct {
	server *http.Server
}

// Start serves /metrics on addr in the background. Only rank 0 should
// call Start. Returns a Recorder whose Stop shuts the server down.
func Start(addr string) *Recorder {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
	return &Recorder{server: server}
}

// Stop shuts the metrics HTTP server down, if one was started.
func (r *Recorder) Stop(ctx context.Context) error {
	if r == nil || r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}

// RecordOp increments the operation counter for (phase, kind, outcome).
func RecordOp(phase, kind, outcome string) {
	opsTotal.WithLabelValues(phase, kind, outcome).Inc()
}

// AddOp adds n to the operation counter for (phase, kind, outcome); used
// to fold an already-reduced counter pair into Prometheus at phase end
// instead of one Inc per operation.
func AddOp(phase, kind, outcome string, n float64) {
	if n <= 0 {
		return
	}
	opsTotal.WithLabelValues(phase, kind, outcome).Add(n)
}

// RecordPhase records the wall-clock and throughput of a completed phase.
func RecordPhase(phase string, wallClockSeconds, throughputMiBs float64) {
	phaseWallClockSeconds.WithLabelValues(phase).Set(wallClockSeconds)
	throughputMiBPerSecond.WithLabelValues(phase).Set(throughputMiBs)
}
