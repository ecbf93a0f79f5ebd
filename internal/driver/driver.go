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

// Package driver sequences the precreate, steady-state and cleanup phase
// engines into one run: startup, phase loop with barrier/reduce/report at
// every phase boundary, and shutdown.
package driver

import (
	"context"
	"fmt"
	"time"

	"mdworkbench/internal/backend"
	"mdworkbench/internal/ballast"
	"mdworkbench/internal/config"
	"mdworkbench/internal/metrics"
	"mdworkbench/internal/pattern"
	"mdworkbench/internal/phase"
	"mdworkbench/internal/report"
	"mdworkbench/internal/stats"
	"mdworkbench/pkg/group"
)

// Version is reported in the startup banner.
const Version = "1.0.0"

const processReportTag = 4711

// ErrUnknownBackend is returned by Resolve when the configured backend
// name has no entry in the registry.
type ErrUnknownBackend struct {
	Name string
}

func (e *ErrUnknownBackend) Error() string {
	return fmt.Sprintf("driver: unknown backend %q", e.Name)
}

// Resolve looks up name in reg. The special name "list" is the caller's
// responsibility — printing the registry and exiting cleanly happens
// before a Driver is ever constructed, so Resolve only reports genuine
// lookup failures.
func Resolve(reg *backend.Registry, name string) (backend.Backend, error) {
	b, ok := reg.Lookup(name)
	if !ok {
		return nil, &ErrUnknownBackend{Name: name}
	}
	return b, nil
}

// ResolveOrAbort resolves name in reg; on failure it prints a diagnostic
// on rank 0 and aborts the whole group with exit code 1, returning the
// resolution error so the caller can translate it into a process exit
// code. printf may be nil, in which case fmt.Printf is used.
func ResolveOrAbort(g group.Group, reg *backend.Registry, name string, printf func(format string, args ...any)) (backend.Backend, error) {
	b, err := Resolve(reg, name)
	if err == nil {
		return b, nil
	}
	if g.Rank() == 0 {
		if printf != nil {
			printf("%v\n", err)
		} else {
			fmt.Printf("%v\n", err)
		}
	}
	_ = g.Abort(1)
	return nil, err
}

// Driver owns one rank's run of the benchmark: a resolved backend, the
// collective group it belongs to, and the configuration and ancillary
// services (ballast, metrics) that phase-end bookkeeping needs.
type Driver struct {
	Group   group.Group
	Backend backend.Backend
	Cfg     *config.Config
	Ballast *ballast.Ballast
	Clock   group.Clock
	Metrics *metrics.Recorder

	Reporter *report.Reporter

	// Printf receives stdout-bound progress and diagnostic text; defaults
	// to fmt.Printf when nil, matching phase.Deps' fallback.
	Printf func(format string, args ...any)

	// Now stamps the banner/closing-line timestamps; defaults to
	// time.Now. Tests inject a fixed value for deterministic output.
	Now func() time.Time
}

// New returns a Driver ready to Run.
func New(g group.Group, b backend.Backend, cfg *config.Config, ball *ballast.Ballast, clock group.Clock) *Driver {
	return &Driver{
		Group:    g,
		Backend:  b,
		Cfg:      cfg,
		Ballast:  ball,
		Clock:    clock,
		Reporter: report.New(cfg.ObjectSize),
	}
}

func (d *Driver) print(format string, args ...any) {
	if d.Printf != nil {
		d.Printf(format, args...)
		return
	}
	fmt.Printf(format, args...)
}

func (d *Driver) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Run executes the full startup/phase-loop/shutdown sequence for this
// rank. It returns a non-nil error only for conditions the caller should
// surface as a non-zero exit code; every rank in the group observes the
// same abort via an already-called Group.Abort by the time Run returns.
func (d *Driver) Run(ctx context.Context) error {
	rank := d.Group.Rank()
	size := d.Group.Size()
	cfg := d.Cfg

	if cfg.PrintPattern {
		if rank == 0 {
			d.printPattern(size)
		}
		return nil
	}

	if err := d.Backend.Initialize(ctx); err != nil {
		_ = d.Group.Abort(1)
		return fmt.Errorf("driver: backend initialize: %w", err)
	}

	if err := d.Ballast.Allocate(cfg.LimitMemoryMiB); err != nil {
		_ = d.Group.Abort(1)
		return fmt.Errorf("driver: memory ballast: %w", err)
	}

	cumulativeIndex := 0
	if !cfg.RunPrecreate {
		idx, err := d.Backend.GetIndex(ctx)
		if err != nil {
			_ = d.Group.Abort(1)
			return fmt.Errorf("driver: reading index ledger: %w", err)
		}
		cumulativeIndex = idx
	}

	if rank == 0 {
		totalObjects := cfg.DsetCount * (cfg.Num + cfg.Precreate) * size
		workingSetMiB := float64(totalObjects) * float64(cfg.ObjectSize) / (1024.0 * 1024.0)
		d.print("MD-REAL-IO total objects: %d workingset size: %.1f MiB (version: %s) time: %s\n",
			totalObjects, workingSetMiB, Version, d.now().Format(time.RFC3339))
		if cfg.Num > cfg.Precreate {
			d.print("WARNING: obj-per-proc > precreate-per-set, reads may find no objects to access\n")
		}
	}

	runStart := d.Clock.Now()

	if cfg.RunPrecreate {
		if rank == 0 {
			status, err := d.Backend.PrepareGlobal(ctx)
			if err != nil || (status != backend.Success && status != backend.NoOp) {
				_ = d.Group.Abort(1)
				return fmt.Errorf("driver: prepare global: status=%v err=%w", status, err)
			}
		}
		if err := d.Group.Barrier(ctx); err != nil {
			return fmt.Errorf("driver: pre-precreate barrier: %w", err)
		}

		phaseStart := d.Clock.Now()
		bundle := &stats.Bundle{}
		if err := phase.RunPrecreate(ctx, d.deps(bundle, d.newPayload(rank), runStart)); err != nil {
			return d.abortOnFatal(err)
		}
		if err := d.endPhase(ctx, report.Precreate, 0, bundle, phaseStart); err != nil {
			_ = d.Group.Abort(1)
			return err
		}
	}

	if cfg.RunBenchmark {
		for i := 0; i < cfg.Iterations; i++ {
			phaseStart := d.Clock.Now()
			bundle := &stats.Bundle{}
			if err := phase.RunSteadyState(ctx, d.deps(bundle, d.newPayload(rank), runStart), cumulativeIndex); err != nil {
				return d.abortOnFatal(err)
			}
			if err := d.endPhase(ctx, report.Benchmark, i, bundle, phaseStart); err != nil {
				_ = d.Group.Abort(1)
				return err
			}
			cumulativeIndex += cfg.Num
		}
	}

	if cfg.RunCleanup {
		phaseStart := d.Clock.Now()
		bundle := &stats.Bundle{}
		if err := phase.RunCleanup(ctx, d.deps(bundle, d.newPayload(rank), runStart), cumulativeIndex); err != nil {
			return d.abortOnFatal(err)
		}
		if err := d.endPhase(ctx, report.Cleanup, 0, bundle, phaseStart); err != nil {
			_ = d.Group.Abort(1)
			return err
		}
		if rank == 0 {
			if status, err := d.Backend.PurgeGlobal(ctx); err != nil || (status != backend.Success && status != backend.NoOp) {
				d.print("Rank 0: error purging the global environment (status=%v err=%v)\n", status, err)
			}
		}
	} else if err := d.Backend.PutIndex(ctx, cumulativeIndex); err != nil {
		d.print("Error persisting the resume index (%v)\n", err)
	}

	if rank == 0 {
		d.print("Total runtime: %.3fs time: %s\n", runStart.Elapsed(), d.now().Format(time.RFC3339))
	}

	if err := d.Backend.Finalize(ctx); err != nil {
		d.print("Error finalizing the backend (%v)\n", err)
	}
	d.Ballast.Release()
	return nil
}

// newPayload fills one object-sized buffer with rank mod 256, freshly per
// phase; read_object overwrites the same buffer within a phase, so each
// phase starts from this known pattern rather than whatever the previous
// phase's last read left behind.
func (d *Driver) newPayload(rank int) []byte {
	buf := make([]byte, d.Cfg.ObjectSize)
	for i := range buf {
		buf[i] = byte(rank % 256)
	}
	return buf
}

func (d *Driver) deps(bundle *stats.Bundle, buf []byte, start group.Timer) *phase.Deps {
	return &phase.Deps{
		Backend: d.Backend,
		Rank:    d.Group.Rank(),
		Size:    d.Group.Size(),
		Cfg:     d.Cfg,
		Bundle:  bundle,
		Buf:     buf,
		Clock:   d.Clock,
		Start:   start,
		Printf:  d.Printf,
	}
}

// abortOnFatal turns a phase.AbortError into a group-wide abort and
// returns the underlying error; any other error (context cancellation,
// a collective failing) is returned unchanged without aborting, since
// every rank will already observe the same failure independently.
func (d *Driver) abortOnFatal(err error) error {
	var abortErr *phase.AbortError
	if ok := asAbortError(err, &abortErr); ok {
		_ = d.Group.Abort(1)
		return abortErr.Unwrap()
	}
	return err
}

func asAbortError(err error, target **phase.AbortError) bool {
	ae, ok := err.(*phase.AbortError)
	if ok {
		*target = ae
	}
	return ok
}

// endPhase implements the common phase-end sequence: stop the pre-barrier
// clock, barrier, stop the post-barrier clock, reduce, report, optionally
// collect per-process lines and write latency CSVs, then release latency
// memory and cycle the between-phase ballast.
func (d *Driver) endPhase(ctx context.Context, phaseName string, iteration int, b *stats.Bundle, phaseStart group.Timer) error {
	b.WallClockExclBarrier = phaseStart.Elapsed()

	// Snapshot this rank's own counters before Reduce overwrites rank 0's
	// in place, so per-process reporting reflects this rank, not the sum.
	local := *b

	if err := d.Group.Barrier(ctx); err != nil {
		return fmt.Errorf("driver: %s phase-end barrier: %w", phaseName, err)
	}
	b.WallClockInclBarrier = phaseStart.Elapsed()

	if err := stats.Reduce(ctx, d.Group, b); err != nil {
		return fmt.Errorf("driver: %s reduce: %w", phaseName, err)
	}

	rank := d.Group.Rank()
	if rank == 0 {
		d.print("%s\n", d.Reporter.FormatSummary(phaseName, b))
		if d.Cfg.PrintDetailedStats {
			d.print("%s\n", report.DetailedStatsHeader())
			d.print("%s\n", d.Reporter.FormatDetailedStatsLine(phaseName, b))
		}
		d.recordMetrics(phaseName, b)
	}

	if d.Cfg.ProcessReport {
		if err := d.reportProcesses(ctx, phaseName, &local); err != nil {
			return fmt.Errorf("driver: %s process reports: %w", phaseName, err)
		}
	}

	if d.Cfg.LatencyFilePrefix != "" && rank == 0 {
		if err := d.writeLatencyFiles(phaseName, iteration, b); err != nil {
			return fmt.Errorf("driver: %s latency files: %w", phaseName, err)
		}
	}
	b.CreateLatencies = nil
	b.ReadLatencies = nil
	b.StatLatencies = nil
	b.DeleteLatencies = nil

	if d.Cfg.LimitMemoryBetweenPhaseMiB > 0 {
		if err := d.Ballast.Allocate(d.Cfg.LimitMemoryBetweenPhaseMiB); err != nil {
			return fmt.Errorf("driver: %s between-phase ballast: %w", phaseName, err)
		}
		d.Ballast.Release()
	}
	return nil
}

func (d *Driver) recordMetrics(phaseName string, b *stats.Bundle) {
	volume := b.ObjectCreate.Success + b.ObjectRead.Success
	throughput := float64(volume) * float64(d.Cfg.ObjectSize) / (1024.0 * 1024.0)
	if b.WallClockInclBarrier > 0 {
		throughput /= b.WallClockInclBarrier
	}
	metrics.RecordPhase(phaseName, b.WallClockInclBarrier, throughput)

	metrics.AddOp(phaseName, "dataset_create", "success", float64(b.DatasetCreate.Success))
	metrics.AddOp(phaseName, "dataset_create", "error", float64(b.DatasetCreate.Error))
	metrics.AddOp(phaseName, "dataset_delete", "success", float64(b.DatasetDelete.Success))
	metrics.AddOp(phaseName, "dataset_delete", "error", float64(b.DatasetDelete.Error))
	metrics.AddOp(phaseName, "object_create", "success", float64(b.ObjectCreate.Success))
	metrics.AddOp(phaseName, "object_create", "error", float64(b.ObjectCreate.Error))
	metrics.AddOp(phaseName, "object_read", "success", float64(b.ObjectRead.Success))
	metrics.AddOp(phaseName, "object_read", "error", float64(b.ObjectRead.Error))
	metrics.AddOp(phaseName, "object_stat", "success", float64(b.ObjectStat.Success))
	metrics.AddOp(phaseName, "object_stat", "error", float64(b.ObjectStat.Error))
	metrics.AddOp(phaseName, "object_delete", "success", float64(b.ObjectDelete.Success))
	metrics.AddOp(phaseName, "object_delete", "error", float64(b.ObjectDelete.Error))
}

func (d *Driver) reportProcesses(ctx context.Context, phaseName string, local *stats.Bundle) error {
	rank := d.Group.Rank()
	size := d.Group.Size()
	line := fmt.Sprintf("%d: %s", rank, d.Reporter.FormatSummary(phaseName, local))

	if rank != 0 {
		return d.Group.Send(ctx, 0, processReportTag, []byte(line))
	}

	d.print("%s\n", line)
	for src := 1; src < size; src++ {
		buf, err := d.Group.Recv(ctx, src, processReportTag)
		if err != nil {
			return err
		}
		d.print("%s\n", string(buf))
	}
	return nil
}

// writeLatencyFiles writes one CSV per op this phase captured, named
// "<prefix>-<iteration>-<op>-<rank>.csv".
func (d *Driver) writeLatencyFiles(phaseName string, iteration int, b *stats.Bundle) error {
	rank := d.Group.Rank()
	prefix := d.Cfg.LatencyFilePrefix

	switch phaseName {
	case report.Precreate:
		return report.WriteLatencyCSV(prefix, iteration, "precreate", rank, b.CreateLatencies)
	case report.Cleanup:
		return report.WriteLatencyCSV(prefix, iteration, "cleanup", rank, b.DeleteLatencies)
	case report.Benchmark:
		ops := []struct {
			name string
			lat  []stats.Latency
		}{
			{"create", b.CreateLatencies},
			{"stat", b.StatLatencies},
			{"read", b.ReadLatencies},
			{"delete", b.DeleteLatencies},
		}
		for _, op := range ops {
			if err := report.WriteLatencyCSV(prefix, iteration, op.name, rank, op.lat); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func (d *Driver) printPattern(size int) {
	d.print("I/O pattern\n")
	for n := 0; n < size; n++ {
		for dset := 0; dset < d.Cfg.DsetCount; dset++ {
			writeRank := pattern.WriteRank(n, dset, d.Cfg.Offset, size)
			readRank := pattern.ReadRank(n, dset, d.Cfg.Offset, size)
			d.print("%d: write: %d read: %d\n", n, writeRank, readRank)
		}
	}
}
