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

// Package report formats the reduced statistics bundle into the summary
// lines, detailed-stats line and per-op latency CSVs the driver prints.
package report

import (
	"fmt"
	"os"
	"strings"

	"mdworkbench/internal/stats"
)

// Phase names the reporter recognises; only the first letter matters for
// picking a summary shape, but the full name selects the latency-file op.
const (
	Precreate = "precreate"
	Benchmark = "benchmark"
	Cleanup   = "cleanup"
)

// Reporter formats an already-reduced Bundle (rank 0's view). ObjectSize
// is needed for the MiB/s throughput figures.
type Reporter struct {
	ObjectSize int
}

// New returns a Reporter for the given object size in bytes.
func New(objectSize int) *Reporter {
	return &Reporter{ObjectSize: objectSize}
}

func errSuffix(total int64) string {
	if total > 0 {
		return fmt.Sprintf("(%d errs!!!)", total)
	}
	return fmt.Sprintf("(%d errs)", total)
}

func mib(count int64, objectSize int) float64 {
	return float64(count) * float64(objectSize) / (1024.0 * 1024.0)
}

func rate(count int64, wall float64) float64 {
	if wall <= 0 {
		return 0
	}
	return float64(count) / wall
}

// FormatSummary formats the one-line phase summary printed at the end of
// each phase, selecting a shape by phase.
func (r *Reporter) FormatSummary(phase string, b *stats.Bundle) string {
	t := b.WallClockInclBarrier
	var first byte
	if phase != "" {
		first = phase[0]
	}
	switch first {
	case 'p':
		nd := b.DatasetCreate.Success
		no := b.ObjectCreate.Success
		elems := nd + no
		return fmt.Sprintf("precreate %.3fs %.1f iops/s %d dset %d obj %.1f dset/s %.1f obj/s %.1f Mib/s %s",
			t, rate(elems, t), nd, no, rate(nd, t), rate(no, t), mib(no, r.ObjectSize)/max(t, 1e-9), errSuffix(b.TotalErrors()))
	case 'b':
		no := b.ObjectCreate.Success
		ops := b.ObjectCreate.Success + b.ObjectStat.Success + b.ObjectRead.Success + b.ObjectDelete.Success
		volume := b.ObjectCreate.Success + b.ObjectRead.Success
		return fmt.Sprintf("benchmark %.3fs %.1f iops/s %d obj %.1f obj/s %.1f Mib/s %s",
			t, rate(ops, t), no, rate(no, t), mib(volume, r.ObjectSize)/max(t, 1e-9), errSuffix(b.TotalErrors()))
	case 'c':
		no := b.ObjectDelete.Success
		nd := b.DatasetDelete.Success
		elems := no + nd
		return fmt.Sprintf("cleanup %.3fs %.1f iops/s %d obj %d dset %.1f obj/s %.1f dset/s %s",
			t, rate(elems, t), no, nd, rate(no, t), rate(nd, t), errSuffix(b.TotalErrors()))
	default:
		return fmt.Sprintf("unknown phase %q", phase)
	}
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// DetailedStatsHeader is the optional tab-delimited header line.
func DetailedStatsHeader() string {
	return "phase\t\td name\tcreate\tdelete\tob nam\tcreate\tread\tstat\tdelete\tt_inc_b\tt_no_bar\tthp"
}

func pair(c stats.Counter) string {
	return fmt.Sprintf("%d(%d)", c.Success, c.Error)
}

// FormatDetailedStatsLine formats one tab-delimited line with every
// counter pair plus both wall clocks and throughput.
func (r *Reporter) FormatDetailedStatsLine(phase string, b *stats.Bundle) string {
	volume := b.ObjectCreate.Success + b.ObjectRead.Success
	thp := mib(volume, r.ObjectSize) / max(b.WallClockInclBarrier, 1e-9)
	return strings.Join([]string{
		phase,
		pair(b.DatasetName),
		pair(b.DatasetCreate),
		pair(b.DatasetDelete),
		pair(b.ObjectName),
		pair(b.ObjectCreate),
		pair(b.ObjectRead),
		pair(b.ObjectStat),
		pair(b.ObjectDelete),
		fmt.Sprintf("%.3f", b.WallClockInclBarrier),
		fmt.Sprintf("%.3f", b.WallClockExclBarrier),
		fmt.Sprintf("%.1f", thp),
	}, "\t")
}

// WriteLatencyCSV writes one CSV file for a single measured op, named
// "<prefix>-<iteration>-<op>-<rank>.csv", header "time,runtime", one row
// per captured operation.
func WriteLatencyCSV(prefix string, iteration int, op string, rank int, latencies []stats.Latency) error {
	name := fmt.Sprintf("%s-%d-%s-%d.csv", prefix, iteration, op, rank)
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("report: creating latency file %s: %w", name, err)
	}
	defer f.Close()

	if _, err := f.WriteString("time,runtime\n"); err != nil {
		return err
	}
	for _, l := range latencies {
		if _, err := fmt.Fprintf(f, "%.7f,%.4e\n", l.Since, l.Duration); err != nil {
			return err
		}
	}
	return nil
}
