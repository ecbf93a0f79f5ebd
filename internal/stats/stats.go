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

// Package stats carries the per-process statistics bundle a phase engine
// fills in, and the explicit, fixed-order reduction that turns many
// per-process bundles into the one rank 0 reports on.
package stats

import (
	"context"
	"fmt"

	"mdworkbench/pkg/group"
)

// Counter is a (successes, errors) pair for one operation kind. NoOp
// outcomes count toward neither.
type Counter struct {
	Success int64
	Error   int64
}

// Latency is one captured operation timing: seconds since the run's
// global start, and the operation's own duration in seconds.
type Latency struct {
	Since    float64
	Duration float64
}

// Bundle is the per-process statistics accumulator for a single phase.
// It is allocated at the start of a phase and handed to the reducer and
// reporter at phase end.
type Bundle struct {
	WallClockInclBarrier float64
	WallClockExclBarrier float64

	DatasetName   Counter
	DatasetCreate Counter
	DatasetDelete Counter
	ObjectName    Counter
	ObjectCreate  Counter
	ObjectRead    Counter
	ObjectStat    Counter
	ObjectDelete  Counter

	CreateLatencies []Latency
	ReadLatencies   []Latency
	StatLatencies   []Latency
	DeleteLatencies []Latency
}

// counters returns the eight counter pairs in the fixed serialisation
// order used by Reduce; Reduce and TotalErrors rely on this order.
func (b *Bundle) counters() []*Counter {
	return []*Counter{
		&b.DatasetName, &b.DatasetCreate, &b.DatasetDelete,
		&b.ObjectName, &b.ObjectCreate, &b.ObjectRead, &b.ObjectStat, &b.ObjectDelete,
	}
}

// Reduce performs the phase-end reduction: max over the two wall clocks,
// sum over the sixteen counter fields (eight pairs). Only rank 0's bundle
// is mutated with the group-wide totals; other ranks are left unchanged
// since group.Group's reduce primitives only populate rank 0.
func Reduce(ctx context.Context, g group.Group, b *Bundle) error {
	maxIn := []float64{b.WallClockInclBarrier, b.WallClockExclBarrier}
	maxOut, err := g.MaxReduce(ctx, maxIn)
	if err != nil {
		return fmt.Errorf("stats: max-reduce: %w", err)
	}

	counters := b.counters()
	sumIn := make([]int64, 0, len(counters)*2)
	for _, c := range counters {
		sumIn = append(sumIn, c.Success, c.Error)
	}
	sumOut, err := g.SumReduce(ctx, sumIn)
	if err != nil {
		return fmt.Errorf("stats: sum-reduce: %w", err)
	}

	if g.Rank() != 0 {
		return nil
	}
	b.WallClockInclBarrier = maxOut[0]
	b.WallClockExclBarrier = maxOut[1]
	for i, c := range counters {
		c.Success = sumOut[2*i]
		c.Error = sumOut[2*i+1]
	}
	return nil
}

// TotalErrors sums every error counter in the bundle.
func (b *Bundle) TotalErrors() int64 {
	var total int64
	for _, c := range b.counters() {
		total += c.Error
	}
	return total
}
