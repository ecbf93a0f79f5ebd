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

package phase

import (
	"context"
	"testing"

	"mdworkbench/internal/backend"
	"mdworkbench/internal/config"
	"mdworkbench/internal/stats"
)

// TestRunSteadyStateSingleProcess exercises the benchmark phase with a
// single rank, where the skewed pattern folds writer and reader back
// onto rank 0 itself.
func TestRunSteadyStateSingleProcess(t *testing.T) {
	cfg := &config.Config{DsetCount: 2, Num: 2, Precreate: 4, ObjectSize: 8, Offset: 1}
	dummy := backend.NewDummy()
	d := newDeps(cfg, dummy)

	if err := RunPrecreate(context.Background(), d); err != nil {
		t.Fatal(err)
	}
	d.Bundle = &stats.Bundle{}

	if err := RunSteadyState(context.Background(), d, 0); err != nil {
		t.Fatal(err)
	}
	if d.Bundle.ObjectCreate.Success != 4 {
		t.Errorf("ObjectCreate.Success = %d, want 4 (num*dsets)", d.Bundle.ObjectCreate.Success)
	}
	if d.Bundle.ObjectStat.Success != 4 {
		t.Errorf("ObjectStat.Success = %d, want 4", d.Bundle.ObjectStat.Success)
	}
	if d.Bundle.ObjectRead.Success != 4 {
		t.Errorf("ObjectRead.Success = %d, want 4", d.Bundle.ObjectRead.Success)
	}
	if d.Bundle.ObjectDelete.Success != 4 {
		t.Errorf("ObjectDelete.Success = %d, want 4", d.Bundle.ObjectDelete.Success)
	}
}

// TestRunSteadyStateStatErrorSkipsReadAndDelete grounds the short-circuit
// rule: when an object was never precreated, stat fails and read/delete
// must not be attempted for that (f, d) pair.
func TestRunSteadyStateStatErrorSkipsReadAndDelete(t *testing.T) {
	cfg := &config.Config{DsetCount: 1, Num: 1, Precreate: 0, ObjectSize: 8, Offset: 1}
	dummy := backend.NewDummy()
	d := newDeps(cfg, dummy)
	d.Size = 4

	if err := RunSteadyState(context.Background(), d, 0); err != nil {
		t.Fatal(err)
	}
	if d.Bundle.ObjectStat.Error != 1 {
		t.Errorf("ObjectStat.Error = %d, want 1", d.Bundle.ObjectStat.Error)
	}
	if d.Bundle.ObjectRead.Success+d.Bundle.ObjectRead.Error != 0 {
		t.Errorf("expected read to be skipped after stat error")
	}
	if d.Bundle.ObjectDelete.Success+d.Bundle.ObjectDelete.Error != 0 {
		t.Errorf("expected delete to be skipped after stat error")
	}
}

// TestRunSteadyStateLatencyCapture confirms the create and stat latency
// slices are sized num*dsets when a latency file prefix is configured.
func TestRunSteadyStateLatencyCapture(t *testing.T) {
	cfg := &config.Config{DsetCount: 2, Num: 3, Precreate: 5, ObjectSize: 8, Offset: 1, LatencyFilePrefix: "run"}
	dummy := backend.NewDummy()
	d := newDeps(cfg, dummy)
	d.Size = 4

	if err := RunSteadyState(context.Background(), d, 0); err != nil {
		t.Fatal(err)
	}
	want := cfg.Num * cfg.DsetCount
	if len(d.Bundle.CreateLatencies) != want {
		t.Errorf("len(CreateLatencies) = %d, want %d", len(d.Bundle.CreateLatencies), want)
	}
	if len(d.Bundle.StatLatencies) != want {
		t.Errorf("len(StatLatencies) = %d, want %d", len(d.Bundle.StatLatencies), want)
	}
}

// TestRunSteadyStateCounterConservation checks that every write attempt
// is accounted for exactly once across success and error counters.
func TestRunSteadyStateCounterConservation(t *testing.T) {
	cfg := &config.Config{DsetCount: 3, Num: 4, Precreate: 6, ObjectSize: 8, Offset: 2}
	dummy := backend.NewDummy()
	d := newDeps(cfg, dummy)
	d.Size = 6

	if err := RunSteadyState(context.Background(), d, 0); err != nil {
		t.Fatal(err)
	}
	want := int64(cfg.Num * cfg.DsetCount)
	if got := d.Bundle.ObjectCreate.Success + d.Bundle.ObjectCreate.Error; got != want {
		t.Errorf("ObjectCreate total = %d, want %d", got, want)
	}
	if got := d.Bundle.ObjectStat.Success + d.Bundle.ObjectStat.Error; got != want {
		t.Errorf("ObjectStat total = %d, want %d", got, want)
	}
}
