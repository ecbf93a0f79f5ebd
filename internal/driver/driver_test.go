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

package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"mdworkbench/internal/backend"
	"mdworkbench/internal/ballast"
	"mdworkbench/internal/config"
	"mdworkbench/pkg/group"
)

// capturingPrintf collects every formatted line a rank prints, safe for
// concurrent use by goroutine ranks sharing one test's assertions.
type capturingPrintf struct {
	mu    sync.Mutex
	lines []string
}

func (c *capturingPrintf) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func (c *capturingPrintf) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

func zeroBallast() *ballast.Ballast {
	return ballast.New(zeroFreeReader{})
}

type zeroFreeReader struct{}

func (zeroFreeReader) FreeKB() (uint64, error) { return 0, nil }

func runAllRanks(t *testing.T, size int, cfg *config.Config, b backend.Backend, printf func(format string, args ...any)) []error {
	t.Helper()
	groups := group.NewLocal(size)
	errs := make([]error, size)
	var wg sync.WaitGroup
	for r := 0; r < size; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			cfgCopy := *cfg
			d := New(groups[r], b, &cfgCopy, zeroBallast(), group.MonotonicClock{})
			d.Printf = printf
			errs[r] = d.Run(context.Background())
		}()
	}
	wg.Wait()
	return errs
}

// TestDriverS1SmokeSingleProcess grounds scenario S1: a single-rank run
// over the dummy backend leaves nothing behind and reports zero errors.
func TestDriverS1SmokeSingleProcess(t *testing.T) {
	cfg := &config.Config{
		Num: 2, Precreate: 4, DsetCount: 2, ObjectSize: 8, Offset: 1, Iterations: 1,
		RunPrecreate: true, RunBenchmark: true, RunCleanup: true,
	}
	dummy := backend.NewDummy()
	rec := &capturingPrintf{}
	errs := runAllRanks(t, 1, cfg, dummy, rec.printf)
	if errs[0] != nil {
		t.Fatalf("unexpected error: %v", errs[0])
	}
	for _, line := range rec.snapshot() {
		if strings.Contains(line, "errs!!!") {
			t.Errorf("unexpected error line: %q", line)
		}
	}
	status, err := dummy.ReadObject(context.Background(), "0_0", "file-0", make([]byte, 8))
	if err != nil {
		t.Fatal(err)
	}
	if status != backend.ErrorFind {
		t.Errorf("expected object to be gone after cleanup, got status %v", status)
	}
}

// TestDriverS3PrecreateErrorAbortsWithoutIgnoreFlag grounds scenario S3's
// abort branch: a failing write_object during precreate without the
// ignore flag aborts the group before the phase's barrier.
func TestDriverS3PrecreateErrorAbortsWithoutIgnoreFlag(t *testing.T) {
	cfg := &config.Config{
		Num: 1, Precreate: 2, DsetCount: 1, ObjectSize: 8, Offset: 1, Iterations: 1,
		RunPrecreate: true, RunBenchmark: true, RunCleanup: true,
	}
	dummy := backend.NewDummy()
	dummy.FailWrite = backend.ErrorUnknown
	errs := runAllRanks(t, 1, cfg, dummy, func(string, ...any) {})
	if errs[0] == nil {
		t.Fatal("expected an error")
	}
}

// TestDriverS3PrecreateErrorIgnored grounds scenario S3's ignore branch:
// with ignore_precreate_errors the phase completes and the run proceeds.
func TestDriverS3PrecreateErrorIgnored(t *testing.T) {
	cfg := &config.Config{
		Num: 1, Precreate: 2, DsetCount: 1, ObjectSize: 8, Offset: 1, Iterations: 1,
		RunPrecreate: true, RunBenchmark: false, RunCleanup: true,
		IgnorePrecreateErrors: true,
	}
	dummy := backend.NewDummy()
	dummy.FailWrite = backend.ErrorUnknown
	errs := runAllRanks(t, 1, cfg, dummy, func(string, ...any) {})
	if errs[0] != nil {
		t.Fatalf("expected no error with ignore flag set, got %v", errs[0])
	}
}

// TestDriverS6MissingBackendAborts grounds scenario S6: resolving an
// unregistered backend name prints a diagnostic on rank 0 and aborts
// every rank in the group.
func TestDriverS6MissingBackendAborts(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register(backend.NewDummy())

	groups := group.NewLocal(3)
	rec := &capturingPrintf{}
	var wg sync.WaitGroup
	results := make([]error, 3)
	for r := 0; r < 3; r++ {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r == 0 {
				_, err := ResolveOrAbort(groups[r], reg, "nonesuch", rec.printf)
				results[r] = err
				return
			}
			results[r] = groups[r].Barrier(context.Background())
		}()
	}
	wg.Wait()

	if results[0] == nil {
		t.Fatal("expected resolution error on rank 0")
	}
	for r := 1; r < 3; r++ {
		if results[r] != group.ErrAborted {
			t.Errorf("rank %d: got %v, want ErrAborted", r, results[r])
		}
	}
	found := false
	for _, line := range rec.snapshot() {
		if strings.Contains(line, "nonesuch") {
			found = true
		}
	}
	if !found {
		t.Error("expected a diagnostic naming the missing backend")
	}
}

// TestDriverIdempotentEmptyCleanup grounds property 5: cleanup against a
// backend with nothing precreated reports zero successes.
func TestDriverIdempotentEmptyCleanup(t *testing.T) {
	cfg := &config.Config{
		Precreate: 3, DsetCount: 2, ObjectSize: 8, Offset: 1, Iterations: 1,
		RunCleanup: true,
	}
	dummy := backend.NewDummy()
	rec := &capturingPrintf{}
	errs := runAllRanks(t, 1, cfg, dummy, rec.printf)
	if errs[0] != nil {
		t.Fatalf("unexpected error: %v", errs[0])
	}
	found := false
	for _, line := range rec.snapshot() {
		if strings.HasPrefix(line, "cleanup ") {
			found = true
			if !strings.Contains(line, "0 obj") {
				t.Errorf("expected zero successful object deletes, got line %q", line)
			}
		}
	}
	if !found {
		t.Error("expected a cleanup summary line")
	}
}

// TestDriverReductionFidelity grounds property 4: the rank-0 summary
// reflects every rank's contribution, not just rank 0's own.
func TestDriverReductionFidelity(t *testing.T) {
	cfg := &config.Config{
		Num: 2, Precreate: 2, DsetCount: 1, ObjectSize: 8, Offset: 1, Iterations: 1,
		RunPrecreate: true,
	}
	dummy := backend.NewDummy()
	rec := &capturingPrintf{}
	errs := runAllRanks(t, 3, cfg, dummy, rec.printf)
	for i, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: %v", i, err)
		}
	}
	found := false
	for _, line := range rec.snapshot() {
		if strings.HasPrefix(line, "precreate ") {
			found = true
			// 3 ranks x 1 dataset x 2 objects = 6 objects total.
			if !strings.Contains(line, "6 obj") {
				t.Errorf("expected summed object count across ranks, got line %q", line)
			}
		}
	}
	if !found {
		t.Error("expected a precreate summary line")
	}
}
