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

package report

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mdworkbench/internal/stats"
)

func TestFormatSummaryNoErrors(t *testing.T) {
	r := New(4096)
	b := &stats.Bundle{WallClockInclBarrier: 2.0}
	b.DatasetCreate.Success = 3
	b.ObjectCreate.Success = 30
	line := r.FormatSummary(Precreate, b)
	if !strings.HasPrefix(line, "precreate ") {
		t.Fatalf("unexpected prefix: %s", line)
	}
	if !strings.HasSuffix(line, "(0 errs)") {
		t.Fatalf("expected no-error suffix, got: %s", line)
	}
}

func TestFormatSummaryWithErrorsUsesBangSuffix(t *testing.T) {
	r := New(4096)
	b := &stats.Bundle{WallClockInclBarrier: 1.0}
	b.ObjectCreate.Error = 2
	line := r.FormatSummary(Benchmark, b)
	if !strings.HasSuffix(line, "(2 errs!!!)") {
		t.Fatalf("expected bang suffix, got: %s", line)
	}
}

func TestDetailedStatsLineHasTwelveTabFields(t *testing.T) {
	r := New(1024)
	b := &stats.Bundle{WallClockInclBarrier: 1, WallClockExclBarrier: 0.5}
	line := r.FormatDetailedStatsLine(Benchmark, b)
	fields := strings.Split(line, "\t")
	if len(fields) != 12 {
		t.Fatalf("got %d fields, want 12: %q", len(fields), line)
	}
}

func TestWriteLatencyCSVRowCount(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "run")
	latencies := []stats.Latency{
		{Since: 0.1, Duration: 0.001},
		{Since: 0.2, Duration: 0.002},
		{Since: 0.3, Duration: 0.0005},
	}
	if err := WriteLatencyCSV(prefix, 0, "create", 0, latencies); err != nil {
		t.Fatal(err)
	}
	name := prefix + "-0-create-0.csv"
	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if lines[0] != "time,runtime" {
		t.Fatalf("header = %q, want time,runtime", lines[0])
	}
	if got, want := len(lines)-1, len(latencies); got != want {
		t.Fatalf("row count = %d, want %d", got, want)
	}
}
