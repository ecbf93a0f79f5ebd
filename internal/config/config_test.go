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

package config

import "testing"

func TestParseDefaultsEnableAllPhasesWhenNoneSet(t *testing.T) {
	cfg, _, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.RunPrecreate || !cfg.RunBenchmark || !cfg.RunCleanup {
		t.Fatalf("expected all phases enabled by default, got %+v", cfg)
	}
}

func TestParseExplicitPhaseSelectionDoesNotEnableOthers(t *testing.T) {
	cfg, _, err := Parse([]string{"--run-cleanup"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RunPrecreate || cfg.RunBenchmark || !cfg.RunCleanup {
		t.Fatalf("expected only cleanup enabled, got %+v", cfg)
	}
}

func TestParseStartIndexWithPrecreateIsRejected(t *testing.T) {
	_, _, err := Parse([]string{"--run-precreate", "--start-index=5"})
	if err == nil {
		t.Fatal("expected an error combining --start-index with --run-precreate")
	}
}

func TestParseValues(t *testing.T) {
	cfg, printPattern, err := Parse([]string{
		"--interface=dummy",
		"--obj-per-proc=2",
		"--precreate-per-set=4",
		"--data-sets=2",
		"--object-size=8",
		"--offset=1",
		"--print-pattern",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BackendName != "dummy" || cfg.Num != 2 || cfg.Precreate != 4 || cfg.DsetCount != 2 || cfg.ObjectSize != 8 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !printPattern {
		t.Fatal("expected printPattern=true")
	}
}

func TestParseRanksDefaultsToOne(t *testing.T) {
	cfg, _, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Ranks != 1 {
		t.Fatalf("expected default ranks=1, got %d", cfg.Ranks)
	}
}

func TestParseRanksBelowOneIsRejected(t *testing.T) {
	_, _, err := Parse([]string{"--ranks=0"})
	if err == nil {
		t.Fatal("expected an error for --ranks=0")
	}
}
