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

// Package config holds the immutable, post-parse configuration record and
// the flag-based parser that builds it.
package config

import (
	"flag"
	"fmt"
)

// Config is the immutable configuration record built once per process at
// startup. Every field corresponds to an option named in the command-line
// surface.
type Config struct {
	BackendName string

	Num        int
	Precreate  int
	DsetCount  int
	Offset     int
	Iterations int
	ObjectSize int
	StartIndex int

	RunPrecreate bool
	RunBenchmark bool
	RunCleanup   bool

	IgnorePrecreateErrors bool
	ProcessReport         bool
	PrintPattern          bool
	Quiet                 bool
	Verbosity             int
	PrintDetailedStats    bool

	LatencyFilePrefix string

	LimitMemoryMiB             int
	LimitMemoryBetweenPhaseMiB int

	MetricsAddr string

	// RedisAddrs carries the redis backend's --redis-addrs option; parsed
	// here because flag's two-pass model still needs one FlagSet.
	RedisAddrs string
	RootDir    string

	// Ranks is the number of local goroutine ranks the in-process group
	// implementation simulates; there is no real multi-host transport, so
	// this stands in for "mpirun -np N" until one exists.
	Ranks int
}

// Parse builds a Config from argv (excluding the program name) in a single
// pass over one FlagSet. The backend-specific flags (--redis-addrs,
// --root-dir) are registered in that same set alongside the core options;
// a backend's Options() list is not consulted, and an unknown flag is a
// parse error whichever backend is selected.
func Parse(args []string) (cfg Config, printPattern bool, err error) {
	fs := flag.NewFlagSet("mdworkbench", flag.ContinueOnError)

	fs.IntVar(&cfg.Offset, "offset", 1, "rank shift base between writers and readers")
	fs.StringVar(&cfg.BackendName, "interface", "posix", `backend name, or "list" to print the registry`)
	fs.IntVar(&cfg.Num, "obj-per-proc", 1000, "objects per process per dataset per iteration")
	fs.IntVar(&cfg.Precreate, "precreate-per-set", 3000, "objects to precreate per process per dataset")
	fs.IntVar(&cfg.DsetCount, "data-sets", 10, "datasets per process")
	fs.IntVar(&cfg.ObjectSize, "object-size", 3900, "payload bytes per object")
	fs.IntVar(&cfg.Iterations, "iterations", 1, "steady-state repeats")
	fs.StringVar(&cfg.LatencyFilePrefix, "latency", "", "enable per-op latency CSVs with this file prefix")
	fs.IntVar(&cfg.LimitMemoryMiB, "lim-free-mem", 0, "MiB of free RAM to consume before the run")
	fs.IntVar(&cfg.LimitMemoryBetweenPhaseMiB, "lim-free-mem-phase", 0, "MiB of free RAM to consume between phases")
	fs.IntVar(&cfg.StartIndex, "start-index", 0, "resume offset into the object index space")
	fs.BoolVar(&cfg.RunPrecreate, "run-precreate", false, "run the precreate phase")
	fs.BoolVar(&cfg.RunBenchmark, "run-benchmark", false, "run the steady-state phase")
	fs.BoolVar(&cfg.RunCleanup, "run-cleanup", false, "run the cleanup phase")
	fs.BoolVar(&cfg.IgnorePrecreateErrors, "ignore-precreate-errors", false, "do not abort on precreate errors")
	fs.BoolVar(&cfg.ProcessReport, "process-reports", false, "print one report line per process")
	fs.BoolVar(&cfg.PrintDetailedStats, "print-detailed-stats", false, "print the detailed tab-delimited stats line")
	fs.BoolVar(&cfg.PrintPattern, "print-pattern", false, "print the write/read pattern and exit")
	fs.BoolVar(&cfg.Quiet, "quiet", false, "accepted for command-line compatibility; has no effect on output")
	fs.IntVar(&cfg.Verbosity, "verbose", 0, "verbosity level (an integer value, not a repeat count)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", "", "optional host:port to serve Prometheus /metrics from rank 0")
	fs.StringVar(&cfg.RedisAddrs, "redis-addrs", "", "comma-separated redis backend endpoints")
	fs.StringVar(&cfg.RootDir, "root-dir", "out", "posix backend root directory")
	fs.IntVar(&cfg.Ranks, "ranks", 1, "number of local goroutine ranks to simulate (no real multi-host transport exists)")

	if err := fs.Parse(args); err != nil {
		return Config{}, false, err
	}

	if !cfg.RunPrecreate && !cfg.RunBenchmark && !cfg.RunCleanup {
		cfg.RunPrecreate, cfg.RunBenchmark, cfg.RunCleanup = true, true, true
	}
	if cfg.StartIndex > 0 && cfg.RunPrecreate {
		return Config{}, false, fmt.Errorf("config: --start-index cannot be combined with --run-precreate")
	}
	if cfg.Ranks < 1 {
		return Config{}, false, fmt.Errorf("config: --ranks must be >= 1")
	}

	return cfg, cfg.PrintPattern, nil
}
