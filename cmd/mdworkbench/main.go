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

// Package main is the mdworkbench command-line entry point: it parses
// flags, resolves the backend named by --interface, starts one Driver per
// simulated rank, and reports a single process exit code for the run.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"mdworkbench/internal/backend"
	"mdworkbench/internal/ballast"
	"mdworkbench/internal/config"
	"mdworkbench/internal/driver"
	"mdworkbench/internal/metrics"
	"mdworkbench/pkg/group"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run does the actual work and returns the process exit code, so main
// itself stays a one-liner and the exit logic is testable in isolation.
func run(args []string) int {
	// 1. Parse configuration flags.
	cfg, _, err := config.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mdworkbench: %v\n", err)
		return 1
	}

	// 2. Build the backend registry. Every reference backend is registered
	// unconditionally so --interface list always shows the full set; redis
	// falls back to a placeholder endpoint for listing purposes only and is
	// never contacted unless --interface redis is actually selected.
	reg := newRegistry(cfg)

	if cfg.BackendName == "list" {
		for _, name := range reg.Names() {
			fmt.Println(name)
		}
		return 0
	}

	// 3. Spawn one goroutine rank per cfg.Ranks over the in-process group,
	// since no real multi-host transport exists yet (see pkg/group).
	ranks := group.NewLocal(cfg.Ranks)
	errs := make([]error, cfg.Ranks)
	var wg sync.WaitGroup
	for r := range ranks {
		r := r
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[r] = runRank(ranks[r], reg, &cfg)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			fmt.Fprintf(os.Stderr, "mdworkbench: %v\n", err)
			return 1
		}
	}
	return 0
}

// runRank resolves the configured backend and runs one Driver for g,
// starting the Prometheus endpoint on rank 0 when --metrics-addr is set.
func runRank(g group.Group, reg *backend.Registry, cfg *config.Config) error {
	b, err := driver.ResolveOrAbort(g, reg, cfg.BackendName, nil)
	if err != nil {
		return err
	}

	var rec *metrics.Recorder
	if g.Rank() == 0 && cfg.MetricsAddr != "" {
		rec = metrics.Start(cfg.MetricsAddr)
		defer func() {
			if rec != nil {
				_ = rec.Stop(context.Background())
			}
		}()
	}

	ball := ballast.New(ballast.NewProcMeminfoReader())
	d := driver.New(g, b, cfg, ball, group.MonotonicClock{})
	d.Metrics = rec
	return d.Run(context.Background())
}

// newRegistry builds the backend set every rank resolves against. The
// posix backend is rooted at cfg.RootDir; the redis backend is rooted at
// cfg.RedisAddrs, falling back to a single placeholder endpoint so it can
// still be listed before an operator has chosen it.
func newRegistry(cfg config.Config) *backend.Registry {
	reg := backend.NewRegistry()
	reg.Register(backend.NewDummy())
	reg.Register(backend.NewPosix(cfg.RootDir))

	addrs := splitAddrs(cfg.RedisAddrs)
	if len(addrs) == 0 {
		addrs = []string{"localhost:6379"}
	}
	if redisBackend, err := backend.NewRedis(addrs); err == nil {
		reg.Register(redisBackend)
	}
	return reg
}

func splitAddrs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			addrs = append(addrs, p)
		}
	}
	return addrs
}
