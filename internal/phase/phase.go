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

// Package phase implements the three benchmark phases — precreate,
// steady-state and cleanup — as engines that loop over datasets and
// objects and drive a backend.Backend.
package phase

import (
	"fmt"

	"mdworkbench/internal/backend"
	"mdworkbench/internal/config"
	"mdworkbench/internal/stats"
	"mdworkbench/pkg/group"
)

// Deps bundles everything a phase engine needs: the backend under test,
// this process's rank/size, the shared write/read payload buffer, and
// where to report progress and errors.
type Deps struct {
	Backend backend.Backend
	Rank    int
	Size    int
	Cfg     *config.Config
	Bundle  *stats.Bundle
	Buf     []byte
	Clock   group.Clock
	Start   group.Timer

	// Printf receives verbosity/diagnostic output; defaults to fmt.Printf
	// via print if left nil.
	Printf func(format string, args ...any)
}

func (d *Deps) print(format string, args ...any) {
	if d.Printf != nil {
		d.Printf(format, args...)
		return
	}
	fmt.Printf(format, args...)
}

func (d *Deps) since() float64 {
	if d.Start == nil {
		return 0
	}
	return d.Start.Elapsed()
}

// AbortError signals that the phase hit a fatal condition and the caller
// must abort the whole group rather than merely count an error.
type AbortError struct {
	Err error
}

func (e *AbortError) Error() string { return e.Err.Error() }
func (e *AbortError) Unwrap() error { return e.Err }

func fatalf(format string, args ...any) error {
	return &AbortError{Err: fmt.Errorf(format, args...)}
}
