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

// Package backend defines the storage contract the phase engines drive and
// ships a small set of reference implementations (dummy, posix, redis).
package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Status is the closed set of outcomes a backend call may report.
type Status int

const (
	// Success indicates the operation completed as requested.
	Success Status = iota
	// NoOp indicates the backend does not model this concept (e.g. a flat
	// key space being asked to create a dataset) and did nothing; it never
	// counts against either successes or errors.
	NoOp
	// ErrorCreate indicates a create/write was refused or failed.
	ErrorCreate
	// ErrorFind indicates the target object or dataset does not exist.
	ErrorFind
	// ErrorUnknown indicates any other backend fault.
	ErrorUnknown
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case NoOp:
		return "no-op"
	case ErrorCreate:
		return "error-create"
	case ErrorFind:
		return "error-find"
	case ErrorUnknown:
		return "error-unknown"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Backend is the polymorphic storage contract consumed by the phase
// engines. Every operation is synchronous; a backend's own internal
// concurrency, if any, is its own concern.
type Backend interface {
	// Name identifies the backend in the registry.
	Name() string

	// Initialize performs per-process setup (connections, client state).
	// Called once after configuration is final.
	Initialize(ctx context.Context) error
	// Finalize tears down per-process setup.
	Finalize(ctx context.Context) error

	// PrepareGlobal performs rank-0-only global setup.
	PrepareGlobal(ctx context.Context) (Status, error)
	// PurgeGlobal performs rank-0-only global teardown.
	PurgeGlobal(ctx context.Context) (Status, error)

	// GetIndex retrieves the persisted resume index. Backends without a
	// ledger return 0, nil.
	GetIndex(ctx context.Context) (int, error)
	// PutIndex persists the resume index. Backends without a ledger treat
	// this as a no-op.
	PutIndex(ctx context.Context, index int) error

	// NameOfDataset returns the canonical dataset name for (rank, d).
	NameOfDataset(rank, d int) string
	// CreateDataset creates the dataset; flat backends may answer NoOp.
	CreateDataset(ctx context.Context, name string) (Status, error)
	// RemoveDataset removes the dataset; flat backends may answer NoOp.
	RemoveDataset(ctx context.Context, name string) (Status, error)

	// NameOfObject returns the canonical object name for (rank, d, i).
	NameOfObject(rank, d, i int) string
	// WriteObject writes exactly len(buf) bytes to name within dataset.
	WriteObject(ctx context.Context, dataset, name string, buf []byte) (Status, error)
	// ReadObject reads exactly len(buf) bytes from name within dataset.
	ReadObject(ctx context.Context, dataset, name string, buf []byte) (Status, error)
	// StatObject verifies the object exists, and where possible its size.
	StatObject(ctx context.Context, dataset, name string, expectedLen int) (Status, error)
	// DeleteObject removes the object.
	DeleteObject(ctx context.Context, dataset, name string) (Status, error)
}

// Options is the set of backend-specific flags a Backend advertises. It is
// descriptive only: neither the driver nor config.Parse reads it, and the
// matching flags are registered directly in config.Parse.
type Options interface {
	// Options returns one flag descriptor per backend-specific knob.
	Options() []OptionDescriptor
}

// OptionDescriptor names a single backend-specific flag; the caller
// decides how to register and bind it to the concrete backend value.
type OptionDescriptor struct {
	Name string
	Help string
}

// Registry is a process-wide, name-searched list of registered backends.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds b to the registry, keyed by b.Name(). Registering the same
// name twice replaces the previous entry.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Name()] = b
}

// Lookup returns the backend registered under name, or false if none is.
func (r *Registry) Lookup(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Names returns every registered backend name, sorted, for deterministic
// "list" output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
