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

package backend

import (
	"context"
	"fmt"
	"sync"
)

// Dummy is an in-memory backend with no external dependency, used for
// tests and smoke runs. Objects live in a map keyed by "dataset/name".
type Dummy struct {
	mu      sync.Mutex
	objects map[string][]byte
	dsets   map[string]bool
	index   int

	// FailWrite, when set, makes WriteObject return this status for every
	// call instead of succeeding; used to exercise the error paths of
	// S3-style fault injection in tests.
	FailWrite Status
}

// NewDummy returns a ready-to-use in-memory backend.
func NewDummy() *Dummy {
	return &Dummy{
		objects: make(map[string][]byte),
		dsets:   make(map[string]bool),
	}
}

func (d *Dummy) Name() string { return "dummy" }

func (d *Dummy) Initialize(ctx context.Context) error { return nil }
func (d *Dummy) Finalize(ctx context.Context) error   { return nil }

func (d *Dummy) PrepareGlobal(ctx context.Context) (Status, error) { return Success, nil }
func (d *Dummy) PurgeGlobal(ctx context.Context) (Status, error)   { return Success, nil }

func (d *Dummy) GetIndex(ctx context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.index, nil
}

func (d *Dummy) PutIndex(ctx context.Context, index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index = index
	return nil
}

func (d *Dummy) NameOfDataset(rank, dset int) string {
	return fmt.Sprintf("%d_%d", rank, dset)
}

func (d *Dummy) CreateDataset(ctx context.Context, name string) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dsets[name] = true
	return Success, nil
}

func (d *Dummy) RemoveDataset(ctx context.Context, name string) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dsets[name] {
		return ErrorFind, nil
	}
	delete(d.dsets, name)
	return Success, nil
}

func (d *Dummy) NameOfObject(rank, dset, i int) string {
	return fmt.Sprintf("file-%d", i)
}

func (d *Dummy) key(dataset, name string) string {
	return dataset + "/" + name
}

func (d *Dummy) WriteObject(ctx context.Context, dataset, name string, buf []byte) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailWrite != Success {
		return d.FailWrite, nil
	}
	cp := append([]byte(nil), buf...)
	d.objects[d.key(dataset, name)] = cp
	return Success, nil
}

func (d *Dummy) ReadObject(ctx context.Context, dataset, name string, buf []byte) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	stored, ok := d.objects[d.key(dataset, name)]
	if !ok {
		return ErrorFind, nil
	}
	n := copy(buf, stored)
	if n != len(buf) {
		return ErrorUnknown, nil
	}
	return Success, nil
}

func (d *Dummy) StatObject(ctx context.Context, dataset, name string, expectedLen int) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	stored, ok := d.objects[d.key(dataset, name)]
	if !ok {
		return ErrorFind, nil
	}
	if len(stored) != expectedLen {
		return ErrorUnknown, nil
	}
	return Success, nil
}

func (d *Dummy) DeleteObject(ctx context.Context, dataset, name string) (Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := d.key(dataset, name)
	if _, ok := d.objects[k]; !ok {
		return ErrorFind, nil
	}
	delete(d.objects, k)
	return Success, nil
}
