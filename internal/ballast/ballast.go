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

// Package ballast fills free RAM to a configured ceiling to suppress
// page-cache effects between phases, then releases it.
package ballast

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func readProcMeminfo() (string, error) {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FreeKBReader returns the current free-RAM estimate in KiB (MemFree +
// Cached + Buffers, as reported by /proc/meminfo). It is an interface so
// tests can inject a fake reader instead of depending on real machine
// state.
type FreeKBReader interface {
	FreeKB() (uint64, error)
}

// Ballast pre-allocates and releases a byte slice sized to bring free RAM
// down to a target ceiling. It is reversible: Release always returns the
// process to its pre-allocation footprint.
type Ballast struct {
	reader FreeKBReader
	buf    []byte
}

// New returns a Ballast that measures free RAM with reader.
func New(reader FreeKBReader) *Ballast {
	return &Ballast{reader: reader}
}

// Allocate grows the ballast until free RAM is at or below ceilingMiB. A
// ceilingMiB of 0 is a no-op, matching the original's "disabled" sentinel.
// Calling Allocate while a ballast is already held is an error.
func (b *Ballast) Allocate(ceilingMiB int) error {
	if ceilingMiB <= 0 {
		return nil
	}
	if b.buf != nil {
		return fmt.Errorf("ballast: already allocated")
	}
	ceilingKB := uint64(ceilingMiB) * 1024

	const chunkKB = 64 * 1024
	var total []byte
	for {
		freeKB, err := b.reader.FreeKB()
		if err != nil {
			return fmt.Errorf("ballast: reading free memory: %w", err)
		}
		if freeKB <= ceilingKB {
			break
		}
		delta := freeKB - ceilingKB
		toAllocKB := delta
		if toAllocKB > chunkKB {
			toAllocKB = chunkKB
		}
		chunk := make([]byte, toAllocKB*1024)
		for i := range chunk {
			chunk[i] = 1
		}
		total = append(total, chunk...)
	}
	b.buf = total
	return nil
}

// Release frees the ballast, if any was allocated.
func (b *Ballast) Release() {
	b.buf = nil
}

// ProcMeminfoReader reads free RAM from /proc/meminfo's MemFree, Cached
// and Buffers fields, as the original C implementation does.
type ProcMeminfoReader struct {
	Read func() (string, error)
}

// NewProcMeminfoReader returns a reader backed by the real /proc/meminfo.
func NewProcMeminfoReader() ProcMeminfoReader {
	return ProcMeminfoReader{Read: readProcMeminfo}
}

func (r ProcMeminfoReader) FreeKB() (uint64, error) {
	content, err := r.Read()
	if err != nil {
		return 0, err
	}
	memFree, err := meminfoField(content, "MemFree")
	if err != nil {
		return 0, err
	}
	cached, err := meminfoField(content, "Cached")
	if err != nil {
		return 0, err
	}
	buffers, err := meminfoField(content, "Buffers")
	if err != nil {
		return 0, err
	}
	return memFree + cached + buffers, nil
}

func meminfoField(content, name string) (uint64, error) {
	prefix := name + ":"
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, prefix))
		if len(fields) == 0 {
			return 0, fmt.Errorf("ballast: malformed %s line", name)
		}
		return strconv.ParseUint(fields[0], 10, 64)
	}
	return 0, fmt.Errorf("ballast: %s not found in /proc/meminfo", name)
}
