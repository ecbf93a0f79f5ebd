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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Posix stores datasets as directories and objects as files under a root
// directory, mirroring the original project's primary backend.
type Posix struct {
	Root string

	createdRoot bool
}

// NewPosix returns a Posix backend rooted at dir.
func NewPosix(dir string) *Posix {
	return &Posix{Root: dir}
}

func (p *Posix) Name() string { return "posix" }

func (p *Posix) Options() []OptionDescriptor {
	return []OptionDescriptor{
		{Name: "root-dir", Help: "root directory for the posix backend"},
	}
}

func (p *Posix) Initialize(ctx context.Context) error { return nil }
func (p *Posix) Finalize(ctx context.Context) error   { return nil }

func (p *Posix) PrepareGlobal(ctx context.Context) (Status, error) {
	if err := os.Mkdir(p.Root, 0o755); err != nil {
		if !errors.Is(err, os.ErrExist) {
			return ErrorUnknown, err
		}
		entries, rerr := os.ReadDir(p.Root)
		if rerr != nil {
			return ErrorUnknown, rerr
		}
		if len(entries) != 0 {
			return ErrorUnknown, fmt.Errorf("posix: root directory %s exists and is not empty", p.Root)
		}
		return Success, nil
	}
	p.createdRoot = true
	return Success, nil
}

func (p *Posix) PurgeGlobal(ctx context.Context) (Status, error) {
	_ = os.Remove(p.indexPath())
	if !p.createdRoot {
		return Success, nil
	}
	if err := os.Remove(p.Root); err != nil {
		return ErrorUnknown, err
	}
	return Success, nil
}

func (p *Posix) indexPath() string {
	return filepath.Join(p.Root, "index")
}

func (p *Posix) GetIndex(ctx context.Context) (int, error) {
	data, err := os.ReadFile(p.indexPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.Atoi(string(data))
}

func (p *Posix) PutIndex(ctx context.Context, index int) error {
	return os.WriteFile(p.indexPath(), []byte(strconv.Itoa(index)), 0o644)
}

func (p *Posix) NameOfDataset(rank, d int) string {
	return filepath.Join(p.Root, fmt.Sprintf("%d_%d", rank, d))
}

func (p *Posix) CreateDataset(ctx context.Context, name string) (Status, error) {
	if err := os.Mkdir(name, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrorCreate, nil
		}
		return ErrorCreate, nil
	}
	return Success, nil
}

func (p *Posix) RemoveDataset(ctx context.Context, name string) (Status, error) {
	if err := os.Remove(name); err != nil {
		return ErrorUnknown, nil
	}
	return Success, nil
}

func (p *Posix) NameOfObject(rank, d, i int) string {
	return fmt.Sprintf("file-%d", i)
}

func (p *Posix) objectPath(dataset, name string) string {
	return filepath.Join(dataset, name)
}

func (p *Posix) WriteObject(ctx context.Context, dataset, name string, buf []byte) (Status, error) {
	f, err := os.OpenFile(p.objectPath(dataset, name), os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return ErrorCreate, nil
	}
	defer f.Close()
	if _, err := f.Write(buf); err != nil {
		return ErrorUnknown, err
	}
	return Success, nil
}

func (p *Posix) ReadObject(ctx context.Context, dataset, name string, buf []byte) (Status, error) {
	f, err := os.Open(p.objectPath(dataset, name))
	if err != nil {
		return ErrorFind, nil
	}
	defer f.Close()
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n:])
		n += m
		if err != nil {
			if n == len(buf) {
				break
			}
			return ErrorUnknown, err
		}
	}
	return Success, nil
}

func (p *Posix) StatObject(ctx context.Context, dataset, name string, expectedLen int) (Status, error) {
	info, err := os.Stat(p.objectPath(dataset, name))
	if err != nil {
		return ErrorFind, nil
	}
	if int(info.Size()) != expectedLen {
		return ErrorUnknown, nil
	}
	return Success, nil
}

func (p *Posix) DeleteObject(ctx context.Context, dataset, name string) (Status, error) {
	if err := os.Remove(p.objectPath(dataset, name)); err != nil {
		return ErrorUnknown, nil
	}
	return Success, nil
}
