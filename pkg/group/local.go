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

package group

import (
	"context"
	"fmt"
	"sync"
)

// ErrAborted is returned by blocking Group calls once some rank in the
// group has called Abort; it unblocks ranks waiting on a collective that
// the aborting rank will never complete.
var ErrAborted = fmt.Errorf("group: aborted")

type mailboxKey struct {
	src, dest, tag int
}

// Local runs a whole group of ranks as goroutines inside a single process,
// communicating only through channels — useful for tests and for running
// the benchmark without a real multi-host transport.
type Local struct {
	hub  *localHub
	rank int
}

type localHub struct {
	size int

	barrierMu   sync.Mutex
	barrierN    int
	barrierDone chan struct{}

	maxMu   sync.Mutex
	maxN    int
	maxVals [][]float64
	maxDone chan struct{}
	maxOut  []float64

	sumMu   sync.Mutex
	sumN    int
	sumVals [][]int64
	sumDone chan struct{}
	sumOut  []int64

	mailMu  sync.Mutex
	mailbox map[mailboxKey]chan []byte

	abortOnce sync.Once
	abortCh   chan int
}

// NewLocal constructs size ranks of an in-process group sharing one hub.
func NewLocal(size int) []Group {
	if size < 1 {
		panic("group: size must be >= 1")
	}
	hub := &localHub{
		size:        size,
		barrierDone: make(chan struct{}),
		maxDone:     make(chan struct{}),
		sumDone:     make(chan struct{}),
		mailbox:     make(map[mailboxKey]chan []byte),
		abortCh:     make(chan int, size),
	}
	groups := make([]Group, size)
	for r := 0; r < size; r++ {
		groups[r] = &Local{hub: hub, rank: r}
	}
	return groups
}

func (l *Local) Rank() int { return l.rank }
func (l *Local) Size() int { return l.hub.size }

func (l *Local) Barrier(ctx context.Context) error {
	h := l.hub
	h.barrierMu.Lock()
	h.barrierN++
	done := h.barrierDone
	if h.barrierN == h.size {
		h.barrierN = 0
		h.barrierDone = make(chan struct{})
		close(done)
	}
	h.barrierMu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.abortCh:
		return ErrAborted
	}
}

func (l *Local) MaxReduce(ctx context.Context, values []float64) ([]float64, error) {
	h := l.hub
	h.maxMu.Lock()
	if h.maxVals == nil {
		h.maxVals = make([][]float64, h.size)
	}
	h.maxVals[l.rank] = values
	h.maxN++
	done := h.maxDone
	var result []float64
	if h.maxN == h.size {
		result = make([]float64, len(values))
		for i := range result {
			best := h.maxVals[0][i]
			for r := 1; r < h.size; r++ {
				if h.maxVals[r][i] > best {
					best = h.maxVals[r][i]
				}
			}
			result[i] = best
		}
		h.maxOut = result
		h.maxVals = nil
		h.maxN = 0
		h.maxDone = make(chan struct{})
		close(done)
	}
	h.maxMu.Unlock()
	if result != nil {
		if l.rank == 0 {
			return result, nil
		}
		return nil, nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.abortCh:
		return nil, ErrAborted
	}
	if l.rank != 0 {
		return nil, nil
	}
	h.maxMu.Lock()
	out := h.maxOut
	h.maxMu.Unlock()
	return out, nil
}

func (l *Local) SumReduce(ctx context.Context, values []int64) ([]int64, error) {
	h := l.hub
	h.sumMu.Lock()
	if h.sumVals == nil {
		h.sumVals = make([][]int64, h.size)
	}
	h.sumVals[l.rank] = values
	h.sumN++
	done := h.sumDone
	var result []int64
	if h.sumN == h.size {
		result = make([]int64, len(values))
		for i := range result {
			var total int64
			for r := 0; r < h.size; r++ {
				total += h.sumVals[r][i]
			}
			result[i] = total
		}
		h.sumOut = result
		h.sumVals = nil
		h.sumN = 0
		h.sumDone = make(chan struct{})
		close(done)
	}
	h.sumMu.Unlock()
	if result != nil {
		if l.rank == 0 {
			return result, nil
		}
		return nil, nil
	}
	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.abortCh:
		return nil, ErrAborted
	}
	if l.rank != 0 {
		return nil, nil
	}
	h.sumMu.Lock()
	out := h.sumOut
	h.sumMu.Unlock()
	return out, nil
}

func (l *Local) mailboxFor(src, dest, tag int) chan []byte {
	h := l.hub
	key := mailboxKey{src: src, dest: dest, tag: tag}
	h.mailMu.Lock()
	defer h.mailMu.Unlock()
	ch, ok := h.mailbox[key]
	if !ok {
		ch = make(chan []byte, 1)
		h.mailbox[key] = ch
	}
	return ch
}

func (l *Local) Send(ctx context.Context, dest int, tag int, buf []byte) error {
	h := l.hub
	ch := l.mailboxFor(l.rank, dest, tag)
	cp := append([]byte(nil), buf...)
	select {
	case ch <- cp:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.abortCh:
		return ErrAborted
	}
}

func (l *Local) Recv(ctx context.Context, src int, tag int) ([]byte, error) {
	h := l.hub
	ch := l.mailboxFor(src, l.rank, tag)
	select {
	case buf := <-ch:
		return buf, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.abortCh:
		return nil, ErrAborted
	}
}

func (l *Local) Abort(code int) error {
	l.hub.abortOnce.Do(func() {
		close(l.hub.abortCh)
	})
	return fmt.Errorf("group: rank %d called Abort(%d)", l.rank, code)
}
