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

import "time"

// MonotonicClock implements Clock using time.Now, which on every platform
// Go supports is backed by the monotonic clock reading.
type MonotonicClock struct{}

func (MonotonicClock) Now() Timer {
	return monotonicTimer{start: time.Now()}
}

type monotonicTimer struct {
	start time.Time
}

func (t monotonicTimer) Elapsed() float64 {
	return time.Since(t.start).Seconds()
}
