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

// Package pattern computes the skewed writer/reader rank pairing that keeps
// every process writing to, and reading from, ranks other than itself.
package pattern

// WriteRank returns the rank that owns the object rank r writes to for
// dataset d, given the configured offset and group size.
func WriteRank(r, d, offset, size int) int {
	return mod(r+offset*(d+1), size)
}

// ReadRank returns the rank that owns the object rank r reads from for
// dataset d, the mirror image of WriteRank.
func ReadRank(r, d, offset, size int) int {
	return mod(r-offset*(d+1), size)
}

// mod is Euclidean modulo: always in [0, size).
func mod(v, size int) int {
	m := v % size
	if m < 0 {
		m += size
	}
	return m
}
