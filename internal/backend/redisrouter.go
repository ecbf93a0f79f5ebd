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
	"github.com/dgryski/go-rendezvous"
)

// shardRouter picks one of several Redis endpoints for a given dataset
// name using rendezvous hashing, so a dataset's objects all land on the
// same shard while shards stay balanced as endpoints are added or removed.
type shardRouter struct {
	addrs []string
	rdv   *rendezvous.Rendezvous
}

func newShardRouter(addrs []string) *shardRouter {
	r := rendezvous.New(addrs, rendezvousHash)
	return &shardRouter{addrs: addrs, rdv: r}
}

func (s *shardRouter) shardFor(key string) string {
	if len(s.addrs) == 1 {
		return s.addrs[0]
	}
	return s.rdv.Lookup(key)
}

// rendezvousHash is the hash function go-rendezvous needs; FNV-1a is
// cheap and has good avalanche behaviour for short ASCII keys.
func rendezvousHash(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
