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

	redis "github.com/redis/go-redis/v9"
)

const redisIndexKey = "mdworkbench:index"

// Redis stores datasets as key prefixes and objects as plain Redis
// strings, optionally sharded across multiple endpoints by dataset name.
type Redis struct {
	router  *shardRouter
	clients map[string]*redis.Client
}

// NewRedis builds a Redis backend pointed at the given "host:port"
// endpoints. A single endpoint behaves as an unsharded client.
func NewRedis(addrs []string) (*Redis, error) {
	if len(addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}
	clients := make(map[string]*redis.Client, len(addrs))
	for _, addr := range addrs {
		clients[addr] = redis.NewClient(&redis.Options{Addr: addr})
	}
	return &Redis{router: newShardRouter(addrs), clients: clients}, nil
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Options() []OptionDescriptor {
	return []OptionDescriptor{
		{Name: "redis-addrs", Help: "comma-separated host:port list of Redis endpoints"},
	}
}

func (r *Redis) clientFor(dataset string) *redis.Client {
	return r.clients[r.router.shardFor(dataset)]
}

func (r *Redis) Initialize(ctx context.Context) error {
	for addr, c := range r.clients {
		if err := c.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: ping %s: %w", addr, err)
		}
	}
	return nil
}

func (r *Redis) Finalize(ctx context.Context) error {
	for _, c := range r.clients {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Redis) PrepareGlobal(ctx context.Context) (Status, error) { return NoOp, nil }
func (r *Redis) PurgeGlobal(ctx context.Context) (Status, error)   { return NoOp, nil }

func (r *Redis) GetIndex(ctx context.Context) (int, error) {
	c := r.clientFor(redisIndexKey)
	val, err := c.Get(ctx, redisIndexKey).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func (r *Redis) PutIndex(ctx context.Context, index int) error {
	c := r.clientFor(redisIndexKey)
	return c.Set(ctx, redisIndexKey, index, 0).Err()
}

func (r *Redis) NameOfDataset(rank, d int) string {
	return fmt.Sprintf("%d_%d", rank, d)
}

// CreateDataset and RemoveDataset are no-ops: Redis's key space is flat,
// datasets exist only as a key prefix shared by their objects.
func (r *Redis) CreateDataset(ctx context.Context, name string) (Status, error) { return NoOp, nil }
func (r *Redis) RemoveDataset(ctx context.Context, name string) (Status, error) { return NoOp, nil }

func (r *Redis) NameOfObject(rank, d, i int) string {
	return fmt.Sprintf("file-%d", i)
}

func (r *Redis) objectKey(dataset, name string) string {
	return dataset + ":" + name
}

func (r *Redis) WriteObject(ctx context.Context, dataset, name string, buf []byte) (Status, error) {
	c := r.clientFor(dataset)
	if err := c.Set(ctx, r.objectKey(dataset, name), buf, 0).Err(); err != nil {
		return ErrorCreate, nil
	}
	return Success, nil
}

func (r *Redis) ReadObject(ctx context.Context, dataset, name string, buf []byte) (Status, error) {
	c := r.clientFor(dataset)
	data, err := c.Get(ctx, r.objectKey(dataset, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrorFind, nil
	}
	if err != nil {
		return ErrorUnknown, nil
	}
	if copy(buf, data) != len(buf) {
		return ErrorUnknown, nil
	}
	return Success, nil
}

func (r *Redis) StatObject(ctx context.Context, dataset, name string, expectedLen int) (Status, error) {
	c := r.clientFor(dataset)
	n, err := c.StrLen(ctx, r.objectKey(dataset, name)).Result()
	if err != nil {
		return ErrorUnknown, nil
	}
	if n == 0 {
		return ErrorFind, nil
	}
	if int(n) != expectedLen {
		return ErrorUnknown, nil
	}
	return Success, nil
}

func (r *Redis) DeleteObject(ctx context.Context, dataset, name string) (Status, error) {
	c := r.clientFor(dataset)
	n, err := c.Del(ctx, r.objectKey(dataset, name)).Result()
	if err != nil {
		return ErrorUnknown, nil
	}
	if n == 0 {
		return ErrorFind, nil
	}
	return Success, nil
}
