package blobstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/serialx/hashring"
)

// ShardedStore spreads keys over several stores with a consistent hash ring,
// so adding a node moves only a fraction of the keys.
type ShardedStore struct {
	ring   *hashring.HashRing
	shards map[string]Store
	names  []string
}

// NewShardedStore hashes keys over shards, keyed by node name.
func NewShardedStore(shards map[string]Store) (*ShardedStore, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("sharded store needs at least one shard")
	}
	names := make([]string, 0, len(shards))
	for name := range shards {
		names = append(names, name)
	}
	sort.Strings(names)
	return &ShardedStore{ring: hashring.New(names), shards: shards, names: names}, nil
}

// ShardedOpener opens container on every node and shards over the results.
func ShardedOpener(nodes map[string]Opener) Opener {
	return func(ctx context.Context, container string) (Store, error) {
		shards := make(map[string]Store, len(nodes))
		for name, open := range nodes {
			s, err := open(ctx, container)
			if err != nil {
				return nil, fmt.Errorf("could not open %s on %s: %w", container, name, err)
			}
			shards[name] = s
		}
		return NewShardedStore(shards)
	}
}

func (s *ShardedStore) shard(key string) Store {
	name, ok := s.ring.GetNode(key)
	if !ok {
		name = s.names[0]
	}
	return s.shards[name]
}

// Node names the shard key lives on.
func (s *ShardedStore) Node(key string) string {
	name, _ := s.ring.GetNode(key)
	return name
}

func (s *ShardedStore) Get(ctx context.Context, key string) ([]byte, error) {
	return s.shard(key).Get(ctx, key)
}

func (s *ShardedStore) Put(ctx context.Context, key string, value []byte) error {
	return s.shard(key).Put(ctx, key, value)
}

// PutTTL falls back to Put on shards without expiry.
func (s *ShardedStore) PutTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	shard := s.shard(key)
	if ts, ok := shard.(TTLStore); ok {
		return ts.PutTTL(ctx, key, value, ttl)
	}
	return shard.Put(ctx, key, value)
}

func (s *ShardedStore) Delete(ctx context.Context, key string) error {
	return s.shard(key).Delete(ctx, key)
}

// List asks every shard and returns the keys sorted.
func (s *ShardedStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for _, name := range s.names {
		k, err := s.shards[name].List(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		keys = append(keys, k...)
	}
	sort.Strings(keys)
	return keys, nil
}
