package metastore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/consul/api"
)

type consulStore struct {
	kv     *api.KV
	prefix string
}

func newConsulStore(cfg Config) (Store, error) {
	apiCfg := api.DefaultConfig()
	if cfg.ConsulAddr != "" {
		apiCfg.Address = cfg.ConsulAddr
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("init consul client: %w", err)
	}

	return &consulStore{kv: client.KV(), prefix: cfg.KeyPrefix}, nil
}

func (s *consulStore) Put(ctx context.Context, item Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	opts := (&api.WriteOptions{}).WithContext(ctx)
	_, err = s.kv.Put(&api.KVPair{Key: itemKey(s.prefix, item.ID), Value: payload}, opts)
	return err
}

func (s *consulStore) Get(ctx context.Context, id string) (Item, error) {
	opts := (&api.QueryOptions{RequireConsistent: true}).WithContext(ctx)
	pair, _, err := s.kv.Get(itemKey(s.prefix, id), opts)
	if err != nil {
		return Item{}, err
	}
	if pair == nil {
		return Item{}, ErrNotFound
	}

	var item Item
	if err := json.Unmarshal(pair.Value, &item); err != nil {
		return Item{}, fmt.Errorf("unmarshal item: %w", err)
	}
	return item, nil
}

func (s *consulStore) Close() error {
	return nil
}
