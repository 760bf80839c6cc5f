// Copyright 2025 Kadir Pekel
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

package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/consul/api"
)

// ConsulProvider loads configuration from a Consul KV key and watches it
// with Consul's blocking-query long-poll mechanism.
type ConsulProvider struct {
	client *api.Client
	key    string

	mu       sync.Mutex
	closed   bool
	cancelWg sync.WaitGroup
}

// NewConsulProvider creates a provider backed by a single Consul KV key.
func NewConsulProvider(endpoint, key string) (*ConsulProvider, error) {
	if key == "" {
		return nil, fmt.Errorf("consul key is required")
	}

	cfg := api.DefaultConfig()
	if endpoint != "" {
		cfg.Address = endpoint
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client for %s: %w", cfg.Address, err)
	}

	return &ConsulProvider{client: client, key: key}, nil
}

// Type returns TypeConsul.
func (p *ConsulProvider) Type() Type {
	return TypeConsul
}

// Load reads the raw value stored at the configured key.
func (p *ConsulProvider) Load(ctx context.Context) ([]byte, error) {
	pair, _, err := p.client.KV().Get(p.key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to read consul key %s: %w", p.key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("consul key %s not found", p.key)
	}
	return pair.Value, nil
}

// Watch issues blocking queries against the key and signals on every new
// ModifyIndex until ctx is cancelled.
func (p *ConsulProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	p.cancelWg.Add(1)
	go func() {
		defer p.cancelWg.Done()
		defer close(ch)

		var lastIndex uint64
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			pair, meta, err := p.client.KV().Get(p.key, (&api.QueryOptions{
				WaitIndex: lastIndex,
			}).WithContext(ctx))
			if err != nil {
				// Blocking query interrupted by ctx cancellation; loop will exit above.
				continue
			}
			if pair == nil {
				continue
			}
			if lastIndex != 0 && meta.LastIndex != lastIndex {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
			lastIndex = meta.LastIndex
		}
	}()

	return ch, nil
}

// Close releases resources; in-flight blocking queries unwind when their
// context is cancelled by the caller.
func (p *ConsulProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

var _ Provider = (*ConsulProvider)(nil)
