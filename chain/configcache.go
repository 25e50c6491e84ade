// Copyright 2026 Kestrel Labs
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

package chain

import (
	"context"
	"sync"
)

// ConfigCache is a process-scoped cache of the chain configuration. The
// configuration is immutable for a given chain deployment, so it is
// fetched lazily once and thereafter read-only.
type ConfigCache struct {
	mu  sync.Mutex
	cfg *Config
}

func NewConfigCache() *ConfigCache {
	return &ConfigCache{}
}

// Get returns the cached configuration, calling fetch on first use. A
// failed fetch leaves the cache empty so the next call retries.
func (c *ConfigCache) Get(
	ctx context.Context,
	fetch func(context.Context) (*Config, error),
) (*Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}
