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

// Package provider abstracts where raw configuration bytes come from: a
// local file, a Consul KV key, an etcd key, or a ZooKeeper znode. Every
// backend can optionally signal changes so the loader can hot-reload.
package provider

import (
	"context"
	"fmt"
)

// Type names a configuration backend.
type Type string

const (
	TypeFile      Type = "file"
	TypeConsul    Type = "consul"
	TypeEtcd      Type = "etcd"
	TypeZookeeper Type = "zookeeper"
)

// ParseType resolves a user-supplied backend name. An empty string means
// file.
func ParseType(s string) (Type, error) {
	switch s {
	case "file", "":
		return TypeFile, nil
	case "consul":
		return TypeConsul, nil
	case "etcd":
		return TypeEtcd, nil
	case "zookeeper", "zk":
		return TypeZookeeper, nil
	}
	return "", fmt.Errorf("unknown provider type: %s", s)
}

// Provider is one configuration backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	// Type identifies the backend, for log lines.
	Type() Type

	// Load reads the raw configuration bytes.
	Load(ctx context.Context) ([]byte, error)

	// Watch returns a channel that receives a value whenever the backend's
	// content changes, until ctx is cancelled. Backends that cannot watch
	// return a nil channel and no error.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases the backend's resources.
	Close() error
}

// Options selects and parameterizes a backend.
type Options struct {
	// Type selects the backend; empty means file.
	Type Type

	// Path is the file path, KV key, or znode path.
	Path string

	// Endpoints addresses the remote backends (consul, etcd, zookeeper).
	Endpoints []string
}

// New constructs the Provider Options selects.
func New(opts Options) (Provider, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	switch opts.Type {
	case TypeFile, "":
		return NewFileProvider(opts.Path)
	case TypeConsul:
		var endpoint string
		if len(opts.Endpoints) > 0 {
			endpoint = opts.Endpoints[0]
		}
		return NewConsulProvider(endpoint, opts.Path)
	case TypeEtcd:
		return NewEtcdProvider(opts.Endpoints, opts.Path)
	case TypeZookeeper:
		return NewZookeeperProvider(opts.Endpoints, opts.Path)
	}
	return nil, fmt.Errorf("unknown provider type: %s", opts.Type)
}
