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

// Package graph implements the graph builder and entity reader over a
// pluggable Client; the graph database driver itself is an external
// collaborator supplied by the caller.
package graph

import (
	"context"
	"time"

	"github.com/kadirpekel/socialsim/pkg/ontology"
)

// Node is a graph node as returned by the backend.
type Node struct {
	UUID       string
	Name       string
	Labels     []string
	Attributes map[string]any
}

// Edge is a graph edge as returned by the backend. ValidAt/InvalidAt are
// populated only if the backend exposes temporal validity.
type Edge struct {
	UUID       string
	SourceUUID string
	TargetUUID string
	Name       string
	Fact       string
	Attributes map[string]any
	ValidAt    *time.Time
	InvalidAt  *time.Time
}

// Client abstracts the external graph backend. Implementations do not retry
// internally: Builder and Reader wrap each call in pkg/retry at the call
// site, while pkg/memory calls GetNodes/UpsertEntity/UpsertRelationship
// directly and retries the whole batch itself.
type Client interface {
	CreateGraph(ctx context.Context, name string) (graphID string, err error)
	SetOntology(ctx context.Context, graphID string, o *ontology.Ontology) error
	IngestEpisode(ctx context.Context, graphID, text string) (episodeUUID string, err error)
	EpisodeProcessed(ctx context.Context, graphID, episodeUUID string) (processed bool, err error)
	GetNodes(ctx context.Context, graphID string) ([]Node, error)
	GetEdges(ctx context.Context, graphID string) ([]Edge, error)
	UpsertEntity(ctx context.Context, graphID string, node Node) error
	UpsertRelationship(ctx context.Context, graphID string, edge Edge) error
	SearchNodes(ctx context.Context, graphID, query string, limit int) ([]Node, error)
	SearchEdges(ctx context.Context, graphID, query string, limit int) ([]Edge, error)
}
