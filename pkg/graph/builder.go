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

package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/kadirpekel/socialsim/pkg/ontology"
	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/retry"
)

// PartialFailurePolicy selects how a chunk ingestion failure is handled.
type PartialFailurePolicy string

const (
	// AbortAll fails the whole build on any chunk-level error. Episodes
	// already ingested are left behind; no rollback is attempted. This is
	// the default.
	AbortAll PartialFailurePolicy = "abort_all"
	// KeepPartial skips the failed chunk and continues, leaving a stable
	// partial graph behind.
	KeepPartial PartialFailurePolicy = "keep_partial"
)

// BuildParams are the inputs to Builder.Build.
type BuildParams struct {
	Ontology             *ontology.Ontology
	Text                 string
	GraphName            string
	ChunkSize            int
	ChunkOverlap         int
	BatchSize            int
	PartialFailurePolicy PartialFailurePolicy

	// BatchSpacing is the minimum spacing between ingestion batches to
	// respect upstream rate limits. Defaults to 1s.
	BatchSpacing time.Duration
	// PollInterval is how often episode-processed status is polled.
	// Defaults to 3s.
	PollInterval time.Duration
	// PollTimeout bounds the total wait for all episodes to process.
	// Defaults to 600s.
	PollTimeout time.Duration
}

func (p *BuildParams) setDefaults() {
	if p.BatchSpacing == 0 {
		p.BatchSpacing = time.Second
	}
	if p.PollInterval == 0 {
		p.PollInterval = 3 * time.Second
	}
	if p.PollTimeout == 0 {
		p.PollTimeout = 600 * time.Second
	}
	if p.PartialFailurePolicy == "" {
		p.PartialFailurePolicy = AbortAll
	}
}

// BuildResult is the outcome of a successful build.
type BuildResult struct {
	GraphID     string
	NodeCount   int
	EdgeCount   int
	EntityTypes []string
	Nodes       []Node
	Edges       []Edge
}

// Progress reports a percent-complete band update as a build stage
// advances.
type Progress func(percent int, message string)

func noopProgress(int, string) {}

// Builder creates and populates a knowledge graph from document text.
type Builder struct {
	client Client
}

// NewBuilder creates a Builder over the given graph backend client.
func NewBuilder(client Client) *Builder {
	return &Builder{client: client}
}

// Build runs the linear build pipeline, emitting progress in
// bands as it goes, and returns the resulting graph id and node/edge
// snapshot.
func (b *Builder) Build(ctx context.Context, p BuildParams, progress Progress) (*BuildResult, error) {
	p.setDefaults()
	if progress == nil {
		progress = noopProgress
	}

	// 1. Create graph (5-10%)
	progress(5, "creating graph")
	graphID, err := retry.CallWithRetry(ctx, "graph.create", retry.DefaultOptions(),
		func(ctx context.Context, _ int) (string, error) {
			return b.client.CreateGraph(ctx, p.GraphName)
		})
	if err != nil {
		return nil, orcherrors.Transientf("graph.build.create", err, "failed to create graph %q", p.GraphName)
	}
	progress(10, "graph created")

	// 2. Set ontology (10-15%)
	progress(10, "registering ontology")
	_, err = retry.CallWithRetry(ctx, "graph.set_ontology", retry.DefaultOptions(),
		func(ctx context.Context, _ int) (struct{}, error) {
			return struct{}{}, b.client.SetOntology(ctx, graphID, p.Ontology)
		})
	if err != nil {
		return nil, orcherrors.Transientf("graph.build.set_ontology", err, "failed to register ontology on graph %s", graphID)
	}
	progress(15, "ontology registered")

	// 3. Chunk text (~15%)
	chunks := Chunk(p.Text, p.ChunkSize, p.ChunkOverlap)
	progress(15, fmt.Sprintf("split text into %d chunks", len(chunks)))

	// 4. Ingest in batches (15-55%)
	episodeUUIDs, err := b.ingest(ctx, graphID, chunks, p, progress)
	if err != nil {
		return nil, err
	}

	// 5. Poll each episode until processed or timeout (55-90%)
	if err := b.waitProcessed(ctx, graphID, episodeUUIDs, p, progress); err != nil {
		return nil, err
	}

	// 6. Fetch nodes and edges (90-100%)
	progress(90, "fetching graph snapshot")
	nodes, err := retry.CallWithRetry(ctx, "graph.get_nodes", retry.DefaultOptions(),
		func(ctx context.Context, _ int) ([]Node, error) {
			return b.client.GetNodes(ctx, graphID)
		})
	if err != nil {
		return nil, orcherrors.Transientf("graph.build.get_nodes", err, "failed to fetch nodes for graph %s", graphID)
	}
	edges, err := retry.CallWithRetry(ctx, "graph.get_edges", retry.DefaultOptions(),
		func(ctx context.Context, _ int) ([]Edge, error) {
			return b.client.GetEdges(ctx, graphID)
		})
	if err != nil {
		return nil, orcherrors.Transientf("graph.build.get_edges", err, "failed to fetch edges for graph %s", graphID)
	}

	entityTypes := make([]string, len(p.Ontology.EntityTypes))
	for i, et := range p.Ontology.EntityTypes {
		entityTypes[i] = et.Name
	}

	progress(100, "graph build complete")
	return &BuildResult{
		GraphID:     graphID,
		NodeCount:   len(nodes),
		EdgeCount:   len(edges),
		EntityTypes: entityTypes,
		Nodes:       nodes,
		Edges:       edges,
	}, nil
}

func (b *Builder) ingest(ctx context.Context, graphID string, chunks []string, p BuildParams, progress Progress) ([]string, error) {
	var episodeUUIDs []string
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	total := len(chunks)
	for i := 0; i < total; i += batchSize {
		end := min(i+batchSize, total)
		batch := chunks[i:end]

		for _, chunk := range batch {
			episodeUUID, err := retry.CallWithRetry(ctx, "graph.ingest_episode", retry.DefaultOptions(),
				func(ctx context.Context, _ int) (string, error) {
					return b.client.IngestEpisode(ctx, graphID, chunk)
				})
			if err != nil {
				if p.PartialFailurePolicy == KeepPartial {
					continue
				}
				return nil, orcherrors.Transientf("graph.build.ingest", err, "chunk ingestion failed, aborting build")
			}
			episodeUUIDs = append(episodeUUIDs, episodeUUID)
		}

		pct := 15 + int(40*float64(end)/float64(total))
		progress(pct, fmt.Sprintf("ingested %d/%d chunks", end, total))

		if end < total {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.BatchSpacing):
			}
		}
	}

	return episodeUUIDs, nil
}

func (b *Builder) waitProcessed(ctx context.Context, graphID string, episodeUUIDs []string, p BuildParams, progress Progress) error {
	deadline := time.Now().Add(p.PollTimeout)
	total := len(episodeUUIDs)
	if total == 0 {
		progress(90, "no episodes to process")
		return nil
	}

	pending := make(map[string]bool, total)
	for _, id := range episodeUUIDs {
		pending[id] = true
	}

	for len(pending) > 0 {
		if time.Now().After(deadline) {
			if p.PartialFailurePolicy == KeepPartial {
				break
			}
			return orcherrors.Transientf("graph.build.wait_processed", nil, "timed out waiting for %d episode(s) to process", len(pending))
		}

		for id := range pending {
			processed, err := retry.CallWithRetry(ctx, "graph.episode_status", retry.DefaultOptions(),
				func(ctx context.Context, _ int) (bool, error) {
					return b.client.EpisodeProcessed(ctx, graphID, id)
				})
			if err != nil {
				if p.PartialFailurePolicy == KeepPartial {
					delete(pending, id)
					continue
				}
				return orcherrors.Transientf("graph.build.wait_processed", err, "failed to poll episode %s", id)
			}
			if processed {
				delete(pending, id)
			}
		}

		if len(pending) == 0 {
			break
		}

		done := total - len(pending)
		pct := 55 + int(35*float64(done)/float64(total))
		progress(pct, fmt.Sprintf("processed %d/%d episodes", done, total))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.PollInterval):
		}
	}

	progress(90, "all episodes processed")
	return nil
}
