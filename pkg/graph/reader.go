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

	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/retry"
)

// structuralLabels are backend bookkeeping labels every node carries; a
// node whose labels are entirely structural is not a user-meaningful
// entity.
var structuralLabels = map[string]bool{"Entity": true, "Node": true, "GraphNode": true}

// NodeSummary is a minimal descriptor of the opposite endpoint of an edge,
// attached during enrichment.
type NodeSummary struct {
	UUID   string
	Name   string
	Labels []string
}

// FactContext is one fact attached to an entity during enrichment.
type FactContext struct {
	Fact      string
	Direction string // "outgoing" or "incoming"
	Other     NodeSummary
}

// Entity is a node kept by FilterDefined, classified to an entity type and
// optionally enriched with its adjacent facts.
type Entity struct {
	Node
	EntityType string
	Context    []FactContext
}

// FilteredEntities is the result of FilterDefined.
type FilteredEntities struct {
	Entities        []Entity
	EntityTypesSeen []string
	TotalCount      int
	FilteredCount   int
}

// Reader reads and filters a graph's nodes and edges.
type Reader struct {
	client Client
}

// NewReader creates a Reader over the given graph backend client.
func NewReader(client Client) *Reader {
	return &Reader{client: client}
}

// FilterDefined retrieves all nodes, discards purely structural ones,
// optionally narrows to definedTypes, and optionally enriches each kept
// node with its 1-hop edge/endpoint context.
func (r *Reader) FilterDefined(ctx context.Context, graphID string, definedTypes []string, enrich bool) (*FilteredEntities, error) {
	nodes, err := retry.CallWithRetry(ctx, "graph.get_nodes", retry.DefaultOptions(),
		func(ctx context.Context, _ int) ([]Node, error) {
			return r.client.GetNodes(ctx, graphID)
		})
	if err != nil {
		return nil, orcherrors.Transientf("graph.filter_defined", err, "failed to fetch nodes for graph %s", graphID)
	}

	definedSet := make(map[string]bool, len(definedTypes))
	for _, t := range definedTypes {
		definedSet[t] = true
	}

	var kept []Entity
	typesSeen := make(map[string]bool)

	for _, n := range nodes {
		custom := customLabels(n.Labels)
		if len(custom) == 0 {
			continue // purely structural node, not a user-meaningful entity
		}

		if len(definedSet) > 0 && !intersects(custom, definedSet) {
			continue
		}

		entityType := firstMatching(custom, definedSet)
		typesSeen[entityType] = true

		kept = append(kept, Entity{Node: n, EntityType: entityType})
	}

	if enrich && len(kept) > 0 {
		edges, err := retry.CallWithRetry(ctx, "graph.get_edges", retry.DefaultOptions(),
			func(ctx context.Context, _ int) ([]Edge, error) {
				return r.client.GetEdges(ctx, graphID)
			})
		if err != nil {
			return nil, orcherrors.Transientf("graph.filter_defined", err, "failed to fetch edges for graph %s", graphID)
		}

		nodeByUUID := make(map[string]Node, len(nodes))
		for _, n := range nodes {
			nodeByUUID[n.UUID] = n
		}

		for i := range kept {
			kept[i].Context = adjacentFacts(kept[i].UUID, edges, nodeByUUID)
		}
	}

	seen := make([]string, 0, len(typesSeen))
	for t := range typesSeen {
		seen = append(seen, t)
	}

	return &FilteredEntities{
		Entities:        kept,
		EntityTypesSeen: seen,
		TotalCount:      len(nodes),
		FilteredCount:   len(kept),
	}, nil
}

func customLabels(labels []string) []string {
	var out []string
	for _, l := range labels {
		if !structuralLabels[l] {
			out = append(out, l)
		}
	}
	return out
}

func intersects(labels []string, set map[string]bool) bool {
	for _, l := range labels {
		if set[l] {
			return true
		}
	}
	return false
}

// firstMatching returns the first label in labels present in definedSet, or
// the first custom label if definedSet is empty or none matches.
func firstMatching(labels []string, definedSet map[string]bool) string {
	if len(definedSet) > 0 {
		for _, l := range labels {
			if definedSet[l] {
				return l
			}
		}
	}
	if len(labels) > 0 {
		return labels[0]
	}
	return ""
}

func adjacentFacts(nodeUUID string, edges []Edge, nodeByUUID map[string]Node) []FactContext {
	var out []FactContext
	for _, e := range edges {
		switch nodeUUID {
		case e.SourceUUID:
			if other, ok := nodeByUUID[e.TargetUUID]; ok {
				out = append(out, FactContext{
					Fact:      e.Fact,
					Direction: "outgoing",
					Other:     NodeSummary{UUID: other.UUID, Name: other.Name, Labels: other.Labels},
				})
			}
		case e.TargetUUID:
			if other, ok := nodeByUUID[e.SourceUUID]; ok {
				out = append(out, FactContext{
					Fact:      e.Fact,
					Direction: "incoming",
					Other:     NodeSummary{UUID: other.UUID, Name: other.Name, Labels: other.Labels},
				})
			}
		}
	}
	return out
}

// String is a convenience formatter used by ProfileSynthesizer/ReportAgent
// when rendering an entity's facts into an LLM prompt.
func (f FactContext) String() string {
	return fmt.Sprintf("(%s) %s -> %s", f.Direction, f.Fact, f.Other.Name)
}
