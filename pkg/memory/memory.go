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

// Package memory implements the graph memory updater: a per-simulation
// single-producer/single-consumer pipeline that renders agent actions into
// episode text and upserts entities/relationships extracted from it into
// the graph.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/socialsim/pkg/graph"
	"github.com/kadirpekel/socialsim/pkg/llm"
)

// BatchSize is how many activities a platform's buffer holds before it
// is sent (flush sends regardless of size).
const BatchSize = 5

// SendInterval is how long the worker sleeps between sends to avoid
// backend bursts.
const SendInterval = 500 * time.Millisecond

// sendRetries/sendRetryDelay give batch sends up to 3 retries (4 attempts
// in all) with linear backoff. Deliberately not pkg/retry: that helper's backoff is
// exponential, and batch sends want a flat, predictable cadence.
const (
	sendRetries    = 3
	sendRetryDelay = 1 * time.Second
)

// AgentActivity is one action forwarded by the monitor loop.
type AgentActivity struct {
	Platform   string
	AgentID    int
	AgentName  string
	ActionType string
	ActionArgs map[string]any
	Round      int
	Timestamp  time.Time
}

// DoNothingActionType marks actions dropped at enqueue time.
const DoNothingActionType = "DO_NOTHING"

// renderEpisodeLine turns one activity into a natural-language line, e.g.
// `"alice: posted \"hello world\""`. Verb phrasing is kept simple and
// generic since the action vocabulary itself is defined by the external
// simulation binary, not this package.
func renderEpisodeLine(a AgentActivity) string {
	verb := verbPhrase(a)
	return fmt.Sprintf("%s: %s", a.AgentName, verb)
}

func verbPhrase(a AgentActivity) string {
	switch strings.ToLower(a.ActionType) {
	case "post", "create_post":
		return fmt.Sprintf("posted %q", contentOf(a.ActionArgs))
	case "reply", "comment":
		return fmt.Sprintf("replied %q to %s", contentOf(a.ActionArgs), authorOf(a.ActionArgs))
	case "like":
		return fmt.Sprintf("liked a post by %s", authorOf(a.ActionArgs))
	case "repost", "retweet", "share":
		return fmt.Sprintf("shared a post by %s", authorOf(a.ActionArgs))
	case "follow":
		return fmt.Sprintf("followed %s", authorOf(a.ActionArgs))
	default:
		return fmt.Sprintf("performed %s", a.ActionType)
	}
}

func contentOf(args map[string]any) string {
	for _, key := range []string{"content", "text", "body", "message"} {
		if v, ok := args[key].(string); ok {
			return v
		}
	}
	return ""
}

func authorOf(args map[string]any) string {
	for _, key := range []string{"author", "author_name", "target_name", "target"} {
		if v, ok := args[key].(string); ok {
			return v
		}
	}
	return "another agent"
}

// renderBatch joins a platform's batch into one episode text.
func renderBatch(batch []AgentActivity) string {
	lines := make([]string, len(batch))
	for i, a := range batch {
		lines[i] = renderEpisodeLine(a)
	}
	return strings.Join(lines, "\n")
}

// extractedEntity is the LLM extractor's output shape for one entity found
// in an episode.
type extractedEntity struct {
	Name          string         `json:"name"`
	Labels        []string       `json:"labels"`
	Attributes    map[string]any `json:"attributes"`
	Relationships []extractedRel `json:"relationships"`
}

type extractedRel struct {
	TargetName string         `json:"target_name"`
	Name       string         `json:"name"`
	Fact       string         `json:"fact"`
	Attributes map[string]any `json:"attributes"`
}

// upsertExtracted applies one extracted entity (and its relationships) to
// the graph: existing entities matched by (graph_id, name) are updated;
// new ones are created with labels GraphNode + the entity's own labels.
func upsertExtracted(ctx context.Context, client graph.Client, graphID string, entities []extractedEntity, now time.Time) error {
	byName := map[string]graph.Node{}
	existing, err := client.GetNodes(ctx, graphID)
	if err == nil {
		for _, n := range existing {
			byName[n.Name] = n
		}
	}

	for _, e := range entities {
		labels := append([]string{"GraphNode"}, e.Labels...)
		node := graph.Node{Name: e.Name, Labels: labels, Attributes: e.Attributes}
		if prior, ok := byName[e.Name]; ok {
			node.UUID = prior.UUID
		}
		if node.Attributes == nil {
			node.Attributes = map[string]any{}
		}
		node.Attributes["updated_at"] = now

		if err := client.UpsertEntity(ctx, graphID, node); err != nil {
			return err
		}

		for _, rel := range e.Relationships {
			edge := graph.Edge{
				SourceUUID: node.UUID,
				Name:       rel.Name,
				Fact:       rel.Fact,
				Attributes: rel.Attributes,
			}
			if target, ok := byName[rel.TargetName]; ok {
				edge.TargetUUID = target.UUID
			}
			if err := client.UpsertRelationship(ctx, graphID, edge); err != nil {
				return err
			}
		}
	}
	return nil
}

// extractEntities calls the LLM entity extractor over an episode's text.
func extractEntities(ctx context.Context, client llm.Client, episodeText string) ([]extractedEntity, error) {
	resp, err := client.Complete(ctx, llm.Request{
		System:             entityExtractionSystemPrompt,
		Prompt:             episodeText,
		Temperature:        0.2,
		ResponseFormatJSON: true,
	})
	if err != nil {
		return nil, err
	}
	return parseExtractedEntities(resp)
}

const entityExtractionSystemPrompt = "Extract named entities and their relationships mentioned in the following social-media activity log. " +
	"Respond with a JSON object {\"entities\": [{\"name\", \"labels\", \"attributes\", \"relationships\": [{\"target_name\", \"name\", \"fact\", \"attributes\"}]}]}."
