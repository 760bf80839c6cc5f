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

package simconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/kadirpekel/socialsim/pkg/graph"
	"github.com/kadirpekel/socialsim/pkg/llm"
	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/retry"
)

// agentBatchSize is the batching unit for the per-agent
// configuration LLM call.
const agentBatchSize = 15

// maxContextChars bounds the context passed to the time-config call.
const maxContextChars = 10_000

// posterTypeAliases resolves a requested poster_type to the agent-type
// aliases treated as equivalent.
var posterTypeAliases = map[string][]string{
	"official":         {"university", "governmentagency", "government"},
	"university":       {"official", "governmentagency", "government"},
	"governmentagency": {"official", "university", "government"},
	"government":       {"official", "university", "governmentagency"},
}

// Synthesizer generates a full simulation configuration.
type Synthesizer struct {
	client llm.Client
}

// NewSynthesizer creates a Synthesizer over the given LLM collaborator.
func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// Entity is the minimal shape Generate needs about each participating
// profile: its stable agent id,
// its source entity type, and its display name.
type Entity struct {
	AgentID    int
	EntityType string
	Name       string
}

// EntitiesFromGraph adapts graph.Entity + an AgentID assignment into the
// Entity shape Generate consumes.
func EntitiesFromGraph(entities []graph.Entity) []Entity {
	out := make([]Entity, len(entities))
	for i, e := range entities {
		out[i] = Entity{AgentID: i, EntityType: e.EntityType, Name: e.Name}
	}
	return out
}

// Generate runs the five synthesis steps in order and returns the
// assembled SimulationParameters. Each step degrades to rule-based
// defaults on exhausted retries rather than failing the whole call.
func (s *Synthesizer) Generate(ctx context.Context, entities []Entity, requirement string, useLLM bool) (*SimulationParameters, error) {
	if len(entities) == 0 {
		return nil, orcherrors.Validationf("simconfig.generate", "no entities to configure")
	}

	entityTypes := distinctTypes(entities)

	timeCfg := s.generateTimeConfig(ctx, len(entities), requirement, useLLM)
	eventCfg := s.generateEventConfig(ctx, entityTypes, requirement, useLLM)
	agentCfgs := s.generateAgentConfigs(ctx, entities, useLLM)

	assignInitialPosts(eventCfg, agentCfgs, entities)

	return &SimulationParameters{
		TimeConfig:   timeCfg,
		AgentConfigs: agentCfgs,
		EventConfig:  *eventCfg,
		Platforms:    DefaultPlatformConfigs(),
	}, nil
}

// --- Step 1: time config ---

func defaultTimeConfig(n int) TimeConfig {
	maxPerHour := n
	if maxPerHour > 50 {
		maxPerHour = 50
	}
	min := clampInt(maxPerHour/4, 1, n)
	return TimeConfig{
		TotalHours:       24,
		MinutesPerRound:  30,
		AgentsPerHourMin: min,
		AgentsPerHourMax: maxPerHour,
		HourBuckets:      DefaultHourlyActivityHints,
	}
}

func (s *Synthesizer) generateTimeConfig(ctx context.Context, n int, requirement string, useLLM bool) TimeConfig {
	def := defaultTimeConfig(n)
	if !useLLM || s.client == nil {
		return def
	}

	type rawTimeConfig struct {
		TotalHours       int          `mapstructure:"total_hours"`
		MinutesPerRound  int          `mapstructure:"minutes_per_round"`
		AgentsPerHourMin int          `mapstructure:"agents_per_hour_min"`
		AgentsPerHourMax int          `mapstructure:"agents_per_hour_max"`
		HourBuckets      []HourBucket `mapstructure:"hour_buckets"`
	}

	raw, err := retry.CallWithRetry(ctx, "simconfig.time", retry.DefaultOptions(),
		func(ctx context.Context, attempt int) (rawTimeConfig, error) {
			var out rawTimeConfig
			err := s.completeJSON(ctx, attempt,
				"You design the overall time structure of a social-media opinion simulation. Respond with a single JSON object.",
				timeConfigPrompt(n, requirement), &out)
			return out, err
		})
	if err != nil {
		return def
	}

	cfg := TimeConfig{
		TotalHours:       raw.TotalHours,
		MinutesPerRound:  raw.MinutesPerRound,
		AgentsPerHourMin: raw.AgentsPerHourMin,
		AgentsPerHourMax: raw.AgentsPerHourMax,
		HourBuckets:      raw.HourBuckets,
	}
	if cfg.TotalHours <= 0 {
		cfg.TotalHours = def.TotalHours
	}
	if cfg.MinutesPerRound <= 0 {
		cfg.MinutesPerRound = def.MinutesPerRound
	}
	if len(cfg.HourBuckets) == 0 {
		cfg.HourBuckets = def.HourBuckets
	}

	upperBound := int(0.9 * float64(n))
	if upperBound < 1 {
		upperBound = 1
	}
	cfg.AgentsPerHourMax = clampInt(cfg.AgentsPerHourMax, 1, upperBound)
	if cfg.AgentsPerHourMax == 0 {
		cfg.AgentsPerHourMax = upperBound
	}
	cfg.AgentsPerHourMin = clampInt(cfg.AgentsPerHourMin, 1, cfg.AgentsPerHourMax)
	if cfg.AgentsPerHourMin > cfg.AgentsPerHourMax {
		cfg.AgentsPerHourMin = cfg.AgentsPerHourMax
	}

	return cfg
}

func timeConfigPrompt(n int, requirement string) string {
	return fmt.Sprintf(
		"Simulation requirement: %s\nParticipant count: %d\nTypical hourly activity multiplier hints: %v\nReturn JSON with keys: total_hours, minutes_per_round, agents_per_hour_min, agents_per_hour_max, hour_buckets (array of {name, hours, multiplier}).",
		truncate(requirement, maxContextChars), n, DefaultHourlyActivityHints,
	)
}

// --- Step 2: event config ---

func defaultEventConfig() *EventConfig {
	return &EventConfig{
		HotTopics:          []string{"the situation described in the source material"},
		NarrativeDirection: "organic discussion without a forced outcome",
	}
}

func (s *Synthesizer) generateEventConfig(ctx context.Context, entityTypes []string, requirement string, useLLM bool) *EventConfig {
	def := defaultEventConfig()
	if !useLLM || s.client == nil {
		return def
	}

	raw, err := retry.CallWithRetry(ctx, "simconfig.event", retry.DefaultOptions(),
		func(ctx context.Context, attempt int) (EventConfig, error) {
			var out EventConfig
			err := s.completeJSON(ctx, attempt,
				"You invent the opening state of a social-media opinion simulation: hot topics, a narrative direction, and a handful of initial posts. Respond with a single JSON object.",
				eventConfigPrompt(entityTypes, requirement), &out)
			return out, err
		})
	if err != nil {
		return def
	}

	if len(raw.HotTopics) == 0 {
		raw.HotTopics = def.HotTopics
	}
	if strings.TrimSpace(raw.NarrativeDirection) == "" {
		raw.NarrativeDirection = def.NarrativeDirection
	}
	return &raw
}

func eventConfigPrompt(entityTypes []string, requirement string) string {
	return fmt.Sprintf(
		"Simulation requirement: %s\nAvailable entity types for poster_type: %v\nReturn JSON with keys: hot_topics (array of strings), narrative_direction (string), initial_posts (array of {content, poster_type}), where poster_type must be one of the available entity types.",
		truncate(requirement, maxContextChars), entityTypes,
	)
}

// --- Step 3: agent configs ---

func (s *Synthesizer) generateAgentConfigs(ctx context.Context, entities []Entity, useLLM bool) []AgentConfig {
	out := make([]AgentConfig, len(entities))
	for i, e := range entities {
		out[i] = ruleBasedAgentConfig(e)
	}
	if !useLLM || s.client == nil {
		return out
	}

	for start := 0; start < len(entities); start += agentBatchSize {
		end := min(start+agentBatchSize, len(entities))
		batch := entities[start:end]

		raw, err := retry.CallWithRetry(ctx, "simconfig.agents", retry.DefaultOptions(),
			func(ctx context.Context, attempt int) (map[int]AgentConfig, error) {
				return s.completeAgentBatch(ctx, attempt, batch)
			})
		if err != nil {
			continue // batch keeps its rule-based defaults
		}
		for i, e := range batch {
			if cfg, ok := raw[e.AgentID]; ok {
				cfg.AgentID = e.AgentID
				out[start+i] = cfg
			}
		}
	}

	return out
}

func (s *Synthesizer) completeAgentBatch(ctx context.Context, attempt int, batch []Entity) (map[int]AgentConfig, error) {
	var raw []AgentConfig
	if err := s.completeJSON(ctx, attempt,
		"You assign posting/response/influence parameters to a batch of social-media agents. Respond with a single JSON array.",
		agentBatchPrompt(batch), &raw); err != nil {
		return nil, err
	}

	byID := make(map[int]AgentConfig, len(raw))
	for _, c := range raw {
		byID[c.AgentID] = c
	}
	return byID, nil
}

func agentBatchPrompt(batch []Entity) string {
	var b strings.Builder
	for _, e := range batch {
		fmt.Fprintf(&b, "- agent_id=%d, type=%s, name=%s\n", e.AgentID, e.EntityType, e.Name)
	}
	return fmt.Sprintf(
		"Agents:\n%s\nReturn a JSON array, one object per agent_id, with keys: agent_id, activity_level (0-1), post_rate (0-1), comment_rate (0-1), active_hours (array of ints 0-23), response_delay_min_minutes, response_delay_max_minutes, sentiment_bias (-1 to 1), stance (supportive|opposing|neutral|observer), influence_weight (0-1).",
		b.String(),
	)
}

// ruleBasedAgentConfig applies the rule-based defaults keyed by
// entity type, used both as the base before any LLM overlay and as the
// fallback for any agent the LLM's response omits.
func ruleBasedAgentConfig(e Entity) AgentConfig {
	base := AgentConfig{
		AgentID:             e.AgentID,
		ActiveHours:         []int{9, 10, 11, 14, 15, 16, 20, 21},
		Stance:              StanceNeutral,
		SentimentBias:       0,
		ResponseDelayMinMin: 15,
		ResponseDelayMaxMin: 120,
	}

	switch strings.ToLower(e.EntityType) {
	case "organization", "institution", "company", "government", "governmentagency", "university":
		base.ActivityLevel = 0.2
		base.PostRate = 0.1
		base.CommentRate = 0.1
		base.ActiveHours = []int{9, 10, 11, 14, 15, 16, 17}
		base.InfluenceWeight = 0.8
	case "media":
		base.ActivityLevel = 0.7
		base.PostRate = 0.5
		base.CommentRate = 0.3
		base.ActiveHours = []int{0, 6, 7, 8, 9, 12, 13, 18, 19, 20, 21, 22}
		base.ResponseDelayMinMin = 5
		base.ResponseDelayMaxMin = 30
		base.InfluenceWeight = 0.7
	case "student":
		base.ActivityLevel = 0.6
		base.PostRate = 0.3
		base.CommentRate = 0.5
		base.ActiveHours = []int{12, 13, 19, 20, 21, 22, 23}
		base.ResponseDelayMinMin = 5
		base.ResponseDelayMaxMin = 45
		base.InfluenceWeight = 0.2
	default: // individual
		base.ActivityLevel = 0.4
		base.PostRate = 0.2
		base.CommentRate = 0.3
		base.ActiveHours = []int{19, 20, 21, 22}
		base.ResponseDelayMinMin = 10
		base.ResponseDelayMaxMin = 90
		base.InfluenceWeight = 0.3
	}

	return base
}

// --- Step 4: initial-post assignment ---

// assignInitialPosts resolves poster_agent_id for every initial post by (i)
// exact type match, (ii) alias fallback, (iii) the highest-influence
// agent. A per-type round-robin cursor is kept so multiple posts
// of the same poster_type don't collapse onto a single agent.
func assignInitialPosts(event *EventConfig, agents []AgentConfig, entities []Entity) {
	byType := make(map[string][]int) // entityType(lower) -> agent_id list, ordered by AgentID
	for _, e := range entities {
		key := strings.ToLower(e.EntityType)
		byType[key] = append(byType[key], e.AgentID)
	}

	highestInfluence := -1.0
	highestAgent := 0
	for _, a := range agents {
		if a.InfluenceWeight > highestInfluence {
			highestInfluence = a.InfluenceWeight
			highestAgent = a.AgentID
		}
	}

	cursor := make(map[string]int)

	for i, post := range event.InitialPosts {
		key := strings.ToLower(post.PosterType)

		candidates := byType[key]
		if len(candidates) == 0 {
			for _, alias := range posterTypeAliases[key] {
				if ids := byType[alias]; len(ids) > 0 {
					candidates = ids
					break
				}
			}
		}

		if len(candidates) == 0 {
			event.InitialPosts[i].PosterAgentID = highestAgent
			continue
		}

		idx := cursor[key] % len(candidates)
		cursor[key] = cursor[key] + 1
		event.InitialPosts[i].PosterAgentID = candidates[idx]
	}
}

// --- shared helpers ---

func (s *Synthesizer) completeJSON(ctx context.Context, attempt int, system, prompt string, out any) error {
	temp := 0.5 - float64(attempt)*0.1
	if temp < 0.1 {
		temp = 0.1
	}

	resp, err := s.client.Complete(ctx, llm.Request{
		System:             system,
		Prompt:             prompt,
		Temperature:        temp,
		ResponseFormatJSON: true,
	})
	if err != nil {
		return orcherrors.Transientf("simconfig.complete", err, "llm completion failed")
	}

	for _, candidate := range []string{resp, llm.RepairTruncated(resp), llm.RepairInvalid(resp)} {
		var asMap any
		if err := json.Unmarshal([]byte(candidate), &asMap); err != nil {
			continue
		}
		// Keys are matched against json tags, ignoring case and underscores
		// so untagged fields (rawTimeConfig) still match snake_case keys.
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName: "json",
			Result:  out,
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(strings.ReplaceAll(mapKey, "_", ""), strings.ReplaceAll(fieldName, "_", ""))
			},
		})
		if err != nil {
			continue
		}
		if err := dec.Decode(asMap); err != nil {
			continue
		}
		return nil
	}

	return orcherrors.Transientf("simconfig.complete", fmt.Errorf("unparseable response"), "could not parse LLM config response even after repair")
}

func distinctTypes(entities []Entity) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entities {
		if !seen[e.EntityType] {
			seen[e.EntityType] = true
			out = append(out, e.EntityType)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
