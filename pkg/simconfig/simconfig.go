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

// Package simconfig implements simulation-config synthesis: step-wise LLM
// generation of the simulation's time/event/per-agent/platform configuration,
// with validation and rule-based fallback at every step.
package simconfig

// HourBucket names a band of hours sharing an activity multiplier, used
// both as LLM hints and as the persisted shape of TimeConfig.HourBuckets.
type HourBucket struct {
	Name       string  `json:"name"`
	Hours      []int   `json:"hours"`
	Multiplier float64 `json:"multiplier"`
}

// DefaultHourlyActivityHints is a fixed table of typical Chinese
// social-media hourly activity multipliers, passed to the LLM as hints for
// the time-config step. The model may adjust these; they are never enforced
// as a hard constraint.
var DefaultHourlyActivityHints = []HourBucket{
	{Name: "deep_night", Hours: []int{0, 1, 2, 3, 4, 5}, Multiplier: 0.1},
	{Name: "morning_commute", Hours: []int{6, 7, 8}, Multiplier: 0.6},
	{Name: "work_hours", Hours: []int{9, 10, 11}, Multiplier: 0.5},
	{Name: "lunch_break", Hours: []int{12, 13}, Multiplier: 0.8},
	{Name: "afternoon_work", Hours: []int{14, 15, 16, 17}, Multiplier: 0.5},
	{Name: "evening_commute", Hours: []int{18, 19}, Multiplier: 0.7},
	{Name: "prime_time", Hours: []int{20, 21, 22}, Multiplier: 1.0},
	{Name: "late_night", Hours: []int{23}, Multiplier: 0.4},
}

// TimeConfig is simulation_config.json's "time_config": total hours,
// minutes-per-round, and per-hour agent-activation bounds.
type TimeConfig struct {
	TotalHours       int          `json:"total_hours"`
	MinutesPerRound  int          `json:"minutes_per_round"`
	AgentsPerHourMin int          `json:"agents_per_hour_min"`
	AgentsPerHourMax int          `json:"agents_per_hour_max"`
	HourBuckets      []HourBucket `json:"hour_buckets"`
}

// Stance is an agent's posture toward the simulated narrative.
type Stance string

const (
	StanceSupportive Stance = "supportive"
	StanceOpposing   Stance = "opposing"
	StanceNeutral    Stance = "neutral"
	StanceObserver   Stance = "observer"
)

// AgentConfig is one per-profile entry of "agent_configs".
type AgentConfig struct {
	AgentID             int     `json:"agent_id"`
	ActivityLevel       float64 `json:"activity_level"`
	PostRate            float64 `json:"post_rate"`
	CommentRate         float64 `json:"comment_rate"`
	ActiveHours         []int   `json:"active_hours"`
	ResponseDelayMinMin int     `json:"response_delay_min_minutes"`
	ResponseDelayMaxMin int     `json:"response_delay_max_minutes"`
	SentimentBias       float64 `json:"sentiment_bias"`
	Stance              Stance  `json:"stance"`
	InfluenceWeight     float64 `json:"influence_weight"`
}

// InitialPost is one seed post of "event_config.initial_posts". By
// the time ConfigSynthesizer.Generate returns, PosterAgentID is always
// resolved.
type InitialPost struct {
	Content       string `json:"content"`
	PosterType    string `json:"poster_type"`
	PosterAgentID int    `json:"poster_agent_id"`
}

// EventConfig is the "event_config" block.
type EventConfig struct {
	HotTopics          []string      `json:"hot_topics"`
	NarrativeDirection string        `json:"narrative_direction"`
	InitialPosts       []InitialPost `json:"initial_posts"`
}

// PlatformConfig is one platform's ranking/virality tuning.
type PlatformConfig struct {
	RecencyWeight       float64 `json:"recency_weight"`
	PopularityWeight    float64 `json:"popularity_weight"`
	RelevanceWeight     float64 `json:"relevance_weight"`
	ViralThreshold      float64 `json:"viral_threshold"`
	EchoChamberStrength float64 `json:"echo_chamber_strength"`
}

// Platform names used as map keys and, where relevant, filesystem
// directory names.
const (
	PlatformTwitter = "twitter"
	PlatformReddit  = "reddit"
)

// DefaultPlatformConfigs are the fixed per-platform defaults: Twitter and
// Reddit have different weight profiles and thresholds.
func DefaultPlatformConfigs() map[string]PlatformConfig {
	return map[string]PlatformConfig{
		PlatformTwitter: {
			RecencyWeight:       0.5,
			PopularityWeight:    0.3,
			RelevanceWeight:     0.2,
			ViralThreshold:      50,
			EchoChamberStrength: 0.4,
		},
		PlatformReddit: {
			RecencyWeight:       0.3,
			PopularityWeight:    0.4,
			RelevanceWeight:     0.3,
			ViralThreshold:      100,
			EchoChamberStrength: 0.6,
		},
	}
}

// SimulationParameters is the full generated configuration, persisted
// atomically to simulation_config.json.
type SimulationParameters struct {
	TimeConfig   TimeConfig                `json:"time_config"`
	AgentConfigs []AgentConfig             `json:"agent_configs"`
	EventConfig  EventConfig               `json:"event_config"`
	Platforms    map[string]PlatformConfig `json:"platforms"`
}
