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

package report

import (
	"context"
	"encoding/json"

	"github.com/mitchellh/mapstructure"

	"github.com/kadirpekel/socialsim/pkg/llm"
)

// Subsection is one outline subsection (0..2 per section).
type Subsection struct {
	Title string `json:"title"`
}

// Section is one top-level outline section (2..5 per outline).
type Section struct {
	Title       string       `json:"title"`
	Subsections []Subsection `json:"subsections"`
}

// Outline is the planner's output.
type Outline struct {
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Sections []Section `json:"sections"`
}

const (
	minSections = 2
	maxSections = 5
	maxSubs     = 2
)

const planningSystemPrompt = "You plan the structure of an analytical report about a social simulation. " +
	"Respond with a JSON object {\"title\", \"summary\", \"sections\": [{\"title\", \"subsections\": [{\"title\"}]}]}. " +
	"Produce between 2 and 5 top-level sections, each with 0 to 2 subsections."

// Plan runs the single planning LLM call and normalizes its output to
// the section-count constraints, falling back to FallbackOutline on any
// failure.
func Plan(ctx context.Context, client llm.Client, requirement string) Outline {
	if client == nil {
		return FallbackOutline(requirement)
	}

	resp, err := client.Complete(ctx, llm.Request{
		System:             planningSystemPrompt,
		Prompt:             requirement,
		Temperature:        PlanningTemperature,
		ResponseFormatJSON: true,
	})
	if err != nil {
		return FallbackOutline(requirement)
	}

	outline, err := parseOutline(resp)
	if err != nil {
		return FallbackOutline(requirement)
	}
	return normalizeOutline(outline, requirement)
}

func parseOutline(raw string) (Outline, error) {
	candidates := []string{raw, llm.RepairTruncated(raw), llm.RepairInvalid(raw)}
	var lastErr error
	for _, candidate := range candidates {
		var generic map[string]any
		if err := json.Unmarshal([]byte(candidate), &generic); err != nil {
			lastErr = err
			continue
		}
		var outline Outline
		if err := mapstructure.Decode(generic, &outline); err != nil {
			lastErr = err
			continue
		}
		return outline, nil
	}
	return Outline{}, lastErr
}

// normalizeOutline clamps the section/subsection counts to the allowed
// bounds rather than rejecting an otherwise-usable outline outright.
func normalizeOutline(o Outline, requirement string) Outline {
	if o.Title == "" {
		o.Title = "Simulation Report"
	}
	if len(o.Sections) < minSections {
		return FallbackOutline(requirement)
	}
	if len(o.Sections) > maxSections {
		o.Sections = o.Sections[:maxSections]
	}
	for i := range o.Sections {
		if len(o.Sections[i].Subsections) > maxSubs {
			o.Sections[i].Subsections = o.Sections[i].Subsections[:maxSubs]
		}
	}
	return o
}

// FallbackOutline is the fixed fallback used when planning fails.
func FallbackOutline(requirement string) Outline {
	return Outline{
		Title:   "Simulation Report",
		Summary: requirement,
		Sections: []Section{
			{Title: "Overview"},
			{Title: "Key Findings"},
			{Title: "Conclusions"},
		},
	}
}
