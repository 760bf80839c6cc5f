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

package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/kadirpekel/socialsim/pkg/graph"
	"github.com/kadirpekel/socialsim/pkg/llm"
	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/retry"
)

// temperatureSteps is tried in order across retry attempts.
var temperatureSteps = []float64{0.7, 0.5, 0.3}

// Synthesizer generates agent profiles from graph entities.
type Synthesizer struct {
	client llm.Client
}

// NewSynthesizer creates a Synthesizer over the given LLM collaborator.
func NewSynthesizer(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// rawProfile is the shape an LLM response is decoded into before
// SourceEntity*/UserID/UserName are filled in by the caller.
type rawProfile struct {
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Persona     string   `json:"persona"`
	Age         int      `json:"age"`
	Gender      string   `json:"gender"`
	MBTI        string   `json:"mbti"`
	Country     string   `json:"country"`
	Profession  string   `json:"profession"`
	Interests   []string `json:"interests"`
}

// Generate produces one AgentProfile for the given entity. When useLLM is
// false, or every LLM attempt fails, it falls back to RuleBasedDefault.
func (s *Synthesizer) Generate(ctx context.Context, userID int, entity graph.Entity, useLLM bool) (AgentProfile, error) {
	class := ClassifyEntityType(entity.EntityType)

	if !useLLM || s.client == nil {
		return RuleBasedDefault(userID, entity.UUID, entity.EntityType, entity.Name), nil
	}

	raw, err := retry.CallWithRetry(ctx, "profile.generate", retry.DefaultOptions(),
		func(ctx context.Context, attempt int) (rawProfile, error) {
			return s.complete(ctx, entity, class, attempt)
		})
	if err != nil {
		return RuleBasedDefault(userID, entity.UUID, entity.EntityType, entity.Name), nil
	}

	p := AgentProfile{
		UserID:           userID,
		UserName:         slug(entity.Name, userID),
		DisplayName:      firstNonEmpty(raw.DisplayName, entity.Name),
		Bio:              raw.Bio,
		Persona:          raw.Persona,
		Age:              raw.Age,
		Gender:           raw.Gender,
		MBTI:             raw.MBTI,
		Country:          raw.Country,
		Profession:       firstNonEmpty(raw.Profession, entity.EntityType),
		Interests:        raw.Interests,
		SourceEntityUUID: entity.UUID,
		SourceEntityType: entity.EntityType,
	}
	Normalize(&p, class)
	return p, nil
}

func (s *Synthesizer) complete(ctx context.Context, entity graph.Entity, class Class, attempt int) (rawProfile, error) {
	temp := temperatureSteps[attempt%len(temperatureSteps)]

	resp, err := s.client.Complete(ctx, llm.Request{
		System:             systemPrompt(class),
		Prompt:             entityPrompt(entity),
		Temperature:        temp,
		ResponseFormatJSON: true,
	})
	if err != nil {
		return rawProfile{}, orcherrors.Transientf("profile.complete", err, "llm completion failed for entity %s", entity.UUID)
	}

	var raw rawProfile
	if err := json.Unmarshal([]byte(resp), &raw); err == nil {
		return raw, nil
	}

	if err := json.Unmarshal([]byte(llm.RepairTruncated(resp)), &raw); err == nil {
		return raw, nil
	}
	if err := json.Unmarshal([]byte(llm.RepairInvalid(resp)), &raw); err == nil {
		return raw, nil
	}

	return rawProfile{}, orcherrors.Transientf("profile.complete", fmt.Errorf("unparseable response"),
		"could not parse LLM profile response for entity %s even after repair", entity.UUID)
}

func systemPrompt(class Class) string {
	if class == ClassInstitution {
		return "You invent a believable social-media persona for an organization or group, given facts extracted from a document. Respond with a single JSON object."
	}
	return "You invent a believable social-media persona for an individual person, given facts extracted from a document. Respond with a single JSON object."
}

func entityPrompt(entity graph.Entity) string {
	var facts strings.Builder
	for _, f := range entity.Context {
		facts.WriteString("- ")
		facts.WriteString(f.String())
		facts.WriteByte('\n')
	}
	return fmt.Sprintf(
		"Entity name: %s\nEntity type: %s\nKnown facts:\n%s\nReturn JSON with keys: display_name, bio, persona, age, gender, mbti, country, profession, interests (array of strings).",
		entity.Name, entity.EntityType, facts.String(),
	)
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// ProgressFunc reports GenerateAll progress as (completed, total).
type ProgressFunc func(completed, total int)

// GenerateAll runs Generate for every entity with bounded parallelism
// (parallelN workers), allocating user_id as the entity's index. If save
// is non-nil, it is called with the accumulated profile slice after every
// completion, guarded by a mutex so calls never interleave.
func (s *Synthesizer) GenerateAll(ctx context.Context, entities []graph.Entity, useLLM bool, parallelN int, onProgress ProgressFunc, save func([]AgentProfile) error) ([]AgentProfile, error) {
	if parallelN < 1 {
		parallelN = 1
	}

	profiles := make([]AgentProfile, len(entities))
	var mu sync.Mutex
	var firstErr error
	completed := 0

	sem := make(chan struct{}, parallelN)
	var wg sync.WaitGroup

	for i, entity := range entities {
		i, entity := i, entity
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			p, err := s.Generate(ctx, i, entity, useLLM)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			profiles[i] = p
			completed++
			fmt.Printf("[%d/%d] %s (@%s)\n%s\n\n", completed, len(entities), p.DisplayName, p.UserName, p.Persona)
			if onProgress != nil {
				onProgress(completed, len(entities))
			}
			if save != nil {
				if err := save(profiles); err != nil && firstErr == nil {
					firstErr = err
				}
			}
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return profiles, firstErr
	}
	return profiles, nil
}
