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
	"fmt"
	"strings"
	"sync"

	"github.com/kadirpekel/socialsim/pkg/llm"
)

const sectionSystemPromptTemplate = `You are writing the "%s" section of an analytical report.
Requirement: %s

You must call at least %d of the four available tools before producing a final answer.
Do not use markdown headings in your answer body; use bold text for any sub-headings.
When ready, respond with a line starting with "Final Answer:" followed by the section's content.

%s`

// runSection executes the ReACT loop for one section or subsection
// title, returning the cleaned body text. events receives one entry per
// loop step for the caller's structured log. toolBudget bounds tool calls
// within this run (MaxToolCallsPerSection for a report section,
// MaxToolCallsPerChat for chat mode).
func runSection(ctx context.Context, client llm.Client, tools Tools, title, requirement string, toolBudget int, events func(event string, fields map[string]any)) string {
	if client == nil {
		return ""
	}

	system := fmt.Sprintf(sectionSystemPromptTemplate, title, requirement, MinToolCalls, toolDescriptions)
	var transcript strings.Builder
	toolCallsMade := 0
	lastResp := ""

	for iteration := 0; iteration < MaxIterations; iteration++ {
		prompt := transcript.String()
		if prompt == "" {
			prompt = "Begin."
		}
		if iteration == MaxIterations-1 || toolCallsMade >= toolBudget {
			prompt += "\n\nYou have reached your tool-call budget. Produce your Final Answer now."
		}

		events("llm_call", map[string]any{"section": title, "iteration": iteration})
		resp, err := client.Complete(ctx, llm.Request{
			System:      system,
			Prompt:      prompt,
			Temperature: SectionTemperature,
		})
		if err != nil {
			events("error", map[string]any{"section": title, "error": err.Error()})
			break
		}
		lastResp = resp

		if answer, ok := FinalAnswer(resp); ok && toolCallsMade >= MinToolCalls {
			events("section_complete", map[string]any{"section": title, "tool_calls": toolCallsMade})
			return CleanSectionBody(title, answer)
		}

		calls := ParseToolCalls(resp)
		if len(calls) == 0 {
			transcript.WriteString(resp)
			if _, ok := FinalAnswer(resp); ok {
				// Answered early without meeting the minimum; push back
				// rather than accept it silently.
				transcript.WriteString(fmt.Sprintf("\n\nObservation: you must call at least %d tools (made %d so far) before a Final Answer.\n", MinToolCalls, toolCallsMade))
			} else {
				transcript.WriteString("\n\nObservation: no tool call recognized. Use insight_forge, panorama_search, quick_search, or interview_agents.\n")
			}
			continue
		}

		transcript.WriteString(resp)
		transcript.WriteString("\n")
		for _, tc := range calls {
			if toolCallsMade >= toolBudget {
				break
			}
			events("tool_call", map[string]any{"section": title, "tool": tc.Name})
			result, err := tools.call(ctx, tc)
			toolCallsMade++
			if err != nil {
				result = "error: " + err.Error()
			}
			events("tool_result", map[string]any{"section": title, "tool": tc.Name})
			transcript.WriteString(fmt.Sprintf("Observation (%s): %s\n", tc.Name, boundObservation(result)))
		}
	}

	events("section_complete", map[string]any{"section": title, "tool_calls": toolCallsMade, "forced": true})
	if answer, ok := FinalAnswer(lastResp); ok {
		return CleanSectionBody(title, answer)
	}
	return CleanSectionBody(title, lastResp)
}

// maxObservationTokens bounds each tool result fed back into the loop, so a
// large search blob cannot crowd the model's context for the section.
const maxObservationTokens = 2000

// observationCounter is built lazily: tokenizer construction may fetch the
// encoding table, which must not happen at package init.
var observationCounter = sync.OnceValue(func() *llm.TokenCounter {
	c, _ := llm.NewTokenCounter("")
	return c
})

func boundObservation(s string) string {
	c := observationCounter()
	if c == nil {
		return s
	}
	return c.Truncate(s, maxObservationTokens)
}
