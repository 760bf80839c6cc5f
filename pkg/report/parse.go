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
	"encoding/json"
	"regexp"
	"strings"
)

// ToolCall is one parsed tool invocation request from the model.
type ToolCall struct {
	Name string
	Args map[string]string
}

var (
	xmlToolCallRe  = regexp.MustCompile(`(?s)<tool_call>\s*(\{.*?\})\s*</tool_call>`)
	funcToolCallRe = regexp.MustCompile(`(?s)\[TOOL_CALL\]\s*([a-zA-Z_][a-zA-Z0-9_]*)\((.*?)\)`)
	funcArgRe      = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)\s*=\s*"((?:[^"\\]|\\.)*)"`)
	finalAnswerRe  = regexp.MustCompile(`(?s)Final Answer:\s*(.*)`)
)

// ParseToolCalls extracts every tool call from a model response, accepting
// both the XML form (<tool_call>{json}</tool_call>) and the function-call
// form ([TOOL_CALL] name(k="v", ...)).
func ParseToolCalls(text string) []ToolCall {
	var calls []ToolCall

	for _, m := range xmlToolCallRe.FindAllStringSubmatch(text, -1) {
		var payload struct {
			Name string            `json:"name"`
			Args map[string]string `json:"args"`
		}
		if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
			continue
		}
		calls = append(calls, ToolCall{Name: payload.Name, Args: payload.Args})
	}

	for _, m := range funcToolCallRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		args := map[string]string{}
		for _, a := range funcArgRe.FindAllStringSubmatch(m[2], -1) {
			args[a[1]] = strings.ReplaceAll(a[2], `\"`, `"`)
		}
		calls = append(calls, ToolCall{Name: name, Args: args})
	}

	return calls
}

// FinalAnswer returns the text following "Final Answer:" and whether it was
// present at all.
func FinalAnswer(text string) (string, bool) {
	m := finalAnswerRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}
