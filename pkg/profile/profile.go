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

// Package profile implements persona synthesis: per-entity persona
// generation, LLM-assisted with a rule-based fallback, bounded parallelism,
// and streaming save.
package profile

// AgentProfile is one generated persona.
type AgentProfile struct {
	UserID      int      `json:"user_id"`
	UserName    string   `json:"user_name"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Persona     string   `json:"persona"`
	Age         int      `json:"age"`
	Gender      string   `json:"gender"` // male | female | other
	MBTI        string   `json:"mbti"`
	Country     string   `json:"country"`
	Profession  string   `json:"profession"`
	Interests   []string `json:"interests"`

	SourceEntityUUID string `json:"source_entity_uuid"`
	SourceEntityType string `json:"source_entity_type"`
}

const maxBioLen = 200
