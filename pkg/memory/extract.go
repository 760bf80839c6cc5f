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

package memory

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/kadirpekel/socialsim/pkg/llm"
)

type extractionEnvelope struct {
	Entities []extractedEntity `json:"entities"`
}

// parseExtractedEntities decodes the LLM extractor's JSON, trying the raw
// response first and falling back through llm.RepairTruncated and
// llm.RepairInvalid before giving up, the same repair chain ConfigSynthesizer
// uses for LLM-authored JSON (pkg/simconfig).
func parseExtractedEntities(raw string) ([]extractedEntity, error) {
	candidates := []string{raw, llm.RepairTruncated(raw), llm.RepairInvalid(raw)}

	var lastErr error
	for _, candidate := range candidates {
		var generic map[string]any
		if err := json.Unmarshal([]byte(candidate), &generic); err != nil {
			lastErr = err
			continue
		}
		var env extractionEnvelope
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &env})
		if err != nil {
			lastErr = err
			continue
		}
		if err := dec.Decode(generic); err != nil {
			lastErr = err
			continue
		}
		return env.Entities, nil
	}
	return nil, fmt.Errorf("memory: failed to parse entity extraction response: %w", lastErr)
}
