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

package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts and truncates text by model tokens rather than bytes,
// so prompt budgets hold for CJK-heavy content where bytes-per-token varies
// widely.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

var (
	encMu    sync.Mutex
	encCache = map[string]*tiktoken.Tiktoken{}
)

func encodingFor(model string) (*tiktoken.Tiktoken, error) {
	encMu.Lock()
	defer encMu.Unlock()

	if enc, ok := encCache[model]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	encCache[model] = enc
	return enc, nil
}

// NewTokenCounter creates a counter for model, falling back to the
// cl100k_base encoding when the model is unknown to the tokenizer.
func NewTokenCounter(model string) (*TokenCounter, error) {
	enc, err := encodingFor(model)
	if err != nil {
		return nil, err
	}
	return &TokenCounter{enc: enc}, nil
}

// Count returns the token count of text.
func (c *TokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Truncate returns text cut to at most maxTokens tokens. Text within the
// budget is returned unchanged.
func (c *TokenCounter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	ids := c.enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text
	}
	return c.enc.Decode(ids[:maxTokens])
}

// TruncateTokens is a convenience wrapper that degrades to a rune cut when
// no tokenizer is available for model (e.g. offline test runs without the
// embedded encoding data).
func TruncateTokens(model, text string, maxTokens int) string {
	counter, err := NewTokenCounter(model)
	if err != nil {
		runes := []rune(text)
		if len(runes) <= maxTokens*4 {
			return text
		}
		return string(runes[:maxTokens*4])
	}
	return counter.Truncate(text, maxTokens)
}
