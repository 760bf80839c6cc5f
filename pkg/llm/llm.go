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

// Package llm defines the external LLM vendor collaborator interface shared
// by every component that generates text: OntologyService, ProfileSynthesizer,
// ConfigSynthesizer, GraphMemoryUpdater's entity extractor, and ReportAgent.
// The vendor client, prompt construction, and token-level prompting itself
// all live outside this module; this package only declares the contract the
// core calls through.
package llm

import "context"

// Request is one completion call.
type Request struct {
	System             string
	Prompt             string
	Temperature        float64
	ResponseFormatJSON bool
}

// Client is the external LLM collaborator.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}
