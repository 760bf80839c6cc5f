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
	"fmt"
	"time"

	"github.com/kadirpekel/socialsim/pkg/llm"
	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/store"
)

// Progress is the progress.json snapshot. CompletedSections holds the
// titles of every finished top-level section, in order.
type Progress struct {
	Status            Status    `json:"status"`
	Progress          float64   `json:"progress"`
	Message           string    `json:"message"`
	CurrentSection    string    `json:"current_section"`
	CompletedSections []string  `json:"completed_sections"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Agent drives report generation end to end.
type Agent struct {
	fs     *store.Store
	client llm.Client
	tools  Tools
}

// NewAgent creates an Agent.
func NewAgent(fs *store.Store, client llm.Client, tools Tools) *Agent {
	return &Agent{fs: fs, client: client, tools: tools}
}

// Generate runs the full pipeline for one report: plan, write every
// section (with subsections), persist incrementally, then assemble
// full_report.md.
func (a *Agent) Generate(ctx context.Context, r *Report, requirement string) error {
	start := time.Now()
	a.logEvent(r.ID, "start", nil, start)

	r.Status = StatusPlanning
	outline := Plan(ctx, a.client, requirement)
	if err := a.fs.WriteJSONAtomic(a.fs.ReportOutlinePath(r.ID), outline); err != nil {
		return orcherrors.Fatalf("report.generate", err, "failed to persist outline for %s", r.ID)
	}
	a.logEvent(r.ID, "planning", map[string]any{"sections": len(outline.Sections)}, start)
	r.Status = StatusGenerating

	var sectionFiles []string
	var completedTitles []string
	for i, section := range outline.Sections {
		body := runSection(ctx, a.client, a.tools, section.Title, requirement, MaxToolCallsPerSection, a.eventSink(r.ID, start))

		subBodies := make([]string, len(section.Subsections))
		for j, sub := range section.Subsections {
			subBodies[j] = runSection(ctx, a.client, a.tools, sub.Title, requirement, MaxToolCallsPerSection, a.eventSink(r.ID, start))
		}

		sectionFile := RenderSectionFile(section, body, subBodies)
		sectionFiles = append(sectionFiles, sectionFile)

		if err := a.fs.WriteBytesAtomic(a.fs.ReportSectionPath(r.ID, i+1), []byte(sectionFile)); err != nil {
			return orcherrors.Fatalf("report.generate", err, "failed to persist section %d for %s", i+1, r.ID)
		}

		completedTitles = append(completedTitles, section.Title)
		progress := Progress{
			Status:            StatusGenerating,
			Progress:          float64(i+1) / float64(len(outline.Sections)),
			Message:           fmt.Sprintf("completed section %q", section.Title),
			CurrentSection:    section.Title,
			CompletedSections: completedTitles,
			UpdatedAt:         time.Now(),
		}
		if err := a.fs.WriteJSONAtomic(a.fs.ReportProgressPath(r.ID), progress); err != nil {
			return orcherrors.Fatalf("report.generate", err, "failed to persist progress for %s", r.ID)
		}
	}

	full := AssembleFullReport(outline, sectionFiles)
	if err := a.fs.WriteBytesAtomic(a.fs.ReportFullPath(r.ID), []byte(full)); err != nil {
		return orcherrors.Fatalf("report.generate", err, "failed to persist full_report.md for %s", r.ID)
	}

	r.Status = StatusCompleted
	a.logEvent(r.ID, "complete", map[string]any{"elapsed_seconds": time.Since(start).Seconds()}, start)
	return nil
}

// eventSink adapts logEvent into the (event, fields) callback runSection
// expects.
func (a *Agent) eventSink(reportID string, start time.Time) func(event string, fields map[string]any) {
	return func(event string, fields map[string]any) {
		a.logEvent(reportID, event, fields, start)
	}
}

// logEvent appends one structured entry to agent_log.jsonl.
func (a *Agent) logEvent(reportID, action string, fields map[string]any, start time.Time) {
	entry := map[string]any{
		"timestamp":       time.Now(),
		"elapsed_seconds": time.Since(start).Seconds(),
		"action":          action,
	}
	for k, v := range fields {
		entry[k] = v
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	_ = a.fs.AppendLine(a.fs.ReportAgentLogPath(reportID), string(data))
	_ = a.fs.AppendLine(a.fs.ReportConsoleLogPath(reportID), fmt.Sprintf("[%s] %s", action, fields))
}

// Chat answers one ad-hoc question about an existing report's simulation,
// bounded by MaxToolCallsPerChat.
func (a *Agent) Chat(ctx context.Context, question string) string {
	return runSection(ctx, a.client, a.tools, "chat", question, MaxToolCallsPerChat, func(string, map[string]any) {})
}
