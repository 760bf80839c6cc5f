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

// Package project implements the project store: project entities, their
// uploaded files, extracted text, ontology, and status transitions, backed
// by pkg/store's filesystem layout.
package project

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kadirpekel/socialsim/pkg/ontology"
	"github.com/kadirpekel/socialsim/pkg/orcherrors"
	"github.com/kadirpekel/socialsim/pkg/store"
)

// Status is a project's lifecycle state.
type Status string

const (
	StatusCreated           Status = "created"
	StatusOntologyGenerated Status = "ontology_generated"
	StatusGraphBuilding     Status = "graph_building"
	StatusGraphCompleted    Status = "graph_completed"
	StatusFailed            Status = "failed"
)

// allowedExtensions are the only upload extensions accepted by SaveFile.
var allowedExtensions = map[string]bool{
	".pdf":      true,
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// FileDescriptor describes one uploaded file.
type FileDescriptor struct {
	OriginalFilename string `json:"original_filename"`
	SavedFilename    string `json:"saved_filename"`
	Path             string `json:"path"`
	Size             int64  `json:"size"`
}

// ChunkingParams are the chunking inputs the project remembers for its graph
// build.
type ChunkingParams struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

// Project is the persisted project.json entity.
type Project struct {
	ID               string             `json:"project_id"`
	DisplayName      string             `json:"display_name"`
	Status           Status             `json:"status"`
	Requirement      string             `json:"requirement"`
	Files            []FileDescriptor   `json:"files"`
	ExtractedTextLen int                `json:"extracted_text_len"`
	Ontology         *ontology.Ontology `json:"ontology,omitempty"`
	AnalysisSummary  string             `json:"analysis_summary,omitempty"`
	GraphID          string             `json:"graph_id,omitempty"`
	Chunking         ChunkingParams     `json:"chunking"`
	LastError        string             `json:"last_error,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Store manages project entities, their files, extracted
// text, ontology, and status transitions.
type Store struct {
	fs *store.Store
	mu sync.Mutex
}

// New creates a ProjectStore backed by fs.
func New(fs *store.Store) *Store {
	return &Store{fs: fs}
}

// Create makes a new project in status "created" and persists it.
func (s *Store) Create(name string) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	p := &Project{
		ID:          uuid.NewString(),
		DisplayName: name,
		Status:      StatusCreated,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Save rewrites project.json after bumping UpdatedAt.
func (s *Store) Save(p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.UpdatedAt = time.Now()
	return s.save(p)
}

func (s *Store) save(p *Project) error {
	if err := s.fs.WriteJSONAtomic(s.fs.ProjectJSONPath(p.ID), p); err != nil {
		return orcherrors.Fatalf("project.save", err, "failed to persist project %s", p.ID)
	}
	return nil
}

// Get loads a project by id.
func (s *Store) Get(id string) (*Project, error) {
	var p Project
	if err := s.fs.ReadJSON(s.fs.ProjectJSONPath(id), &p); err != nil {
		if os.IsNotExist(err) {
			return nil, orcherrors.NotFoundf("project.get", "project %s not found", id)
		}
		return nil, orcherrors.Fatalf("project.get", err, "failed to read project %s", id)
	}
	return &p, nil
}

// Delete removes a project's entire directory tree.
func (s *Store) Delete(id string) error {
	dir := s.fs.ProjectDir(id)
	if err := os.RemoveAll(dir); err != nil {
		return orcherrors.Fatalf("project.delete", err, "failed to delete project %s", id)
	}
	return nil
}

// List returns up to limit projects sorted by created-at descending. A
// limit ≤ 0 returns all projects.
func (s *Store) List(limit int) ([]*Project, error) {
	ids, err := s.fs.ListProjectIDs()
	if err != nil {
		return nil, orcherrors.Fatalf("project.list", err, "failed to list projects")
	}

	out := make([]*Project, 0, len(ids))
	for _, id := range ids {
		p, err := s.Get(id)
		if err != nil {
			continue // skip unreadable/partial entries
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Upload is the raw content handed to SaveFile; the HTTP layer (out of
// scope) is responsible for producing one from a multipart request.
type Upload struct {
	OriginalFilename string
	Content          []byte
}

// SaveFile stores upload under the project's files/ directory with a
// random short filename, preserving the original extension, and returns
// its descriptor. Extensions outside {pdf, md, markdown, txt} are rejected.
func (s *Store) SaveFile(projectID string, upload Upload) (*FileDescriptor, error) {
	ext := strings.ToLower(filepath.Ext(upload.OriginalFilename))
	if !allowedExtensions[ext] {
		return nil, orcherrors.Validationf("project.save_file", "unsupported file extension %q", ext)
	}

	randomName, err := randomHex(8)
	if err != nil {
		return nil, orcherrors.Fatalf("project.save_file", err, "failed to generate filename")
	}
	savedFilename := randomName + ext

	dir := s.fs.ProjectFilesDir(projectID)
	path := filepath.Join(dir, savedFilename)
	if err := s.fs.WriteBytesAtomic(path, upload.Content); err != nil {
		return nil, orcherrors.Fatalf("project.save_file", err, "failed to save %s", upload.OriginalFilename)
	}

	return &FileDescriptor{
		OriginalFilename: upload.OriginalFilename,
		SavedFilename:    savedFilename,
		Path:             path,
		Size:             int64(len(upload.Content)),
	}, nil
}

// SaveExtractedText writes the project's concatenated extracted text.
func (s *Store) SaveExtractedText(projectID string, text string) error {
	if err := s.fs.WriteBytesAtomic(s.fs.ExtractedTextPath(projectID), []byte(text)); err != nil {
		return orcherrors.Fatalf("project.save_extracted_text", err, "failed to save extracted text for %s", projectID)
	}
	return nil
}

// GetExtractedText reads the project's extracted text.
func (s *Store) GetExtractedText(projectID string) (string, error) {
	data, err := os.ReadFile(s.fs.ExtractedTextPath(projectID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", orcherrors.NotFoundf("project.get_extracted_text", "no extracted text for project %s", projectID)
		}
		return "", orcherrors.Fatalf("project.get_extracted_text", err, "failed to read extracted text for %s", projectID)
	}
	return string(data), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
