package profile

import (
	"context"
	"fmt"
	"testing"

	"github.com/kadirpekel/socialsim/pkg/graph"
	"github.com/kadirpekel/socialsim/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// FAKES
// ============================================================================

// fakeClient returns a fixed response (or error) to every Complete call, and
// records every request it was given.
type fakeClient struct {
	responses []string
	err       error
	calls     []llm.Request
}

func (f *fakeClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return "", f.err
	}
	idx := len(f.calls) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func sampleEntity() graph.Entity {
	return graph.Entity{
		Node:       graph.Node{UUID: "u1", Name: "Jane Doe", Labels: []string{"Person"}},
		EntityType: "Person",
	}
}

// ============================================================================
// RULE-BASED FALLBACK PATH
// ============================================================================

func TestSynthesizer_Generate_NoLLMUsesRuleBased(t *testing.T) {
	s := NewSynthesizer(nil)
	p, err := s.Generate(context.Background(), 3, sampleEntity(), false)

	require.NoError(t, err)
	assert.Equal(t, 3, p.UserID)
	assert.Equal(t, "u1", p.SourceEntityUUID)
}

func TestSynthesizer_Generate_LLMErrorFallsBackToRuleBased(t *testing.T) {
	client := &fakeClient{err: fmt.Errorf("vendor unavailable")}
	s := NewSynthesizer(client)

	p, err := s.Generate(context.Background(), 1, sampleEntity(), true)

	require.NoError(t, err)
	assert.Equal(t, 1, p.UserID)
	assert.NotEmpty(t, p.Bio)
}

// ============================================================================
// LLM SUCCESS PATH, INCLUDING REPAIR
// ============================================================================

func TestSynthesizer_Generate_ParsesWellFormedJSON(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"display_name":"Jane","bio":"A local teacher","persona":"warm and curious","age":34,"gender":"female","mbti":"ENFJ","country":"US","profession":"teacher","interests":["reading"]}`,
	}}
	s := NewSynthesizer(client)

	p, err := s.Generate(context.Background(), 2, sampleEntity(), true)

	require.NoError(t, err)
	assert.Equal(t, "Jane", p.DisplayName)
	assert.Equal(t, "female", p.Gender)
	assert.Equal(t, 34, p.Age)
}

func TestSynthesizer_Generate_RepairsTruncatedJSON(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"display_name":"Jane","bio":"A local teacher`,
	}}
	s := NewSynthesizer(client)

	p, err := s.Generate(context.Background(), 2, sampleEntity(), true)

	require.NoError(t, err)
	assert.Equal(t, "Jane", p.DisplayName)
}

// ============================================================================
// GENERATE ALL
// ============================================================================

func TestSynthesizer_GenerateAll_AssignsSequentialUserIDs(t *testing.T) {
	s := NewSynthesizer(nil)
	entities := []graph.Entity{sampleEntity(), sampleEntity(), sampleEntity()}

	profiles, err := s.GenerateAll(context.Background(), entities, false, 2, nil, nil)

	require.NoError(t, err)
	require.Len(t, profiles, 3)
	for i, p := range profiles {
		assert.Equal(t, i, p.UserID)
	}
}

func TestSynthesizer_GenerateAll_StreamsSaveCallback(t *testing.T) {
	s := NewSynthesizer(nil)
	entities := []graph.Entity{sampleEntity(), sampleEntity()}

	saveCalls := 0
	_, err := s.GenerateAll(context.Background(), entities, false, 1, nil, func(p []AgentProfile) error {
		saveCalls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, len(entities), saveCalls)
}
