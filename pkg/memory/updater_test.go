package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/socialsim/pkg/graph"
	"github.com/kadirpekel/socialsim/pkg/llm"
)

// ============================================================================
// FAKES
// ============================================================================

type fakeLLM struct {
	mu    sync.Mutex
	calls int
	resp  string
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.resp, nil
}

type fakeGraphClient struct {
	graph.Client // embed to satisfy the interface; only the methods below matter
	mu           sync.Mutex
	upserted     []graph.Node
}

func (f *fakeGraphClient) GetNodes(ctx context.Context, graphID string) ([]graph.Node, error) {
	return nil, nil
}

func (f *fakeGraphClient) UpsertEntity(ctx context.Context, graphID string, node graph.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, node)
	return nil
}

func (f *fakeGraphClient) UpsertRelationship(ctx context.Context, graphID string, edge graph.Edge) error {
	return nil
}

func (f *fakeGraphClient) snapshot() []graph.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]graph.Node, len(f.upserted))
	copy(out, f.upserted)
	return out
}

func sampleActivity(platform, actionType string) AgentActivity {
	return AgentActivity{
		Platform:   platform,
		AgentID:    1,
		AgentName:  "alice",
		ActionType: actionType,
		ActionArgs: map[string]any{"content": "hello world"},
		Round:      1,
		Timestamp:  time.Now(),
	}
}

// ============================================================================
// RENDERING
// ============================================================================

func TestRenderEpisodeLine_Post(t *testing.T) {
	line := renderEpisodeLine(sampleActivity("twitter", "post"))
	assert.Contains(t, line, "alice")
	assert.Contains(t, line, "hello world")
}

func TestRenderBatch_JoinsWithNewlines(t *testing.T) {
	batch := []AgentActivity{sampleActivity("twitter", "post"), sampleActivity("twitter", "like")}
	text := renderBatch(batch)
	assert.Equal(t, 2, len(splitLines(text)))
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// ============================================================================
// EXTRACTION PARSING
// ============================================================================

func TestParseExtractedEntities_WellFormed(t *testing.T) {
	raw := `{"entities":[{"name":"alice","labels":["Person"],"attributes":{"role":"poster"}}]}`
	entities, err := parseExtractedEntities(raw)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "alice", entities[0].Name)
}

func TestParseExtractedEntities_RepairsTruncated(t *testing.T) {
	raw := `{"entities":[{"name":"alice","labels":["Person"`
	entities, err := parseExtractedEntities(raw)
	require.NoError(t, err)
	require.Len(t, entities, 1)
}

// ============================================================================
// PIPELINE
// ============================================================================

func TestUpdater_DropsAndCountsDoNothing(t *testing.T) {
	llmClient := &fakeLLM{resp: `{"entities":[]}`}
	graphClient := &fakeGraphClient{}
	u := NewUpdater("sim-1", "graph-1", graphClient, llmClient)

	u.Enqueue(AgentActivity{ActionType: DoNothingActionType})
	u.Stop()

	skipped, sent, failed := u.Stats()
	assert.Equal(t, uint64(1), skipped)
	assert.Equal(t, uint64(0), sent)
	assert.Equal(t, uint64(0), failed)
}

func TestUpdater_AtLeastOnceAccounting(t *testing.T) {
	llmClient := &fakeLLM{resp: `{"entities":[{"name":"alice","labels":["Person"]}]}`}
	graphClient := &fakeGraphClient{}
	u := NewUpdater("sim-1", "graph-1", graphClient, llmClient)

	const enqueued = 13
	for i := 0; i < enqueued; i++ {
		u.Enqueue(sampleActivity("twitter", "post"))
	}
	u.Enqueue(AgentActivity{ActionType: DoNothingActionType})
	u.Enqueue(AgentActivity{ActionType: DoNothingActionType})
	u.Stop()

	skipped, sent, failed := u.Stats()
	assert.Equal(t, uint64(2), skipped)
	assert.Equal(t, uint64(enqueued), sent+failed,
		"every enqueued non-DO_NOTHING action must land in sent or failed")
}

func TestUpdater_FlushesPartialBatchOnStop(t *testing.T) {
	llmClient := &fakeLLM{resp: `{"entities":[{"name":"alice","labels":["Person"]}]}`}
	graphClient := &fakeGraphClient{}
	u := NewUpdater("sim-1", "graph-1", graphClient, llmClient)

	u.Enqueue(sampleActivity("twitter", "post"))
	u.Enqueue(sampleActivity("twitter", "like"))
	u.Stop()

	assert.NotEmpty(t, graphClient.snapshot(), "a below-threshold batch must still flush on shutdown")
}

func TestUpdater_SendsFullBatchWithoutWaitingForStop(t *testing.T) {
	llmClient := &fakeLLM{resp: `{"entities":[{"name":"alice","labels":["Person"]}]}`}
	graphClient := &fakeGraphClient{}
	u := NewUpdater("sim-1", "graph-1", graphClient, llmClient)

	for i := 0; i < BatchSize; i++ {
		u.Enqueue(sampleActivity("twitter", "post"))
	}

	require.Eventually(t, func() bool {
		return len(graphClient.snapshot()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	u.Stop()
}
