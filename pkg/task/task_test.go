package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestRegistry_CreateStartsPendingZeroProgress(t *testing.T) {
	r := NewRegistry()
	id := r.Create("ontology", nil)

	tk, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, StatusPending, tk.Status)
	assert.Equal(t, 0, tk.Progress)
}

func TestRegistry_UpdateUnknownIDIsNoop(t *testing.T) {
	r := NewRegistry()
	ok := r.Update("does-not-exist", Update{Message: strPtr("x")})
	assert.False(t, ok)
}

func TestRegistry_ProgressMonotonicWhileProcessing(t *testing.T) {
	r := NewRegistry()
	id := r.Create("graph_build", nil)

	processing := StatusProcessing
	r.Update(id, Update{Status: &processing, Progress: intPtr(50)})
	r.Update(id, Update{Progress: intPtr(20)}) // regression, ignored
	r.Update(id, Update{Progress: intPtr(70)}) // forward, applied

	tk, _ := r.Get(id)
	assert.Equal(t, 70, tk.Progress)
}

func TestRegistry_ProgressNotMonotonicOutsideProcessing(t *testing.T) {
	r := NewRegistry()
	id := r.Create("graph_build", nil)
	// still pending: no monotonic clamp applies
	r.Update(id, Update{Progress: intPtr(50)})
	r.Update(id, Update{Progress: intPtr(10)})

	tk, _ := r.Get(id)
	assert.Equal(t, 10, tk.Progress)
}

func TestRegistry_CompleteSetsStatusAndProgress(t *testing.T) {
	r := NewRegistry()
	id := r.Create("report", nil)
	r.Complete(id, map[string]any{"ok": true})

	tk, _ := r.Get(id)
	assert.Equal(t, StatusCompleted, tk.Status)
	assert.Equal(t, 100, tk.Progress)
	assert.Equal(t, map[string]any{"ok": true}, tk.Result)
}

func TestRegistry_FailSetsStatusAndError(t *testing.T) {
	r := NewRegistry()
	id := r.Create("report", nil)
	r.Fail(id, "boom")

	tk, _ := r.Get(id)
	assert.Equal(t, StatusFailed, tk.Status)
	assert.Equal(t, "boom", tk.Error)
}

func TestRegistry_GetReturnsSnapshotNotReference(t *testing.T) {
	r := NewRegistry()
	id := r.Create("ontology", nil)

	snap, _ := r.Get(id)
	snap.Message = "mutated locally"

	fresh, _ := r.Get(id)
	assert.NotEqual(t, "mutated locally", fresh.Message)
}

func TestRegistry_ListSortedByCreatedAtDescending(t *testing.T) {
	r := NewRegistry()
	id1 := r.Create("a", nil)
	time.Sleep(time.Millisecond)
	id2 := r.Create("b", nil)
	time.Sleep(time.Millisecond)
	id3 := r.Create("c", nil)

	all := r.List(Filter{})
	require.Len(t, all, 3)
	assert.Equal(t, id3, all[0].ID)
	assert.Equal(t, id2, all[1].ID)
	assert.Equal(t, id1, all[2].ID)
}

func TestRegistry_ListFiltersByTypeAndStatus(t *testing.T) {
	r := NewRegistry()
	id1 := r.Create("graph_build", nil)
	id2 := r.Create("report", nil)
	r.Complete(id2, nil)

	byType := r.List(Filter{Type: "graph_build"})
	require.Len(t, byType, 1)
	assert.Equal(t, id1, byType[0].ID)

	byStatus := r.List(Filter{Status: StatusCompleted})
	require.Len(t, byStatus, 1)
	assert.Equal(t, id2, byStatus[0].ID)
}

func TestRegistry_CleanupOlderThanRemovesOnlyTerminalAndStale(t *testing.T) {
	r := NewRegistry()
	idDone := r.Create("a", nil)
	r.Complete(idDone, nil)
	r.tasks[idDone].UpdatedAt = time.Now().Add(-time.Hour)

	idRecent := r.Create("b", nil)
	r.Complete(idRecent, nil) // terminal but fresh

	idPending := r.Create("c", nil)
	r.tasks[idPending].UpdatedAt = time.Now().Add(-time.Hour) // stale but not terminal

	removed := r.CleanupOlderThan(time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := r.Get(idDone)
	assert.False(t, ok)
	_, ok = r.Get(idRecent)
	assert.True(t, ok)
	_, ok = r.Get(idPending)
	assert.True(t, ok)
}
