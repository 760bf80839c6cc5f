package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)
	return s
}

func TestNew_CreatesTopLevelSubtrees(t *testing.T) {
	s := newTestStore(t)

	for _, dir := range []string{
		filepath.Join(s.Root(), "uploads", "projects"),
		filepath.Join(s.Root(), "uploads", "simulations"),
		filepath.Join(s.Root(), "uploads", "reports"),
		s.LogsDir(),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestPathDerivation_ProjectsSimulationsReports(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, filepath.Join(s.ProjectDir("p1"), "project.json"), s.ProjectJSONPath("p1"))
	assert.Equal(t, filepath.Join(s.ProjectDir("p1"), "files"), s.ProjectFilesDir("p1"))
	assert.Equal(t, filepath.Join(s.SimulationDir("s1"), "state.json"), s.SimulationStatePath("s1"))
	assert.Equal(t, filepath.Join(s.SimulationDir("s1"), "twitter", "actions.jsonl"), s.ActionsLogPath("s1", "twitter"))
	assert.Equal(t, filepath.Join(s.ReportDir("r1"), "section_02.md"), s.ReportSectionPath("r1", 2))
	assert.Equal(t, filepath.Join(s.ReportDir("r1"), "section_10.md"), s.ReportSectionPath("r1", 10))
}

func TestDailyLogPath_FormatsByDay(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join(s.LogsDir(), "2026-07-29.log"), s.DailyLogPath(day))
}

func TestWriteJSONAtomic_RoundTripsAndNoTempFileSurvives(t *testing.T) {
	s := newTestStore(t)
	path := s.ProjectJSONPath("p1")

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, s.WriteJSONAtomic(path, payload{Name: "alice"}))

	var got payload
	require.NoError(t, s.ReadJSON(path, &got))
	assert.Equal(t, "alice", got.Name)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

func TestWriteJSONAtomic_OverwritesPreviousContent(t *testing.T) {
	s := newTestStore(t)
	path := s.SimulationStatePath("s1")

	require.NoError(t, s.WriteJSONAtomic(path, map[string]string{"status": "created"}))
	require.NoError(t, s.WriteJSONAtomic(path, map[string]string{"status": "running"}))

	var got map[string]string
	require.NoError(t, s.ReadJSON(path, &got))
	assert.Equal(t, "running", got["status"])
}

func TestReadJSON_MissingFileReturnsNotExist(t *testing.T) {
	s := newTestStore(t)
	var v map[string]string
	err := s.ReadJSON(s.ProjectJSONPath("missing"), &v)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestAppendLine_AppendsWithTrailingNewline(t *testing.T) {
	s := newTestStore(t)
	path := filepath.Join(s.ReportDir("r1"), "agent_log.jsonl")

	require.NoError(t, s.AppendLine(path, `{"a":1}`))
	require.NoError(t, s.AppendLine(path, `{"a":2}`))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n", string(data))
}

func TestExistsAndRemove(t *testing.T) {
	s := newTestStore(t)
	path := s.ProjectJSONPath("p1")

	assert.False(t, s.Exists(path))
	require.NoError(t, s.WriteJSONAtomic(path, map[string]int{"x": 1}))
	assert.True(t, s.Exists(path))

	require.NoError(t, s.Remove(path))
	assert.False(t, s.Exists(path))

	// removing an already-absent file is not an error
	require.NoError(t, s.Remove(path))
}

func TestListSubdirs_SortingLeftToCaller(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteJSONAtomic(s.ProjectJSONPath("p1"), map[string]int{}))
	require.NoError(t, s.WriteJSONAtomic(s.ProjectJSONPath("p2"), map[string]int{}))

	ids, err := s.ListProjectIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p1", "p2"}, ids)
}

func TestListProjectIDs_EmptyWhenRootAbsent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.RemoveAll(filepath.Join(s.Root(), "uploads", "projects")))

	ids, err := s.ListProjectIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
