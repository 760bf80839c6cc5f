package runner

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/socialsim/pkg/simulation"
	"github.com/kadirpekel/socialsim/pkg/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	fs, err := store.New(t.TempDir())
	require.NoError(t, err)
	return fs
}

func TestApplyLine_AgentActionUpdatesRingBufferAndCount(t *testing.T) {
	fs := newTestStore(t)
	simStore := simulation.New(fs)
	sim, err := simStore.Create("p1", "g1", true, false)
	require.NoError(t, err)

	r := New(fs, simStore, nil)
	rc := &running{state: &RunState{Platforms: map[string]*PlatformRunState{"twitter": {}}}, done: make(chan struct{})}

	line := []byte(`{"round":1,"agent_id":3,"agent_name":"alice","action_type":"post","action_args":{"content":"hi"}}`)
	r.applyLine(sim.ID, rc, "twitter", line)

	assert.Equal(t, 1, rc.state.Platforms["twitter"].ActionCount)
	require.Len(t, rc.state.RecentActions, 1)
	assert.Equal(t, "alice", rc.state.RecentActions[0].AgentName)
}

func TestApplyLine_RoundEndUpdatesGlobalMax(t *testing.T) {
	fs := newTestStore(t)
	simStore := simulation.New(fs)
	sim, err := simStore.Create("p1", "g1", true, true)
	require.NoError(t, err)

	r := New(fs, simStore, nil)
	rc := &running{state: &RunState{Platforms: map[string]*PlatformRunState{
		"twitter": {}, "reddit": {},
	}}, done: make(chan struct{})}

	r.applyLine(sim.ID, rc, "twitter", []byte(`{"event_type":"round_end","current_round":5,"simulated_hours":2.5}`))
	r.applyLine(sim.ID, rc, "reddit", []byte(`{"event_type":"round_end","current_round":3,"simulated_hours":1.0}`))

	assert.Equal(t, 5, rc.state.CurrentRound)
	assert.Equal(t, 2.5, rc.state.SimulatedHours)
}

func TestApplyLine_SimulationEndMarksPlatformCompleted(t *testing.T) {
	fs := newTestStore(t)
	simStore := simulation.New(fs)
	sim, err := simStore.Create("p1", "g1", true, false)
	require.NoError(t, err)

	r := New(fs, simStore, nil)
	rc := &running{state: &RunState{Platforms: map[string]*PlatformRunState{"twitter": {Running: true}}}, done: make(chan struct{})}

	r.applyLine(sim.ID, rc, "twitter", []byte(`{"event_type":"simulation_end"}`))

	assert.True(t, rc.state.Platforms["twitter"].Completed)
	assert.False(t, rc.state.Platforms["twitter"].Running)
}

func TestMonitorCompletesAssoonAsAllPlatformsSignalEnd_WithoutWaitingForExit(t *testing.T) {
	fs := newTestStore(t)
	simStore := simulation.New(fs)
	sim, err := simStore.Create("p1", "g1", true, true)
	require.NoError(t, err)
	require.NoError(t, simStore.Transition(sim, simulation.StatusPreparing))
	require.NoError(t, simStore.Transition(sim, simulation.StatusReady))
	require.NoError(t, simStore.Transition(sim, simulation.StatusRunning))

	r := New(fs, simStore, nil)
	rc := &running{state: &RunState{Platforms: map[string]*PlatformRunState{
		"twitter": {Running: true}, "reddit": {Running: true},
	}}, done: make(chan struct{})}

	r.applyLine(sim.ID, rc, "twitter", []byte(`{"event_type":"simulation_end"}`))
	assert.False(t, rc.consumeCompletionReady(), "not all platforms have completed yet")

	r.applyLine(sim.ID, rc, "reddit", []byte(`{"event_type":"simulation_end"}`))
	assert.True(t, rc.consumeCompletionReady(), "both platforms completed, monitor should be ready to finalize")
	assert.False(t, rc.consumeCompletionReady(), "flag is consumed and cleared on read")

	r.completeFromMonitor(sim, rc)

	assert.Equal(t, RunnerComplete, rc.state.RunnerStatus)
	require.NotNil(t, rc.state.CompletedAt)

	reloaded, err := simStore.Get(sim.ID)
	require.NoError(t, err)
	assert.Equal(t, simulation.StatusCompleted, reloaded.Status)
}

func TestRecentActionsRingBuffer_CapsAtMaxSize(t *testing.T) {
	fs := newTestStore(t)
	simStore := simulation.New(fs)
	sim, err := simStore.Create("p1", "g1", true, false)
	require.NoError(t, err)

	r := New(fs, simStore, nil)
	rc := &running{state: &RunState{Platforms: map[string]*PlatformRunState{"twitter": {}}}, done: make(chan struct{})}

	for i := 0; i < RecentActionsBufferSize+10; i++ {
		line := []byte(`{"round":1,"agent_id":1,"agent_name":"a","action_type":"post","action_args":{}}`)
		r.applyLine(sim.ID, rc, "twitter", line)
	}

	assert.Len(t, rc.state.RecentActions, RecentActionsBufferSize)
}

func TestGetAllActions_ParsesAndFiltersByAgent(t *testing.T) {
	fs := newTestStore(t)
	simStore := simulation.New(fs)
	sim, err := simStore.Create("p1", "g1", true, false)
	require.NoError(t, err)

	dir := filepath.Join(fs.PlatformDir(sim.ID, "twitter"))
	require.NoError(t, os.MkdirAll(dir, 0755))
	content := `{"round":1,"agent_id":1,"agent_name":"a","action_type":"post","action_args":{}}
{"event_type":"round_end","current_round":1,"simulated_hours":1}
{"round":1,"agent_id":2,"agent_name":"b","action_type":"like","action_args":{}}
`
	require.NoError(t, os.WriteFile(fs.ActionsLogPath(sim.ID, "twitter"), []byte(content), 0644))

	r := New(fs, simStore, nil)
	agentID := 1
	actions, err := r.GetAllActions(sim.ID, []string{"twitter"}, ActionFilter{AgentID: &agentID})
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "a", actions[0].AgentName)
}

func TestGetActions_PagesResults(t *testing.T) {
	fs := newTestStore(t)
	simStore := simulation.New(fs)
	sim, err := simStore.Create("p1", "g1", true, false)
	require.NoError(t, err)

	dir := fs.PlatformDir(sim.ID, "twitter")
	require.NoError(t, os.MkdirAll(dir, 0755))
	var content string
	for i := 0; i < 5; i++ {
		content += `{"round":1,"agent_id":1,"agent_name":"a","action_type":"post","action_args":{}}` + "\n"
	}
	require.NoError(t, os.WriteFile(fs.ActionsLogPath(sim.ID, "twitter"), []byte(content), 0644))

	r := New(fs, simStore, nil)
	page, err := r.GetActions(sim.ID, []string{"twitter"}, ActionFilter{}, 2, 1)
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestStop_TerminatesProcessGroupAndPersistsStopped(t *testing.T) {
	fs := newTestStore(t)
	simStore := simulation.New(fs)
	sim, err := simStore.Create("p1", "g1", true, false)
	require.NoError(t, err)
	require.NoError(t, simStore.Transition(sim, simulation.StatusPreparing))
	require.NoError(t, simStore.Transition(sim, simulation.StatusReady))
	require.NoError(t, simStore.Transition(sim, simulation.StatusRunning))

	cmd := exec.Command("sleep", "60")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())

	rc := &running{
		cmd:  cmd,
		pgid: cmd.Process.Pid,
		state: &RunState{
			RunnerStatus: RunnerRunning,
			PID:          cmd.Process.Pid,
			Platforms:    map[string]*PlatformRunState{"twitter": {Running: true}},
		},
		done: make(chan struct{}),
	}
	go func() {
		_ = cmd.Wait()
		close(rc.done)
	}()

	r := New(fs, simStore, nil)
	r.mu.Lock()
	r.children[sim.ID] = rc
	r.mu.Unlock()

	require.NoError(t, r.Stop(context.Background(), sim.ID))

	var persisted RunState
	require.NoError(t, fs.ReadJSON(fs.RunStatePath(sim.ID), &persisted))
	assert.Equal(t, RunnerStopped, persisted.RunnerStatus)

	reloaded, err := simStore.Get(sim.ID)
	require.NoError(t, err)
	assert.Equal(t, simulation.StatusStopped, reloaded.Status)

	// The whole process group must be gone shortly after Stop returns.
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if err := syscall.Kill(-rc.pgid, syscall.Signal(0)); err != nil {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("process group still alive after Stop")
}
