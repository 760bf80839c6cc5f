package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/socialsim/pkg/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store, *Store) {
	t.Helper()
	fs, err := store.New(t.TempDir())
	require.NoError(t, err)
	sims := New(fs)
	// IsPrepared never reaches the reader/profile/config collaborators, so a
	// Manager built with nil ones is sufficient to exercise the
	// idempotent-resumption check in isolation.
	mgr := NewManager(fs, sims, nil, nil, nil)
	return mgr, fs, sims
}

func writeAllFour(t *testing.T, fs *store.Store, simID string) {
	t.Helper()
	require.NoError(t, fs.WriteJSONAtomic(fs.SimulationConfigPath(simID), map[string]int{}))
	require.NoError(t, fs.WriteJSONAtomic(fs.RedditProfilesPath(simID), []int{}))
	require.NoError(t, fs.WriteBytesAtomic(fs.TwitterProfilesPath(simID), []byte("user_id,name,username,user_char,description\n")))
}

func TestIsPrepared_FalseWhenFilesMissing(t *testing.T) {
	mgr, fs, sims := newTestManager(t)

	sim, err := sims.Create("proj-1", "graph-1", true, true)
	require.NoError(t, err)
	_ = fs

	ok, err := mgr.IsPrepared(sim.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsPrepared_TrueWhenReadyAndAllFilesPresent(t *testing.T) {
	mgr, fs, sims := newTestManager(t)

	sim, err := sims.Create("proj-1", "graph-1", true, true)
	require.NoError(t, err)
	require.NoError(t, sims.Transition(sim, StatusPreparing))
	sim.ConfigGenerated = true
	require.NoError(t, sims.Transition(sim, StatusReady))
	writeAllFour(t, fs, sim.ID)

	ok, err := mgr.IsPrepared(sim.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsPrepared_FalseWhenConfigNotGenerated(t *testing.T) {
	mgr, fs, sims := newTestManager(t)

	sim, err := sims.Create("proj-1", "graph-1", true, true)
	require.NoError(t, err)
	require.NoError(t, sims.Transition(sim, StatusPreparing))
	require.NoError(t, sims.Transition(sim, StatusReady)) // ConfigGenerated left false
	writeAllFour(t, fs, sim.ID)

	ok, err := mgr.IsPrepared(sim.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsPrepared_PreparingWithAllFilesAutoUpgradesToReady(t *testing.T) {
	mgr, fs, sims := newTestManager(t)

	sim, err := sims.Create("proj-1", "graph-1", true, true)
	require.NoError(t, err)
	require.NoError(t, sims.Transition(sim, StatusPreparing))
	sim.ConfigGenerated = true
	require.NoError(t, sims.Save(sim)) // persist ConfigGenerated while still "preparing"
	writeAllFour(t, fs, sim.ID)

	ok, err := mgr.IsPrepared(sim.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	reloaded, err := sims.Get(sim.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, reloaded.Status)
}

func TestIsPrepared_RepeatedCallsAreIdempotent(t *testing.T) {
	mgr, fs, sims := newTestManager(t)

	sim, err := sims.Create("proj-1", "graph-1", true, true)
	require.NoError(t, err)
	require.NoError(t, sims.Transition(sim, StatusPreparing))
	sim.ConfigGenerated = true
	require.NoError(t, sims.Transition(sim, StatusReady))
	writeAllFour(t, fs, sim.ID)

	ok1, err := mgr.IsPrepared(sim.ID)
	require.NoError(t, err)
	ok2, err := mgr.IsPrepared(sim.ID)
	require.NoError(t, err)
	assert.True(t, ok1)
	assert.True(t, ok2)
}
