package simconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_NoLLMProducesValidDefaults(t *testing.T) {
	s := NewSynthesizer(nil)
	entities := []Entity{
		{AgentID: 0, EntityType: "Official", Name: "City Hall"},
		{AgentID: 1, EntityType: "Student", Name: "Alice"},
		{AgentID: 2, EntityType: "Student", Name: "Bob"},
	}

	params, err := s.Generate(context.Background(), entities, "simulate a local dispute", false)
	require.NoError(t, err)

	assert.LessOrEqual(t, params.TimeConfig.AgentsPerHourMin, params.TimeConfig.AgentsPerHourMax)
	assert.Len(t, params.AgentConfigs, 3)
	assert.Contains(t, params.Platforms, PlatformTwitter)
	assert.Contains(t, params.Platforms, PlatformReddit)
}

func TestAssignInitialPosts_ExactTypeMatch(t *testing.T) {
	agents := []AgentConfig{
		{AgentID: 0, InfluenceWeight: 0.9},
		{AgentID: 1, InfluenceWeight: 0.2},
	}
	entities := []Entity{
		{AgentID: 0, EntityType: "Official"},
		{AgentID: 1, EntityType: "Student"},
	}
	event := &EventConfig{InitialPosts: []InitialPost{{Content: "c", PosterType: "Official"}}}

	assignInitialPosts(event, agents, entities)

	assert.Equal(t, 0, event.InitialPosts[0].PosterAgentID)
}

func TestAssignInitialPosts_FallsBackToHighestInfluence(t *testing.T) {
	agents := []AgentConfig{
		{AgentID: 0, InfluenceWeight: 0.3},
		{AgentID: 1, InfluenceWeight: 0.8},
	}
	entities := []Entity{
		{AgentID: 0, EntityType: "Student"},
		{AgentID: 1, EntityType: "Student"},
	}
	event := &EventConfig{InitialPosts: []InitialPost{{Content: "c", PosterType: "Official"}}}

	assignInitialPosts(event, agents, entities)

	assert.Equal(t, 1, event.InitialPosts[0].PosterAgentID)
}

func TestAssignInitialPosts_AliasFallback(t *testing.T) {
	agents := []AgentConfig{{AgentID: 0, InfluenceWeight: 0.5}}
	entities := []Entity{{AgentID: 0, EntityType: "University"}}
	event := &EventConfig{InitialPosts: []InitialPost{{Content: "c", PosterType: "Official"}}}

	assignInitialPosts(event, agents, entities)

	assert.Equal(t, 0, event.InitialPosts[0].PosterAgentID)
}

func TestAssignInitialPosts_Totality(t *testing.T) {
	agents := []AgentConfig{
		{AgentID: 0, InfluenceWeight: 0.1},
		{AgentID: 1, InfluenceWeight: 0.4},
		{AgentID: 2, InfluenceWeight: 0.9},
	}
	entities := []Entity{
		{AgentID: 0, EntityType: "Student"},
		{AgentID: 1, EntityType: "Student"},
		{AgentID: 2, EntityType: "Media"},
	}
	validIDs := map[int]bool{0: true, 1: true, 2: true}

	event := &EventConfig{InitialPosts: []InitialPost{
		{Content: "a", PosterType: "Official"},
		{Content: "b", PosterType: "Student"},
		{Content: "c", PosterType: "Student"},
	}}

	assignInitialPosts(event, agents, entities)

	for _, p := range event.InitialPosts {
		assert.True(t, validIDs[p.PosterAgentID])
	}
	// round-robin over Student candidates: the two Student posts should not
	// collapse onto a single agent.
	assert.NotEqual(t, event.InitialPosts[1].PosterAgentID, event.InitialPosts[2].PosterAgentID)
}

func TestRuleBasedAgentConfig_VariesByType(t *testing.T) {
	org := ruleBasedAgentConfig(Entity{AgentID: 0, EntityType: "Government"})
	student := ruleBasedAgentConfig(Entity{AgentID: 1, EntityType: "Student"})

	assert.Greater(t, org.InfluenceWeight, student.InfluenceWeight)
	assert.Less(t, org.ActivityLevel, student.ActivityLevel)
}
