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

package runner

import (
	"bufio"
	"encoding/json"
	"os"
	"sort"

	"github.com/kadirpekel/socialsim/pkg/orcherrors"
)

// ActionFilter narrows GetAllActions/GetActions to a subset of records.
// Zero values mean "no filter" for that field.
type ActionFilter struct {
	Platform string
	AgentID  *int
	Round    *int
}

// GetAllActions parses the full action logs for every enabled platform on
// each call and applies filter.
func (r *Runner) GetAllActions(simID string, platforms []string, filter ActionFilter) ([]AgentAction, error) {
	var out []AgentAction
	for _, pf := range platforms {
		if filter.Platform != "" && filter.Platform != pf {
			continue
		}
		actions, err := r.readPlatformActions(simID, pf)
		if err != nil {
			return nil, err
		}
		for _, a := range actions {
			if filter.AgentID != nil && a.AgentID != *filter.AgentID {
				continue
			}
			if filter.Round != nil && a.Round != *filter.Round {
				continue
			}
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (r *Runner) readPlatformActions(simID, platform string) ([]AgentAction, error) {
	f, err := os.Open(r.fs.ActionsLogPath(simID, platform))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, orcherrors.Fatalf("runner.read_actions", err, "failed to open actions log for %s/%s", simID, platform)
	}
	defer f.Close()

	var out []AgentAction
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		var disc rawLine
		if err := json.Unmarshal(line, &disc); err != nil || disc.AgentID == nil {
			continue
		}
		var action AgentAction
		if err := json.Unmarshal(line, &action); err != nil {
			continue
		}
		action.Platform = platform
		out = append(out, action)
	}
	return out, nil
}

// GetActions pages GetAllActions's result by offset/limit.
func (r *Runner) GetActions(simID string, platforms []string, filter ActionFilter, limit, offset int) ([]AgentAction, error) {
	all, err := r.GetAllActions(simID, platforms, filter)
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// RoundSummary aggregates one round's actions for GetTimeline.
type RoundSummary struct {
	Round       int `json:"round"`
	ActionCount int `json:"action_count"`
}

// GetTimeline aggregates actions per round across the given platforms.
func (r *Runner) GetTimeline(simID string, platforms []string) ([]RoundSummary, error) {
	all, err := r.GetAllActions(simID, platforms, ActionFilter{})
	if err != nil {
		return nil, err
	}
	byRound := map[int]int{}
	for _, a := range all {
		byRound[a.Round]++
	}
	rounds := make([]int, 0, len(byRound))
	for round := range byRound {
		rounds = append(rounds, round)
	}
	sort.Ints(rounds)
	out := make([]RoundSummary, 0, len(rounds))
	for _, round := range rounds {
		out = append(out, RoundSummary{Round: round, ActionCount: byRound[round]})
	}
	return out, nil
}

// AgentStats aggregates one agent's activity for GetAgentStats.
type AgentStats struct {
	AgentID     int            `json:"agent_id"`
	AgentName   string         `json:"agent_name"`
	ActionCount int            `json:"action_count"`
	ByType      map[string]int `json:"by_type"`
}

// GetAgentStats aggregates actions per agent across the given platforms.
func (r *Runner) GetAgentStats(simID string, platforms []string) (map[int]*AgentStats, error) {
	all, err := r.GetAllActions(simID, platforms, ActionFilter{})
	if err != nil {
		return nil, err
	}
	stats := map[int]*AgentStats{}
	for _, a := range all {
		s := stats[a.AgentID]
		if s == nil {
			s = &AgentStats{AgentID: a.AgentID, AgentName: a.AgentName, ByType: map[string]int{}}
			stats[a.AgentID] = s
		}
		s.ActionCount++
		s.ByType[a.ActionType]++
	}
	return stats, nil
}
