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

package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kadirpekel/socialsim/pkg/graph"
	"github.com/kadirpekel/socialsim/pkg/llm"
)

// Updater is one simulation's GraphMemoryUpdater pipeline: the monitor loop
// is the producer (Enqueue), a single background goroutine is the consumer.
type Updater struct {
	simulationID string
	graphID      string
	graphClient  graph.Client
	llmClient    llm.Client

	queue chan AgentActivity
	drain chan struct{}
	done  chan struct{}
	once  sync.Once

	skipped uint64
	sent    uint64
	failed  uint64
	mu      sync.Mutex
}

// NewUpdater creates an Updater. The queue is a channel buffered to 4096
// activities, not unbounded: when it is full, Enqueue blocks until the
// worker takes one off or has exited. Callers own graphClient/llmClient
// lifetimes.
func NewUpdater(simulationID, graphID string, graphClient graph.Client, llmClient llm.Client) *Updater {
	u := &Updater{
		simulationID: simulationID,
		graphID:      graphID,
		graphClient:  graphClient,
		llmClient:    llmClient,
		queue:        make(chan AgentActivity, 4096),
		drain:        make(chan struct{}),
		done:         make(chan struct{}),
	}
	go u.run()
	return u
}

// Enqueue adds one activity to the pipeline. DO_NOTHING actions are dropped
// and counted as skipped.
func (u *Updater) Enqueue(a AgentActivity) {
	if a.ActionType == DoNothingActionType {
		u.mu.Lock()
		u.skipped++
		u.mu.Unlock()
		return
	}
	select {
	case u.queue <- a:
	case <-u.done:
	}
}

// Stats returns the skipped/sent/failed counters. Every enqueued
// non-DO_NOTHING action increments exactly one of sent or failed, so
// skipped+sent+failed equals the number of Enqueue calls.
func (u *Updater) Stats() (skipped, sent, failed uint64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.skipped, u.sent, u.failed
}

// Stop drains the queue, flushes every platform's remaining buffer
// unconditionally, then joins the worker with a 10s bound.
func (u *Updater) Stop() {
	u.once.Do(func() { close(u.drain) })
	select {
	case <-u.done:
	case <-time.After(10 * time.Second):
		slog.Warn("memory updater did not shut down within bound", "simulation_id", u.simulationID)
	}
}

func (u *Updater) run() {
	defer close(u.done)

	buffers := map[string][]AgentActivity{}
	ticker := time.NewTicker(SendInterval)
	defer ticker.Stop()

	flushAll := func() {
		for platform, batch := range buffers {
			if len(batch) == 0 {
				continue
			}
			u.sendBatch(platform, batch)
			buffers[platform] = nil
			time.Sleep(SendInterval)
		}
	}

	for {
		select {
		case a, ok := <-u.queue:
			if !ok {
				flushAll()
				return
			}
			buffers[a.Platform] = append(buffers[a.Platform], a)
			if len(buffers[a.Platform]) >= BatchSize {
				u.sendBatch(a.Platform, buffers[a.Platform])
				buffers[a.Platform] = nil
				time.Sleep(SendInterval)
			}

		case <-ticker.C:
			// periodic wake-up only; sends happen on a full batch or on
			// drain, each followed by a SendInterval pause.

		case <-u.drain:
			u.drainQueue(buffers)
			flushAll()
			return
		}
	}
}

// drainQueue empties whatever is already queued (non-blocking) before the
// final flush.
func (u *Updater) drainQueue(buffers map[string][]AgentActivity) {
	for {
		select {
		case a, ok := <-u.queue:
			if !ok {
				return
			}
			buffers[a.Platform] = append(buffers[a.Platform], a)
		default:
			return
		}
	}
}

// sendBatch renders, extracts, and upserts one platform's batch, retrying
// up to sendRetries times with linear backoff on failure.
func (u *Updater) sendBatch(platform string, batch []AgentActivity) {
	episodeText := renderBatch(batch)

	var lastErr error
	for attempt := 0; attempt <= sendRetries; attempt++ {
		if err := u.sendOnce(episodeText); err != nil {
			lastErr = err
			if attempt < sendRetries {
				time.Sleep(sendRetryDelay * time.Duration(attempt+1))
			}
			continue
		}
		u.mu.Lock()
		u.sent += uint64(len(batch))
		u.mu.Unlock()
		return
	}

	u.mu.Lock()
	u.failed += uint64(len(batch))
	u.mu.Unlock()
	slog.Error("graph memory batch send failed permanently",
		"simulation_id", u.simulationID, "platform", platform, "error", lastErr)
}

func (u *Updater) sendOnce(episodeText string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entities, err := extractEntities(ctx, u.llmClient, episodeText)
	if err != nil {
		return err
	}
	return upsertExtracted(ctx, u.graphClient, u.graphID, entities, time.Now())
}
