// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"log/slog"
	"sync/atomic"

	"github.com/jeranaias/filechat/internal/storage"
)

// writeQueueSize bounds queued writes; a full queue makes the mutating
// command wait, it never drops or reorders a write.
const writeQueueSize = 64

type writeJob struct {
	key     string
	value   string
	remove  bool
	barrier chan struct{}
}

// persister applies writes to a KV store strictly in the order they were
// queued, from a single goroutine.
type persister struct {
	kv     storage.KV
	jobs   chan writeJob
	done   chan struct{}
	logger *slog.Logger

	failures atomic.Int64
}

func newPersister(kv storage.KV, logger *slog.Logger) *persister {
	p := &persister{
		kv:     kv,
		jobs:   make(chan writeJob, writeQueueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go p.run()
	return p
}

func (p *persister) run() {
	defer close(p.done)
	for job := range p.jobs {
		if job.barrier != nil {
			close(job.barrier)
			continue
		}

		var err error
		if job.remove {
			err = p.kv.Remove(job.key)
		} else {
			err = p.kv.Set(job.key, job.value)
		}
		if err != nil {
			// RELIABILITY: Persistence failures never block the conversation
			p.failures.Add(1)
			p.logger.Error("persist failed", "key", job.key, "remove", job.remove, "error", err)
		}
	}
}

func (p *persister) set(key, value string) {
	p.jobs <- writeJob{key: key, value: value}
}

func (p *persister) remove(key string) {
	p.jobs <- writeJob{key: key, remove: true}
}

// barrier returns a channel closed once every write queued before it has
// been applied.
func (p *persister) barrier() <-chan struct{} {
	ch := make(chan struct{})
	p.jobs <- writeJob{barrier: ch}
	return ch
}

// close stops accepting writes and waits for the queue to drain.
func (p *persister) close() {
	close(p.jobs)
	<-p.done
}
