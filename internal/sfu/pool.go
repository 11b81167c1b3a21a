// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_sfu

import (
	"fmt"
	"sync"

	"github.com/rapidaai/meet/pkg/commons"
)

// WorkerPool owns a fixed set of workers and hands out routers round-robin.
// A worker found dead at pick time is replaced in place before use, so one
// crashed worker never takes the pool down with it.
type WorkerPool struct {
	mu      sync.Mutex
	engine  Engine
	workers []Worker
	next    int
	logger  commons.Logger
}

func NewWorkerPool(engine Engine, size int, logger commons.Logger) (*WorkerPool, error) {
	if size < 1 {
		size = 1
	}
	pool := &WorkerPool{engine: engine, logger: logger}
	for i := 0; i < size; i++ {
		w, err := engine.CreateWorker()
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("failed to create worker %d: %w", i, err)
		}
		pool.workers = append(pool.workers, w)
	}
	return pool, nil
}

// Size reports how many workers the pool holds.
func (p *WorkerPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Next returns the next worker round-robin, replacing it first if dead.
func (p *WorkerPool) Next() (Worker, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.workers) == 0 {
		return nil, ErrClosed
	}
	idx := p.next % len(p.workers)
	p.next++

	w := p.workers[idx]
	if w.Closed() {
		p.logger.Warnw("replacing dead media worker", "worker", w.Id())
		replacement, err := p.engine.CreateWorker()
		if err != nil {
			return nil, fmt.Errorf("failed to replace dead worker: %w", err)
		}
		p.workers[idx] = replacement
		w = replacement
	}
	return w, nil
}

// CreateRouter picks a worker and creates a router on it.
func (p *WorkerPool) CreateRouter(codecs []RTPCodecParameters) (Router, error) {
	w, err := p.Next()
	if err != nil {
		return nil, err
	}
	return w.CreateRouter(codecs)
}

func (p *WorkerPool) Close() error {
	p.mu.Lock()
	workers := p.workers
	p.workers = nil
	p.mu.Unlock()

	for _, w := range workers {
		_ = w.Close()
	}
	return nil
}
