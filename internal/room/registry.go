// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_room

import (
	"sync"

	internal_sfu "github.com/rapidaai/meet/internal/sfu"
	"github.com/rapidaai/meet/pkg/commons"
)

// Registry maps meeting codes to live rooms. Rooms are created lazily on
// first admission and dropped when the meeting ends or goes idle.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Room
	pool   *internal_sfu.WorkerPool
	logger commons.Logger
}

func NewRegistry(pool *internal_sfu.WorkerPool, logger commons.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		pool:   pool,
		logger: logger,
	}
}

// GetOrCreate returns the live room for a meeting code, creating it when the
// first participant arrives.
func (g *Registry) GetOrCreate(code string) (*Room, error) {
	g.mu.Lock()
	if room, ok := g.rooms[code]; ok && !room.Closed() {
		g.mu.Unlock()
		return room, nil
	}
	g.mu.Unlock()

	room, err := NewRoom(code, g.pool, g.logger)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if existing, ok := g.rooms[code]; ok && !existing.Closed() {
		g.mu.Unlock()
		_ = room.Close()
		return existing, nil
	}
	g.rooms[code] = room
	g.mu.Unlock()

	g.logger.Infow("room created", "room", code)
	return room, nil
}

// Get returns the live room for a code, or nil.
func (g *Registry) Get(code string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	room, ok := g.rooms[code]
	if !ok || room.Closed() {
		return nil
	}
	return room
}

// Remove closes and forgets the room for a code.
func (g *Registry) Remove(code string) {
	g.mu.Lock()
	room, ok := g.rooms[code]
	delete(g.rooms, code)
	g.mu.Unlock()
	if ok {
		_ = room.Close()
	}
}

// Count reports the number of live rooms.
func (g *Registry) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// Close tears down every room.
func (g *Registry) Close() {
	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.rooms = make(map[string]*Room)
	g.mu.Unlock()

	for _, room := range rooms {
		_ = room.Close()
	}
}
