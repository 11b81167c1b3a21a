// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_room

import (
	"errors"
	"sync"

	internal_sfu "github.com/rapidaai/meet/internal/sfu"
)

var (
	ErrPeerClosed        = errors.New("room: peer is closed")
	ErrTransportExists   = errors.New("room: transport already exists for direction")
	ErrTransportNotFound = errors.New("room: transport not found")
	ErrProducerNotFound  = errors.New("room: producer not found")
	ErrConsumerNotFound  = errors.New("room: consumer not found")
)

// Peer is one user's media state inside a single routing scope. A peer owns
// at most one transport per direction; moving a peer between scopes destroys
// the peer and creates a fresh one on the target router.
type Peer struct {
	mu sync.Mutex

	UserId uint64
	Name   string

	sendTransport internal_sfu.Transport
	recvTransport internal_sfu.Transport
	producers     map[string]internal_sfu.Producer
	consumers     map[string]internal_sfu.Consumer
	closed        bool
}

func NewPeer(userId uint64, name string) *Peer {
	return &Peer{
		UserId:    userId,
		Name:      name,
		producers: make(map[string]internal_sfu.Producer),
		consumers: make(map[string]internal_sfu.Consumer),
	}
}

func (p *Peer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// setTransport installs a transport for its direction, rejecting a second
// one. Returns the transport back for convenience.
func (p *Peer) setTransport(direction internal_sfu.TransportDirection, t internal_sfu.Transport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	switch direction {
	case internal_sfu.DirectionSend:
		if p.sendTransport != nil {
			return ErrTransportExists
		}
		p.sendTransport = t
	case internal_sfu.DirectionRecv:
		if p.recvTransport != nil {
			return ErrTransportExists
		}
		p.recvTransport = t
	default:
		return ErrTransportNotFound
	}
	return nil
}

func (p *Peer) transport(id string) (internal_sfu.Transport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPeerClosed
	}
	if p.sendTransport != nil && p.sendTransport.Id() == id {
		return p.sendTransport, nil
	}
	if p.recvTransport != nil && p.recvTransport.Id() == id {
		return p.recvTransport, nil
	}
	return nil, ErrTransportNotFound
}

func (p *Peer) recv() (internal_sfu.Transport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPeerClosed
	}
	if p.recvTransport == nil {
		return nil, ErrTransportNotFound
	}
	return p.recvTransport, nil
}

func (p *Peer) addProducer(producer internal_sfu.Producer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	p.producers[producer.Id()] = producer
	return nil
}

func (p *Peer) producer(id string) (internal_sfu.Producer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPeerClosed
	}
	producer, ok := p.producers[id]
	if !ok {
		return nil, ErrProducerNotFound
	}
	return producer, nil
}

func (p *Peer) removeProducer(id string) {
	p.mu.Lock()
	delete(p.producers, id)
	p.mu.Unlock()
}

// Producers snapshots the peer's live producers.
func (p *Peer) Producers() []internal_sfu.Producer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]internal_sfu.Producer, 0, len(p.producers))
	for _, producer := range p.producers {
		out = append(out, producer)
	}
	return out
}

func (p *Peer) addConsumer(consumer internal_sfu.Consumer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	p.consumers[consumer.Id()] = consumer
	return nil
}

func (p *Peer) consumer(id string) (internal_sfu.Consumer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPeerClosed
	}
	consumer, ok := p.consumers[id]
	if !ok {
		return nil, ErrConsumerNotFound
	}
	return consumer, nil
}

func (p *Peer) removeConsumer(id string) {
	p.mu.Lock()
	delete(p.consumers, id)
	p.mu.Unlock()
}

// hasScreenShare reports whether the peer currently publishes a screen track.
func (p *Peer) hasScreenShare() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, producer := range p.producers {
		if producer.AppData().Type == internal_sfu.AppTypeScreen && !producer.Closed() {
			return true
		}
	}
	return false
}

// Close tears down everything the peer owns. Idempotent; closing transports
// cascades into producers and consumers at the media layer, the maps here
// are cleared so later lookups fail cleanly.
func (p *Peer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	send, recv := p.sendTransport, p.recvTransport
	p.sendTransport, p.recvTransport = nil, nil
	p.producers = make(map[string]internal_sfu.Producer)
	p.consumers = make(map[string]internal_sfu.Consumer)
	p.mu.Unlock()

	if send != nil {
		_ = send.Close()
	}
	if recv != nil {
		_ = recv.Close()
	}
}
