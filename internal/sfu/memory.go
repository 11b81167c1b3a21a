// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_sfu

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ============================================================================
// in-memory engine
// ============================================================================

// NewMemoryEngine builds an engine with the same contract as the pion one
// but without any networking. Used by tests and by local single-process
// tooling that only needs the room bookkeeping.
func NewMemoryEngine() Engine {
	return &memoryEngine{}
}

type memoryEngine struct{}

func (e *memoryEngine) CreateWorker() (Worker, error) {
	return &memoryWorker{
		id:      uuid.New().String(),
		routers: make(map[string]*memoryRouter),
	}, nil
}

type memoryWorker struct {
	mu      sync.Mutex
	id      string
	routers map[string]*memoryRouter
	closed  bool
}

func (w *memoryWorker) Id() string { return w.id }

func (w *memoryWorker) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *memoryWorker) CreateRouter(codecs []RTPCodecParameters) (Router, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrWorkerDead
	}
	r := &memoryRouter{
		id:         uuid.New().String(),
		worker:     w,
		codecs:     codecs,
		transports: make(map[string]*memoryTransport),
		producers:  make(map[string]*memoryProducer),
	}
	w.routers[r.id] = r
	return r, nil
}

func (w *memoryWorker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	routers := make([]*memoryRouter, 0, len(w.routers))
	for _, r := range w.routers {
		routers = append(routers, r)
	}
	w.routers = make(map[string]*memoryRouter)
	w.mu.Unlock()

	for _, r := range routers {
		_ = r.Close()
	}
	return nil
}

type memoryRouter struct {
	mu         sync.Mutex
	id         string
	worker     *memoryWorker
	codecs     []RTPCodecParameters
	transports map[string]*memoryTransport
	producers  map[string]*memoryProducer
	closed     bool
}

func (r *memoryRouter) Id() string { return r.id }

func (r *memoryRouter) Capabilities() RTPCapabilities {
	return CapabilitiesOf(r.codecs)
}

func (r *memoryRouter) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *memoryRouter) CreateWebRtcTransport(direction TransportDirection) (Transport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if r.worker.Closed() {
		return nil, ErrWorkerDead
	}
	t := &memoryTransport{
		id:        uuid.New().String(),
		direction: direction,
		router:    r,
		producers: make(map[string]*memoryProducer),
		consumers: make(map[string]*memoryConsumer),
	}
	t.params = TransportParams{
		Id:            t.id,
		IceParameters: ICEParameters{UsernameFragment: "mem-ufrag", Password: "mem-pwd"},
		IceCandidates: []ICECandidateInfo{{
			Foundation: "0",
			Priority:   1,
			Address:    "127.0.0.1",
			Protocol:   "udp",
			Port:       5000,
			Type:       "host",
		}},
		DtlsParameters: DTLSParameters{
			Role: "auto",
			Fingerprints: []DTLSFingerprint{{
				Algorithm: "sha-256",
				Value:     "00:11:22:33",
			}},
		},
	}
	r.transports[t.id] = t
	return t, nil
}

func (r *memoryRouter) CanConsume(producerId string, caps RTPCapabilities) bool {
	r.mu.Lock()
	producer, ok := r.producers[producerId]
	r.mu.Unlock()
	if !ok || producer.Closed() {
		return false
	}
	producerMime := strings.ToLower(producer.rtpParams.Codecs[0].MimeType)
	for _, c := range caps.Codecs {
		if strings.ToLower(c.MimeType) == producerMime {
			return true
		}
	}
	return false
}

func (r *memoryRouter) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	transports := make([]*memoryTransport, 0, len(r.transports))
	for _, t := range r.transports {
		transports = append(transports, t)
	}
	r.transports = make(map[string]*memoryTransport)
	r.producers = make(map[string]*memoryProducer)
	r.mu.Unlock()

	for _, t := range transports {
		_ = t.Close()
	}
	return nil
}

type memoryTransport struct {
	mu        sync.Mutex
	id        string
	direction TransportDirection
	router    *memoryRouter
	params    TransportParams
	connected bool
	closed    bool
	producers map[string]*memoryProducer
	consumers map[string]*memoryConsumer
}

func (t *memoryTransport) Id() string              { return t.id }
func (t *memoryTransport) Params() TransportParams { return t.params }

func (t *memoryTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *memoryTransport) Connect(dtls DTLSParameters) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	t.connected = true
	return nil
}

func (t *memoryTransport) Produce(kind MediaKind, rtpParameters RTPParameters, appData AppData) (Producer, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.mu.Unlock()

	if len(rtpParameters.Codecs) == 0 {
		return nil, ErrInvalidState
	}

	p := &memoryProducer{
		id:        uuid.New().String(),
		kind:      kind,
		appData:   appData,
		rtpParams: rtpParameters,
		transport: t,
	}

	t.mu.Lock()
	t.producers[p.id] = p
	t.mu.Unlock()

	t.router.mu.Lock()
	t.router.producers[p.id] = p
	t.router.mu.Unlock()
	return p, nil
}

func (t *memoryTransport) Consume(producerId string, caps RTPCapabilities) (Consumer, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.mu.Unlock()

	t.router.mu.Lock()
	producer, ok := t.router.producers[producerId]
	t.router.mu.Unlock()
	if !ok || producer.Closed() {
		return nil, ErrProducerNotFound
	}
	if !t.router.CanConsume(producerId, caps) {
		return nil, ErrCodecIncompatible
	}

	c := &memoryConsumer{
		id:        uuid.New().String(),
		producer:  producer,
		transport: t,
		paused:    true,
		preferred: PreferredLayers{Spatial: 1, Temporal: 2},
	}
	t.mu.Lock()
	t.consumers[c.id] = c
	t.mu.Unlock()
	return c, nil
}

func (t *memoryTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	producers := make([]*memoryProducer, 0, len(t.producers))
	for _, p := range t.producers {
		producers = append(producers, p)
	}
	consumers := make([]*memoryConsumer, 0, len(t.consumers))
	for _, c := range t.consumers {
		consumers = append(consumers, c)
	}
	t.producers = make(map[string]*memoryProducer)
	t.consumers = make(map[string]*memoryConsumer)
	t.mu.Unlock()

	for _, p := range producers {
		_ = p.Close()
	}
	for _, c := range consumers {
		_ = c.Close()
	}
	return nil
}

type memoryProducer struct {
	mu        sync.Mutex
	id        string
	kind      MediaKind
	appData   AppData
	rtpParams RTPParameters
	transport *memoryTransport
	paused    bool
	closed    bool
}

func (p *memoryProducer) Id() string                   { return p.id }
func (p *memoryProducer) Kind() MediaKind              { return p.kind }
func (p *memoryProducer) AppData() AppData             { return p.appData }
func (p *memoryProducer) RTPParameters() RTPParameters { return p.rtpParams }

func (p *memoryProducer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *memoryProducer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.paused = true
	return nil
}

func (p *memoryProducer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.paused = false
	return nil
}

func (p *memoryProducer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *memoryProducer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.transport.router.mu.Lock()
	delete(p.transport.router.producers, p.id)
	p.transport.router.mu.Unlock()
	return nil
}

type memoryConsumer struct {
	mu        sync.Mutex
	id        string
	producer  *memoryProducer
	transport *memoryTransport
	paused    bool
	closed    bool
	preferred PreferredLayers
}

func (c *memoryConsumer) Id() string                   { return c.id }
func (c *memoryConsumer) ProducerId() string           { return c.producer.id }
func (c *memoryConsumer) Kind() MediaKind              { return c.producer.kind }
func (c *memoryConsumer) AppData() AppData             { return c.producer.appData }
func (c *memoryConsumer) RTPParameters() RTPParameters { return c.producer.rtpParams }

func (c *memoryConsumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *memoryConsumer) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.paused = true
	return nil
}

func (c *memoryConsumer) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.paused = false
	return nil
}

func (c *memoryConsumer) SetPreferredLayers(layers PreferredLayers) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.preferred = layers
	return nil
}

func (c *memoryConsumer) PreferredLayers() PreferredLayers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preferred
}

func (c *memoryConsumer) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *memoryConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
