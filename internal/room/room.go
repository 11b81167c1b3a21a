// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_room

import (
	"errors"
	"fmt"
	"sync"

	internal_sfu "github.com/rapidaai/meet/internal/sfu"
	"github.com/rapidaai/meet/pkg/commons"
)

var (
	ErrRoomClosed          = errors.New("room: room is closed")
	ErrPeerNotFound        = errors.New("room: peer not found")
	ErrPeerExists          = errors.New("room: peer already in room")
	ErrBreakoutNotFound    = errors.New("room: breakout room not found")
	ErrScreenShareOccupied = errors.New("room: another screen share is active in this scope")
)

// MainScope is the scope id of the main meeting floor; breakout scopes use
// the decimal breakout room id.
const MainScope = "main"

// scope is one routing domain inside a room: the main floor or one breakout.
// Peers in the same scope can consume each other, never across scopes.
type scope struct {
	id     string
	router internal_sfu.Router
	peers  map[uint64]*Peer

	// screenPending reserves the scope's single screen-share slot while a
	// produce is in flight between the admission check and registration.
	screenPending bool
}

func (s *scope) peerList() []*Peer {
	out := make([]*Peer, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	return out
}

// Room is the live media state of one meeting: a main router plus zero or
// more breakout routers, all drawn from the same worker pool. The room mutex
// only guards the scope maps; media engine calls happen outside it.
type Room struct {
	mu sync.Mutex

	Code string

	pool      *internal_sfu.WorkerPool
	main      *scope
	breakouts map[uint64]*scope
	closed    bool
	logger    commons.Logger
}

func NewRoom(code string, pool *internal_sfu.WorkerPool, logger commons.Logger) (*Room, error) {
	router, err := pool.CreateRouter(internal_sfu.DefaultRouterCodecs())
	if err != nil {
		return nil, fmt.Errorf("failed to create main router: %w", err)
	}
	return &Room{
		Code:      code,
		pool:      pool,
		main:      &scope{id: MainScope, router: router, peers: make(map[uint64]*Peer)},
		breakouts: make(map[uint64]*scope),
		logger:    logger,
	}, nil
}

func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// findPeer locates a peer and the scope holding it.
func (r *Room) findPeer(userId uint64) (*Peer, *scope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, nil, ErrRoomClosed
	}
	if p, ok := r.main.peers[userId]; ok {
		return p, r.main, nil
	}
	for _, s := range r.breakouts {
		if p, ok := s.peers[userId]; ok {
			return p, s, nil
		}
	}
	return nil, nil, ErrPeerNotFound
}

// AddPeer places a new peer on the main floor.
func (r *Room) AddPeer(userId uint64, name string) (*Peer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRoomClosed
	}
	if _, ok := r.main.peers[userId]; ok {
		return nil, ErrPeerExists
	}
	for _, s := range r.breakouts {
		if _, ok := s.peers[userId]; ok {
			return nil, ErrPeerExists
		}
	}
	p := NewPeer(userId, name)
	r.main.peers[userId] = p
	return p, nil
}

// RemovePeer drops the peer from whatever scope holds it and closes its media.
func (r *Room) RemovePeer(userId uint64) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomClosed
	}
	var peer *Peer
	if p, ok := r.main.peers[userId]; ok {
		peer = p
		delete(r.main.peers, userId)
	} else {
		for _, s := range r.breakouts {
			if p, ok := s.peers[userId]; ok {
				peer = p
				delete(s.peers, userId)
				break
			}
		}
	}
	r.mu.Unlock()

	if peer == nil {
		return ErrPeerNotFound
	}
	peer.Close()
	return nil
}

// PeerScope reports which scope the peer currently sits in.
func (r *Room) PeerScope(userId uint64) (string, error) {
	_, s, err := r.findPeer(userId)
	if err != nil {
		return "", err
	}
	return s.id, nil
}

// PeerIdsInScope lists the user ids currently in a scope.
func (r *Room) PeerIdsInScope(scopeId string) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.scopeById(scopeId)
	if s == nil {
		return nil
	}
	out := make([]uint64, 0, len(s.peers))
	for id := range s.peers {
		out = append(out, id)
	}
	return out
}

func (r *Room) scopeById(scopeId string) *scope {
	if scopeId == MainScope {
		return r.main
	}
	for id, s := range r.breakouts {
		if fmt.Sprintf("%d", id) == scopeId {
			return s
		}
	}
	return nil
}

// RouterCapabilities returns the codec capabilities of the peer's scope.
func (r *Room) RouterCapabilities(userId uint64) (internal_sfu.RTPCapabilities, error) {
	_, s, err := r.findPeer(userId)
	if err != nil {
		return internal_sfu.RTPCapabilities{}, err
	}
	return s.router.Capabilities(), nil
}

// CreateTransport creates one transport leg for the peer on its scope's
// router. At most one per direction.
func (r *Room) CreateTransport(userId uint64, direction internal_sfu.TransportDirection) (internal_sfu.Transport, error) {
	peer, s, err := r.findPeer(userId)
	if err != nil {
		return nil, err
	}
	transport, err := s.router.CreateWebRtcTransport(direction)
	if err != nil {
		return nil, err
	}
	if err := peer.setTransport(direction, transport); err != nil {
		_ = transport.Close()
		return nil, err
	}
	return transport, nil
}

func (r *Room) ConnectTransport(userId uint64, transportId string, dtls internal_sfu.DTLSParameters) error {
	peer, _, err := r.findPeer(userId)
	if err != nil {
		return err
	}
	transport, err := peer.transport(transportId)
	if err != nil {
		return err
	}
	return transport.Connect(dtls)
}

// Produce publishes a track. At most one screen share may be live per scope;
// a second one is rejected before touching the media layer.
func (r *Room) Produce(
	userId uint64,
	transportId string,
	kind internal_sfu.MediaKind,
	rtpParameters internal_sfu.RTPParameters,
	appData internal_sfu.AppData,
) (internal_sfu.Producer, error) {
	peer, s, err := r.findPeer(userId)
	if err != nil {
		return nil, err
	}

	if appData.Type == internal_sfu.AppTypeScreen {
		r.mu.Lock()
		if s.screenPending {
			r.mu.Unlock()
			return nil, ErrScreenShareOccupied
		}
		for _, other := range s.peers {
			if other.hasScreenShare() {
				r.mu.Unlock()
				return nil, ErrScreenShareOccupied
			}
		}
		// Hold the slot until the producer is registered on the peer (or the
		// produce fails), so a concurrent screen produce cannot slip past the
		// scan while the media layer is still working.
		s.screenPending = true
		r.mu.Unlock()
		defer func() {
			r.mu.Lock()
			s.screenPending = false
			r.mu.Unlock()
		}()
	}

	transport, err := peer.transport(transportId)
	if err != nil {
		return nil, err
	}
	producer, err := transport.Produce(kind, rtpParameters, appData)
	if err != nil {
		return nil, err
	}
	if err := peer.addProducer(producer); err != nil {
		_ = producer.Close()
		return nil, err
	}
	r.logger.Infow("peer producing",
		"room", r.Code, "scope", s.id, "user", userId, "producer", producer.Id(), "appType", appData.Type)
	return producer, nil
}

// Consume subscribes the peer to a producer in its own scope, on the peer's
// recv transport.
func (r *Room) Consume(
	userId uint64,
	producerId string,
	caps internal_sfu.RTPCapabilities,
) (internal_sfu.Consumer, error) {
	peer, _, err := r.findPeer(userId)
	if err != nil {
		return nil, err
	}
	transport, err := peer.recv()
	if err != nil {
		return nil, err
	}
	consumer, err := transport.Consume(producerId, caps)
	if err != nil {
		return nil, err
	}
	if err := peer.addConsumer(consumer); err != nil {
		_ = consumer.Close()
		return nil, err
	}
	return consumer, nil
}

// OwnedProducer pairs a live producer with the user publishing it.
type OwnedProducer struct {
	UserId   uint64
	Producer internal_sfu.Producer
}

// OtherProducers lists live producers of every other peer in the caller's
// scope, for the catch-up a newly admitted peer performs.
func (r *Room) OtherProducers(userId uint64) ([]OwnedProducer, error) {
	_, s, err := r.findPeer(userId)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	peers := s.peerList()
	r.mu.Unlock()

	var out []OwnedProducer
	for _, other := range peers {
		if other.UserId == userId {
			continue
		}
		for _, producer := range other.Producers() {
			if !producer.Closed() {
				out = append(out, OwnedProducer{UserId: other.UserId, Producer: producer})
			}
		}
	}
	return out, nil
}

// PeerProducers snapshots the peer's own live producers.
func (r *Room) PeerProducers(userId uint64) ([]internal_sfu.Producer, error) {
	peer, _, err := r.findPeer(userId)
	if err != nil {
		return nil, err
	}
	return peer.Producers(), nil
}

func (r *Room) Producer(userId uint64, producerId string) (internal_sfu.Producer, error) {
	peer, _, err := r.findPeer(userId)
	if err != nil {
		return nil, err
	}
	return peer.producer(producerId)
}

func (r *Room) Consumer(userId uint64, consumerId string) (internal_sfu.Consumer, error) {
	peer, _, err := r.findPeer(userId)
	if err != nil {
		return nil, err
	}
	return peer.consumer(consumerId)
}

// CloseProducer closes one producer and forgets it on the peer.
func (r *Room) CloseProducer(userId uint64, producerId string) error {
	peer, _, err := r.findPeer(userId)
	if err != nil {
		return err
	}
	producer, err := peer.producer(producerId)
	if err != nil {
		return err
	}
	peer.removeProducer(producerId)
	return producer.Close()
}

// CloseConsumer closes one consumer and forgets it on the peer.
func (r *Room) CloseConsumer(userId uint64, consumerId string) error {
	peer, _, err := r.findPeer(userId)
	if err != nil {
		return err
	}
	consumer, err := peer.consumer(consumerId)
	if err != nil {
		return err
	}
	peer.removeConsumer(consumerId)
	return consumer.Close()
}

// ============================================================================
// breakouts
// ============================================================================

// CreateBreakout provisions a dedicated router for one breakout room.
func (r *Room) CreateBreakout(breakoutId uint64) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomClosed
	}
	if _, ok := r.breakouts[breakoutId]; ok {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	router, err := r.pool.CreateRouter(internal_sfu.DefaultRouterCodecs())
	if err != nil {
		return fmt.Errorf("failed to create breakout router: %w", err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = router.Close()
		return ErrRoomClosed
	}
	if _, ok := r.breakouts[breakoutId]; ok {
		r.mu.Unlock()
		_ = router.Close()
		return nil
	}
	r.breakouts[breakoutId] = &scope{
		id:     fmt.Sprintf("%d", breakoutId),
		router: router,
		peers:  make(map[uint64]*Peer),
	}
	r.mu.Unlock()

	r.logger.Infow("breakout router created", "room", r.Code, "breakout", breakoutId)
	return nil
}

// MovePeerToBreakout destroys the peer's media in its current scope and
// recreates an empty peer on the breakout router. The client re-establishes
// transports after the move.
func (r *Room) MovePeerToBreakout(userId uint64, breakoutId uint64) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomClosed
	}
	target, ok := r.breakouts[breakoutId]
	if !ok {
		r.mu.Unlock()
		return ErrBreakoutNotFound
	}
	old, source := r.detachPeerLocked(userId)
	if old == nil {
		r.mu.Unlock()
		return ErrPeerNotFound
	}
	fresh := NewPeer(userId, old.Name)
	target.peers[userId] = fresh
	r.mu.Unlock()

	old.Close()
	r.logger.Infow("peer moved to breakout",
		"room", r.Code, "user", userId, "from", source.id, "breakout", breakoutId)
	return nil
}

// MovePeerToMain is the reverse move back to the main floor.
func (r *Room) MovePeerToMain(userId uint64) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRoomClosed
	}
	if _, ok := r.main.peers[userId]; ok {
		r.mu.Unlock()
		return nil
	}
	old, _ := r.detachPeerLocked(userId)
	if old == nil {
		r.mu.Unlock()
		return ErrPeerNotFound
	}
	fresh := NewPeer(userId, old.Name)
	r.main.peers[userId] = fresh
	r.mu.Unlock()

	old.Close()
	r.logger.Infow("peer moved to main", "room", r.Code, "user", userId)
	return nil
}

// detachPeerLocked removes the peer from whichever scope holds it without
// closing it. Caller holds r.mu.
func (r *Room) detachPeerLocked(userId uint64) (*Peer, *scope) {
	if p, ok := r.main.peers[userId]; ok {
		delete(r.main.peers, userId)
		return p, r.main
	}
	for _, s := range r.breakouts {
		if p, ok := s.peers[userId]; ok {
			delete(s.peers, userId)
			return p, s
		}
	}
	return nil, nil
}

// CloseBreakout moves every peer in the breakout back to main and tears the
// breakout router down. Returns the ids of the moved users.
func (r *Room) CloseBreakout(breakoutId uint64) ([]uint64, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRoomClosed
	}
	s, ok := r.breakouts[breakoutId]
	if !ok {
		r.mu.Unlock()
		return nil, ErrBreakoutNotFound
	}
	delete(r.breakouts, breakoutId)
	moved := make([]uint64, 0, len(s.peers))
	olds := make([]*Peer, 0, len(s.peers))
	for id, p := range s.peers {
		moved = append(moved, id)
		olds = append(olds, p)
		r.main.peers[id] = NewPeer(id, p.Name)
	}
	s.peers = make(map[uint64]*Peer)
	r.mu.Unlock()

	for _, p := range olds {
		p.Close()
	}
	_ = s.router.Close()
	r.logger.Infow("breakout closed", "room", r.Code, "breakout", breakoutId, "moved", len(moved))
	return moved, nil
}

// CloseAllBreakouts closes every breakout; all their peers land on main.
func (r *Room) CloseAllBreakouts() ([]uint64, error) {
	r.mu.Lock()
	ids := make([]uint64, 0, len(r.breakouts))
	for id := range r.breakouts {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var moved []uint64
	for _, id := range ids {
		users, err := r.CloseBreakout(id)
		if err != nil && !errors.Is(err, ErrBreakoutNotFound) {
			return moved, err
		}
		moved = append(moved, users...)
	}
	return moved, nil
}

// Empty reports whether no peer remains in any scope.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.main.peers) > 0 {
		return false
	}
	for _, s := range r.breakouts {
		if len(s.peers) > 0 {
			return false
		}
	}
	return true
}

// Close tears down every peer and every router. Idempotent.
func (r *Room) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	peers := r.main.peerList()
	routers := []internal_sfu.Router{r.main.router}
	for _, s := range r.breakouts {
		peers = append(peers, s.peerList()...)
		routers = append(routers, s.router)
	}
	r.main.peers = make(map[uint64]*Peer)
	r.breakouts = make(map[uint64]*scope)
	r.mu.Unlock()

	for _, p := range peers {
		p.Close()
	}
	for _, router := range routers {
		_ = router.Close()
	}
	r.logger.Infow("room closed", "room", r.Code)
	return nil
}
