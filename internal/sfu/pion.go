// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_sfu

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"

	"github.com/rapidaai/meet/pkg/commons"
)

// ============================================================================
// pion-backed engine
// ============================================================================

// EngineConfig is the addressing handed to every worker.
type EngineConfig struct {
	ListenIp    string
	AnnouncedIp string
	RtcMinPort  uint16
	RtcMaxPort  uint16
}

type pionEngine struct {
	cfg     EngineConfig
	logger  commons.Logger
	factory logging.LoggerFactory
}

// NewPionEngine builds the production media engine on pion/webrtc. Each
// worker gets its own API instances; all transports share the configured
// UDP port range and announce cfg.AnnouncedIp to clients.
func NewPionEngine(cfg EngineConfig, logger commons.Logger) Engine {
	return &pionEngine{
		cfg:     cfg,
		logger:  logger,
		factory: logging.NewDefaultLoggerFactory(),
	}
}

func (e *pionEngine) CreateWorker() (Worker, error) {
	w := &pionWorker{
		id:      uuid.New().String(),
		engine:  e,
		routers: make(map[string]*pionRouter),
	}
	e.logger.Infow("media worker created", "worker", w.id)
	return w, nil
}

// ============================================================================
// Worker
// ============================================================================

type pionWorker struct {
	mu      sync.Mutex
	id      string
	engine  *pionEngine
	routers map[string]*pionRouter
	closed  bool
}

func (w *pionWorker) Id() string { return w.id }

func (w *pionWorker) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *pionWorker) CreateRouter(codecs []RTPCodecParameters) (Router, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrWorkerDead
	}
	w.mu.Unlock()

	mediaEngine := &webrtc.MediaEngine{}
	for _, c := range codecs {
		kind := webrtc.RTPCodecTypeVideo
		if strings.HasPrefix(strings.ToLower(c.MimeType), "audio/") {
			kind = webrtc.RTPCodecTypeAudio
		}
		if err := mediaEngine.RegisterCodec(webrtc.RTPCodecParameters{
			RTPCodecCapability: webrtc.RTPCodecCapability{
				MimeType:    c.MimeType,
				ClockRate:   c.ClockRate,
				Channels:    c.Channels,
				SDPFmtpLine: c.SDPFmtpLine,
			},
			PayloadType: webrtc.PayloadType(c.PayloadType),
		}, kind); err != nil {
			return nil, fmt.Errorf("failed to register codec %s: %w", c.MimeType, err)
		}
	}

	registry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("failed to register interceptors: %w", err)
	}

	settings := webrtc.SettingEngine{LoggerFactory: w.engine.factory}
	settings.SetLite(true)
	if w.engine.cfg.RtcMinPort > 0 && w.engine.cfg.RtcMaxPort > 0 {
		if err := settings.SetEphemeralUDPPortRange(w.engine.cfg.RtcMinPort, w.engine.cfg.RtcMaxPort); err != nil {
			return nil, fmt.Errorf("failed to set rtc port range: %w", err)
		}
	}
	// Bind candidate gathering to the configured listen address; 0.0.0.0
	// keeps every interface eligible.
	if listen := net.ParseIP(w.engine.cfg.ListenIp); listen != nil && !listen.IsUnspecified() {
		settings.SetIPFilter(func(ip net.IP) bool { return ip.Equal(listen) })
	}
	if w.engine.cfg.AnnouncedIp != "" {
		settings.SetNAT1To1IPs([]string{w.engine.cfg.AnnouncedIp}, webrtc.ICECandidateTypeHost)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(registry),
		webrtc.WithSettingEngine(settings),
	)

	r := &pionRouter{
		id:         uuid.New().String(),
		worker:     w,
		api:        api,
		codecs:     codecs,
		transports: make(map[string]*pionTransport),
		producers:  make(map[string]*pionProducer),
		logger:     w.engine.logger,
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrWorkerDead
	}
	w.routers[r.id] = r
	w.mu.Unlock()

	w.engine.logger.Infow("router created", "worker", w.id, "router", r.id)
	return r, nil
}

func (w *pionWorker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	routers := make([]*pionRouter, 0, len(w.routers))
	for _, r := range w.routers {
		routers = append(routers, r)
	}
	w.routers = make(map[string]*pionRouter)
	w.mu.Unlock()

	for _, r := range routers {
		_ = r.Close()
	}
	return nil
}

// ============================================================================
// Router
// ============================================================================

type pionRouter struct {
	mu         sync.Mutex
	id         string
	worker     *pionWorker
	api        *webrtc.API
	codecs     []RTPCodecParameters
	transports map[string]*pionTransport
	producers  map[string]*pionProducer
	closed     bool
	logger     commons.Logger
}

func (r *pionRouter) Id() string { return r.id }

func (r *pionRouter) Capabilities() RTPCapabilities {
	return CapabilitiesOf(r.codecs)
}

func (r *pionRouter) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *pionRouter) CreateWebRtcTransport(direction TransportDirection) (Transport, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrClosed
	}
	r.mu.Unlock()
	if r.worker.Closed() {
		return nil, ErrWorkerDead
	}

	gatherer, err := r.api.NewICEGatherer(webrtc.ICEGatherOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create ice gatherer: %w", err)
	}
	ice := r.api.NewICETransport(gatherer)
	dtls, err := r.api.NewDTLSTransport(ice, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create dtls transport: %w", err)
	}

	gatherDone := make(chan struct{})
	gatherer.OnLocalCandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			close(gatherDone)
		}
	})
	if err := gatherer.Gather(); err != nil {
		return nil, fmt.Errorf("ice gathering failed: %w", err)
	}
	<-gatherDone

	iceParams, err := gatherer.GetLocalParameters()
	if err != nil {
		return nil, fmt.Errorf("failed to read ice parameters: %w", err)
	}
	candidates, err := gatherer.GetLocalCandidates()
	if err != nil {
		return nil, fmt.Errorf("failed to read ice candidates: %w", err)
	}
	dtlsParams, err := dtls.GetLocalParameters()
	if err != nil {
		return nil, fmt.Errorf("failed to read dtls parameters: %w", err)
	}

	t := &pionTransport{
		id:        uuid.New().String(),
		direction: direction,
		router:    r,
		gatherer:  gatherer,
		ice:       ice,
		dtls:      dtls,
		producers: make(map[string]*pionProducer),
		consumers: make(map[string]*pionConsumer),
		logger:    r.logger,
	}
	t.params = TransportParams{
		Id:            t.id,
		IceParameters: ICEParameters{UsernameFragment: iceParams.UsernameFragment, Password: iceParams.Password},
		DtlsParameters: DTLSParameters{
			Role:         dtlsParams.Role.String(),
			Fingerprints: toFingerprints(dtlsParams.Fingerprints),
		},
	}
	for _, c := range candidates {
		t.params.IceCandidates = append(t.params.IceCandidates, ICECandidateInfo{
			Foundation: c.Foundation,
			Priority:   c.Priority,
			Address:    c.Address,
			Protocol:   c.Protocol.String(),
			Port:       c.Port,
			Type:       c.Typ.String(),
		})
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = t.Close()
		return nil, ErrClosed
	}
	r.transports[t.id] = t
	r.mu.Unlock()

	r.logger.Debugw("transport created", "router", r.id, "transport", t.id, "direction", direction)
	return t, nil
}

func (r *pionRouter) CanConsume(producerId string, caps RTPCapabilities) bool {
	r.mu.Lock()
	producer, ok := r.producers[producerId]
	r.mu.Unlock()
	if !ok || producer.Closed() {
		return false
	}
	producerMime := strings.ToLower(producer.codec.MimeType)
	for _, c := range caps.Codecs {
		if strings.ToLower(c.MimeType) == producerMime {
			return true
		}
	}
	return false
}

func (r *pionRouter) producer(id string) (*pionProducer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.producers[id]
	return p, ok
}

func (r *pionRouter) registerProducer(p *pionProducer) {
	r.mu.Lock()
	r.producers[p.id] = p
	r.mu.Unlock()
}

func (r *pionRouter) unregisterProducer(id string) {
	r.mu.Lock()
	delete(r.producers, id)
	r.mu.Unlock()
}

func (r *pionRouter) unregisterTransport(id string) {
	r.mu.Lock()
	delete(r.transports, id)
	r.mu.Unlock()
}

func (r *pionRouter) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	transports := make([]*pionTransport, 0, len(r.transports))
	for _, t := range r.transports {
		transports = append(transports, t)
	}
	r.transports = make(map[string]*pionTransport)
	r.producers = make(map[string]*pionProducer)
	r.mu.Unlock()

	for _, t := range transports {
		_ = t.Close()
	}
	return nil
}

// ============================================================================
// Transport
// ============================================================================

type pionTransport struct {
	mu        sync.Mutex
	id        string
	direction TransportDirection
	router    *pionRouter
	params    TransportParams

	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport

	connected bool
	closed    bool

	producers map[string]*pionProducer
	consumers map[string]*pionConsumer

	logger commons.Logger
}

func (t *pionTransport) Id() string              { return t.id }
func (t *pionTransport) Params() TransportParams { return t.params }

func (t *pionTransport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Connect starts ICE (controlled side, we are ice-lite) and DTLS with the
// client's parameters. A second call on a connected transport is a no-op so
// that client retries are harmless.
func (t *pionTransport) Connect(dtlsParams DTLSParameters) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.connected {
		t.mu.Unlock()
		return nil
	}
	t.connected = true
	t.mu.Unlock()

	if dtlsParams.Ice == nil {
		t.mu.Lock()
		t.connected = false
		t.mu.Unlock()
		return fmt.Errorf("%w: missing remote ice parameters", ErrInvalidState)
	}

	iceRole := webrtc.ICERoleControlled
	if err := t.ice.Start(nil, webrtc.ICEParameters{
		UsernameFragment: dtlsParams.Ice.UsernameFragment,
		Password:         dtlsParams.Ice.Password,
	}, &iceRole); err != nil {
		return fmt.Errorf("ice start failed: %w", err)
	}

	remote := webrtc.DTLSParameters{
		Role:         dtlsRoleFrom(dtlsParams.Role),
		Fingerprints: fromFingerprints(dtlsParams.Fingerprints),
	}
	if err := t.dtls.Start(remote); err != nil {
		return fmt.Errorf("dtls start failed: %w", err)
	}

	// Advertise the per-transport receive cap to the sender.
	_, _ = t.dtls.WriteRTCP([]rtcp.Packet{
		&rtcp.ReceiverEstimatedMaximumBitrate{Bitrate: float32(MaxIncomingBitrate)},
	})

	t.logger.Debugw("transport connected", "transport", t.id)
	return nil
}

func (t *pionTransport) Produce(kind MediaKind, rtpParameters RTPParameters, appData AppData) (Producer, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.mu.Unlock()

	if len(rtpParameters.Codecs) == 0 || len(rtpParameters.Encodings) == 0 {
		return nil, fmt.Errorf("%w: produce requires codecs and encodings", ErrInvalidState)
	}

	codecType := webrtc.RTPCodecTypeVideo
	if kind == KindAudio {
		codecType = webrtc.RTPCodecTypeAudio
	}
	receiver, err := t.router.api.NewRTPReceiver(codecType, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("failed to create rtp receiver: %w", err)
	}

	recvParams := webrtc.RTPReceiveParameters{}
	for _, enc := range rtpParameters.Encodings {
		recvParams.Encodings = append(recvParams.Encodings, webrtc.RTPDecodingParameters{
			RTPCodingParameters: webrtc.RTPCodingParameters{
				SSRC: webrtc.SSRC(enc.SSRC),
				RID:  enc.Rid,
			},
		})
	}
	if err := receiver.Receive(recvParams); err != nil {
		return nil, fmt.Errorf("rtp receive failed: %w", err)
	}

	p := &pionProducer{
		id:        uuid.New().String(),
		kind:      kind,
		appData:   appData,
		rtpParams: rtpParameters,
		codec:     rtpParameters.Codecs[0].RTPCodecCapability,
		transport: t,
		receiver:  receiver,
		consumers: make(map[string]*pionConsumer),
		done:      make(chan struct{}),
		logger:    t.logger,
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = receiver.Stop()
		return nil, ErrClosed
	}
	t.producers[p.id] = p
	t.mu.Unlock()
	t.router.registerProducer(p)

	go p.forward()

	t.logger.Infow("producer created",
		"transport", t.id, "producer", p.id, "kind", kind, "appType", appData.Type)
	return p, nil
}

func (t *pionTransport) Consume(producerId string, caps RTPCapabilities) (Consumer, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.mu.Unlock()

	producer, ok := t.router.producer(producerId)
	if !ok || producer.Closed() {
		return nil, ErrProducerNotFound
	}
	if !t.router.CanConsume(producerId, caps) {
		return nil, ErrCodecIncompatible
	}

	local, err := webrtc.NewTrackLocalStaticRTP(webrtc.RTPCodecCapability{
		MimeType:    producer.codec.MimeType,
		ClockRate:   producer.codec.ClockRate,
		Channels:    producer.codec.Channels,
		SDPFmtpLine: producer.codec.SDPFmtpLine,
	}, uuid.New().String(), "meet-"+string(producer.appData.Type))
	if err != nil {
		return nil, fmt.Errorf("failed to create local track: %w", err)
	}

	sender, err := t.router.api.NewRTPSender(local, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("failed to create rtp sender: %w", err)
	}
	if err := sender.Send(sender.GetParameters()); err != nil {
		return nil, fmt.Errorf("rtp send failed: %w", err)
	}

	c := &pionConsumer{
		id:         uuid.New().String(),
		producer:   producer,
		transport:  t,
		sender:     sender,
		local:      local,
		paused:     true, // always created paused
		preferred:  PreferredLayers{Spatial: 1, Temporal: 2},
		logger:     t.logger,
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = sender.Stop()
		return nil, ErrClosed
	}
	t.consumers[c.id] = c
	t.mu.Unlock()

	if err := producer.attach(c); err != nil {
		t.mu.Lock()
		delete(t.consumers, c.id)
		t.mu.Unlock()
		_ = sender.Stop()
		return nil, err
	}

	t.logger.Infow("consumer created",
		"transport", t.id, "consumer", c.id, "producer", producerId)
	return c, nil
}

func (t *pionTransport) removeProducer(id string) {
	t.mu.Lock()
	delete(t.producers, id)
	t.mu.Unlock()
}

func (t *pionTransport) removeConsumer(id string) {
	t.mu.Lock()
	delete(t.consumers, id)
	t.mu.Unlock()
}

// Close cascades over everything created on this transport: producers and
// consumers first, then DTLS and ICE.
func (t *pionTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	producers := make([]*pionProducer, 0, len(t.producers))
	for _, p := range t.producers {
		producers = append(producers, p)
	}
	consumers := make([]*pionConsumer, 0, len(t.consumers))
	for _, c := range t.consumers {
		consumers = append(consumers, c)
	}
	t.producers = make(map[string]*pionProducer)
	t.consumers = make(map[string]*pionConsumer)
	t.mu.Unlock()

	for _, p := range producers {
		_ = p.Close()
	}
	for _, c := range consumers {
		_ = c.Close()
	}
	_ = t.dtls.Stop()
	_ = t.ice.Stop()
	t.router.unregisterTransport(t.id)
	return nil
}

// ============================================================================
// Producer
// ============================================================================

type pionProducer struct {
	mu        sync.Mutex
	id        string
	kind      MediaKind
	appData   AppData
	rtpParams RTPParameters
	codec     RTPCodecCapability
	transport *pionTransport
	receiver  *webrtc.RTPReceiver
	consumers map[string]*pionConsumer
	paused    bool
	closed    bool
	done      chan struct{}
	logger    commons.Logger
}

func (p *pionProducer) Id() string                   { return p.id }
func (p *pionProducer) Kind() MediaKind              { return p.kind }
func (p *pionProducer) AppData() AppData             { return p.appData }
func (p *pionProducer) RTPParameters() RTPParameters { return p.rtpParams }

func (p *pionProducer) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *pionProducer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.paused = true
	return nil
}

func (p *pionProducer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.paused = false
	return nil
}

func (p *pionProducer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *pionProducer) attach(c *pionConsumer) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.consumers[c.id] = c
	return nil
}

func (p *pionProducer) detach(id string) {
	p.mu.Lock()
	delete(p.consumers, id)
	p.mu.Unlock()
}

// requestKeyFrame asks the publishing client for a fresh keyframe via PLI.
// Called when a video consumer resumes or switches layers.
func (p *pionProducer) requestKeyFrame() {
	if p.kind != KindVideo {
		return
	}
	track := p.receiver.Track()
	if track == nil {
		return
	}
	_, _ = p.transport.dtls.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())},
	})
}

// forward is the per-producer fan-out loop: read RTP from the remote track,
// clone, and write to every attached unpaused consumer.
func (p *pionProducer) forward() {
	track := p.receiver.Track()
	if track == nil {
		return
	}
	for {
		select {
		case <-p.done:
			return
		default:
		}

		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		p.mu.Lock()
		if p.paused || p.closed {
			p.mu.Unlock()
			continue
		}
		consumers := make([]*pionConsumer, 0, len(p.consumers))
		for _, c := range p.consumers {
			consumers = append(consumers, c)
		}
		p.mu.Unlock()

		for _, c := range consumers {
			if c.Paused() {
				continue
			}
			clone := *pkt
			if pkt.Payload != nil {
				clone.Payload = append([]byte(nil), pkt.Payload...)
			}
			_ = c.writeRTP(&clone)
		}
	}
}

func (p *pionProducer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	consumers := make([]*pionConsumer, 0, len(p.consumers))
	for _, c := range p.consumers {
		consumers = append(consumers, c)
	}
	p.consumers = make(map[string]*pionConsumer)
	p.mu.Unlock()

	for _, c := range consumers {
		_ = c.Close()
	}
	_ = p.receiver.Stop()
	p.transport.router.unregisterProducer(p.id)
	p.transport.removeProducer(p.id)
	return nil
}

// ============================================================================
// Consumer
// ============================================================================

type pionConsumer struct {
	mu        sync.Mutex
	id        string
	producer  *pionProducer
	transport *pionTransport
	sender    *webrtc.RTPSender
	local     *webrtc.TrackLocalStaticRTP
	paused    bool
	closed    bool
	preferred PreferredLayers
	logger    commons.Logger
}

func (c *pionConsumer) Id() string                   { return c.id }
func (c *pionConsumer) ProducerId() string           { return c.producer.id }
func (c *pionConsumer) Kind() MediaKind              { return c.producer.kind }
func (c *pionConsumer) AppData() AppData             { return c.producer.appData }
func (c *pionConsumer) RTPParameters() RTPParameters { return c.producer.rtpParams }

func (c *pionConsumer) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *pionConsumer) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.paused = true
	return nil
}

func (c *pionConsumer) Resume() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.paused = false
	c.mu.Unlock()

	// The consumer missed everything while paused; start it on a keyframe.
	c.producer.requestKeyFrame()
	return nil
}

func (c *pionConsumer) SetPreferredLayers(layers PreferredLayers) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.preferred = layers
	c.mu.Unlock()

	c.producer.requestKeyFrame()
	return nil
}

func (c *pionConsumer) PreferredLayers() PreferredLayers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preferred
}

func (c *pionConsumer) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *pionConsumer) writeRTP(pkt *rtp.Packet) error {
	return c.local.WriteRTP(pkt)
}

func (c *pionConsumer) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.producer.detach(c.id)
	c.transport.removeConsumer(c.id)
	return c.sender.Stop()
}

// ============================================================================
// conversions
// ============================================================================

func toFingerprints(in []webrtc.DTLSFingerprint) []DTLSFingerprint {
	out := make([]DTLSFingerprint, 0, len(in))
	for _, f := range in {
		out = append(out, DTLSFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}
	return out
}

func fromFingerprints(in []DTLSFingerprint) []webrtc.DTLSFingerprint {
	out := make([]webrtc.DTLSFingerprint, 0, len(in))
	for _, f := range in {
		out = append(out, webrtc.DTLSFingerprint{Algorithm: f.Algorithm, Value: f.Value})
	}
	return out
}

func dtlsRoleFrom(role string) webrtc.DTLSRole {
	switch strings.ToLower(role) {
	case "server":
		return webrtc.DTLSRoleServer
	case "client":
		return webrtc.DTLSRoleClient
	default:
		return webrtc.DTLSRoleAuto
	}
}
