// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_sfu

// ============================================================================
// Media engine contract
// ============================================================================

// Engine creates workers. The meeting service only ever talks to the media
// stack through this contract, so tests can run on the in-memory engine and
// production on the pion engine.
type Engine interface {
	CreateWorker() (Worker, error)
}

// Worker is an isolated media processor hosting routers. All routers pinned
// to a worker die with it.
type Worker interface {
	Id() string
	CreateRouter(codecs []RTPCodecParameters) (Router, error)
	Closed() bool
	Close() error
}

// Router is an isolated routing domain; producers and consumers created on
// the same router can interconnect, routers never leak media to each other.
type Router interface {
	Id() string
	Capabilities() RTPCapabilities

	CreateWebRtcTransport(direction TransportDirection) (Transport, error)

	// CanConsume probes codec compatibility between an existing producer and
	// a client's receive capabilities.
	CanConsume(producerId string, caps RTPCapabilities) bool

	Closed() bool
	Close() error
}

// TransportDirection distinguishes the client→server and server→client legs.
type TransportDirection string

const (
	DirectionSend TransportDirection = "send"
	DirectionRecv TransportDirection = "recv"
)

// Transport is one WebRTC connection leg between a client and a router.
type Transport interface {
	Id() string
	Params() TransportParams

	// Connect completes the DTLS handshake. Idempotent per transport.
	Connect(dtls DTLSParameters) error

	Produce(kind MediaKind, rtpParameters RTPParameters, appData AppData) (Producer, error)

	// Consume binds a new consumer to producerId. Consumers are always
	// created paused; the client resumes once its sink is attached.
	Consume(producerId string, caps RTPCapabilities) (Consumer, error)

	Closed() bool
	Close() error
}

// Producer is an outbound media track registered on a send transport.
type Producer interface {
	Id() string
	Kind() MediaKind
	AppData() AppData
	RTPParameters() RTPParameters
	Paused() bool
	Pause() error
	Resume() error
	Closed() bool
	Close() error
}

// Consumer is an inbound media track paired to one producer.
type Consumer interface {
	Id() string
	ProducerId() string
	Kind() MediaKind
	AppData() AppData
	RTPParameters() RTPParameters
	Paused() bool
	Pause() error
	Resume() error
	SetPreferredLayers(layers PreferredLayers) error
	PreferredLayers() PreferredLayers
	Closed() bool
	Close() error
}
