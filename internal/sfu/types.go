// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_sfu

import "errors"

// MediaKind is the track media type.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// AppType classifies what a producer carries at the application level.
// Screen shares are video-kind producers with AppType "screen".
type AppType string

const (
	AppTypeAudio  AppType = "audio"
	AppTypeVideo  AppType = "video"
	AppTypeScreen AppType = "screen"
)

// AppData travels with a producer from produce request to every consumer.
type AppData struct {
	Type AppType `json:"type"`
}

var (
	ErrClosed            = errors.New("sfu: resource is closed")
	ErrInvalidState      = errors.New("sfu: invalid state")
	ErrProducerNotFound  = errors.New("sfu: producer not found")
	ErrCodecIncompatible = errors.New("sfu: codec incompatible")
	ErrWorkerDead        = errors.New("sfu: worker is dead")
)

// RTPCodecCapability describes one codec a router or client can handle.
type RTPCodecCapability struct {
	MimeType    string `json:"mimeType"`
	ClockRate   uint32 `json:"clockRate"`
	Channels    uint16 `json:"channels,omitempty"`
	SDPFmtpLine string `json:"sdpFmtpLine,omitempty"`
}

// RTPCapabilities is the codec set of a router or a client.
type RTPCapabilities struct {
	Codecs []RTPCodecCapability `json:"codecs"`
}

// RTPCodecParameters is a negotiated codec with its payload type.
type RTPCodecParameters struct {
	RTPCodecCapability
	PayloadType uint8 `json:"payloadType"`
}

// RTPEncodingParameters describes one encoding (simulcast layer) of a track.
type RTPEncodingParameters struct {
	SSRC       uint32 `json:"ssrc,omitempty"`
	Rid        string `json:"rid,omitempty"`
	MaxBitrate uint64 `json:"maxBitrate,omitempty"`
}

// RTPParameters carries everything needed to receive or send one track.
type RTPParameters struct {
	Codecs    []RTPCodecParameters    `json:"codecs"`
	Encodings []RTPEncodingParameters `json:"encodings"`
}

// ICEParameters is the local or remote ICE credential pair.
type ICEParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
}

// ICECandidateInfo is one candidate surfaced to the client verbatim.
type ICECandidateInfo struct {
	Foundation string `json:"foundation"`
	Priority   uint32 `json:"priority"`
	Address    string `json:"address"`
	Protocol   string `json:"protocol"`
	Port       uint16 `json:"port"`
	Type       string `json:"type"`
}

// DTLSFingerprint is one certificate fingerprint.
type DTLSFingerprint struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// DTLSParameters carries the DTLS role and fingerprints for a transport.
// Ice is the remote credential pair; the pion engine needs it to start the
// ICE transport even in lite mode, so clients send it inside connect.
type DTLSParameters struct {
	Role         string            `json:"role"`
	Fingerprints []DTLSFingerprint `json:"fingerprints"`
	Ice          *ICEParameters    `json:"iceParameters,omitempty"`
}

// TransportParams is returned to the client verbatim on transport creation.
type TransportParams struct {
	Id             string             `json:"id"`
	IceParameters  ICEParameters      `json:"iceParameters"`
	IceCandidates  []ICECandidateInfo `json:"iceCandidates"`
	DtlsParameters DTLSParameters     `json:"dtlsParameters"`
}

// PreferredLayers selects the simulcast layer pair forwarded to a consumer.
type PreferredLayers struct {
	Spatial  int `json:"spatialLayer"`
	Temporal int `json:"temporalLayer"`
}

// MaxIncomingBitrate caps each transport's inbound bandwidth.
const MaxIncomingBitrate = 10_000_000 // 10 Mbps

// DefaultRouterCodecs is the fixed codec menu every router is created with:
// Opus stereo with in-band FEC and DTX, then VP8, VP9 and baseline H264.
func DefaultRouterCodecs() []RTPCodecParameters {
	return []RTPCodecParameters{
		{
			RTPCodecCapability: RTPCodecCapability{
				MimeType:    "audio/opus",
				ClockRate:   48000,
				Channels:    2,
				SDPFmtpLine: "minptime=10;useinbandfec=1;usedtx=1",
			},
			PayloadType: 111,
		},
		{
			RTPCodecCapability: RTPCodecCapability{
				MimeType:  "video/VP8",
				ClockRate: 90000,
			},
			PayloadType: 96,
		},
		{
			RTPCodecCapability: RTPCodecCapability{
				MimeType:  "video/VP9",
				ClockRate: 90000,
			},
			PayloadType: 98,
		},
		{
			RTPCodecCapability: RTPCodecCapability{
				MimeType:    "video/H264",
				ClockRate:   90000,
				SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
			},
			PayloadType: 102,
		},
	}
}

// CapabilitiesOf projects codec parameters down to capabilities.
func CapabilitiesOf(codecs []RTPCodecParameters) RTPCapabilities {
	caps := RTPCapabilities{Codecs: make([]RTPCodecCapability, 0, len(codecs))}
	for _, c := range codecs {
		caps.Codecs = append(caps.Codecs, c.RTPCodecCapability)
	}
	return caps
}
