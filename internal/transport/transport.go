// Package transport abstracts the peer connection the controller drives.
// The interface mirrors the subset of the WebRTC surface the signaling
// state machine needs, so tests can substitute a scripted fake.
package transport

import (
	"github.com/pion/webrtc/v3"
)

// Sender is an outgoing track binding that supports in-band replacement,
// which is what lets screen share swap tracks without renegotiating.
type Sender interface {
	Track() webrtc.TrackLocal
	ReplaceTrack(track webrtc.TrackLocal) error
}

// Transport is one negotiation session's peer connection. Exactly one
// exists per controller session and it is never shared across sessions.
type Transport interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetLocalDescription(desc webrtc.SessionDescription) error
	SetRemoteDescription(desc webrtc.SessionDescription) error
	LocalDescription() *webrtc.SessionDescription
	RemoteDescription() *webrtc.SessionDescription
	SignalingState() webrtc.SignalingState

	AddICECandidate(candidate webrtc.ICECandidateInit) error
	OnICECandidate(fn func(webrtc.ICECandidateInit))
	OnTrack(fn func(*webrtc.TrackRemote))
	OnConnectionStateChange(fn func(webrtc.ICEConnectionState))

	AddTrack(track webrtc.TrackLocal) (Sender, error)
	Senders() []Sender

	// Close is idempotent; the cleanup path may hit it from several
	// trigger paths.
	Close() error
}

// Factory creates a fresh Transport for one controller session.
type Factory func() (Transport, error)
