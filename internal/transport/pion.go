package transport

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"
)

// PionTransport adapts *webrtc.PeerConnection to the Transport interface.
type PionTransport struct {
	pc        *webrtc.PeerConnection
	closeOnce sync.Once
	closeErr  error
}

// NewPionFactory returns a Factory producing peer connections configured
// with the given STUN servers.
func NewPionFactory(stunServers []string) Factory {
	return func() (Transport, error) {
		pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
			ICEServers: []webrtc.ICEServer{
				{URLs: stunServers},
			},
			ICECandidatePoolSize: 10,
		})
		if err != nil {
			return nil, fmt.Errorf("create peer connection: %w", err)
		}
		return &PionTransport{pc: pc}, nil
	}
}

func (t *PionTransport) CreateOffer() (webrtc.SessionDescription, error) {
	return t.pc.CreateOffer(nil)
}

func (t *PionTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	return t.pc.CreateAnswer(nil)
}

func (t *PionTransport) SetLocalDescription(desc webrtc.SessionDescription) error {
	return t.pc.SetLocalDescription(desc)
}

func (t *PionTransport) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return t.pc.SetRemoteDescription(desc)
}

func (t *PionTransport) LocalDescription() *webrtc.SessionDescription {
	return t.pc.LocalDescription()
}

func (t *PionTransport) RemoteDescription() *webrtc.SessionDescription {
	return t.pc.RemoteDescription()
}

func (t *PionTransport) SignalingState() webrtc.SignalingState {
	return t.pc.SignalingState()
}

func (t *PionTransport) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(candidate)
}

// OnICECandidate registers fn for each locally gathered candidate. The nil
// end-of-gathering marker pion emits is filtered out here.
func (t *PionTransport) OnICECandidate(fn func(webrtc.ICECandidateInit)) {
	t.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		fn(c.ToJSON())
	})
}

func (t *PionTransport) OnTrack(fn func(*webrtc.TrackRemote)) {
	t.pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		fn(track)
	})
}

func (t *PionTransport) OnConnectionStateChange(fn func(webrtc.ICEConnectionState)) {
	t.pc.OnICEConnectionStateChange(fn)
}

func (t *PionTransport) AddTrack(track webrtc.TrackLocal) (Sender, error) {
	sender, err := t.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	return pionSender{sender}, nil
}

func (t *PionTransport) Senders() []Sender {
	rtpSenders := t.pc.GetSenders()
	senders := make([]Sender, 0, len(rtpSenders))
	for _, s := range rtpSenders {
		senders = append(senders, pionSender{s})
	}
	return senders
}

func (t *PionTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.pc.Close()
	})
	return t.closeErr
}

type pionSender struct {
	s *webrtc.RTPSender
}

func (p pionSender) Track() webrtc.TrackLocal {
	return p.s.Track()
}

func (p pionSender) ReplaceTrack(track webrtc.TrackLocal) error {
	return p.s.ReplaceTrack(track)
}
