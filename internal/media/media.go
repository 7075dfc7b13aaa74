// Package media models the local capture surface the call controller
// consumes. Capture itself is a collaborator concern; the controller only
// needs track sets with a uniform lifecycle.
package media

import (
	"context"
	"sync"

	"github.com/pion/webrtc/v3"
)

// Source acquires local capture streams.
type Source interface {
	AcquireCamera(ctx context.Context) (*Stream, error)
	AcquireScreen(ctx context.Context) (*Stream, error)
}

// UI is the presentation capability the controller renders through. The
// controller never reaches into presentation state directly.
type UI interface {
	AttachLocalPreview(stream *Stream)
	AttachRemotePreview(stream *RemoteStream)
	ClearRemotePreview()
}

// NopUI is the headless presentation layer.
type NopUI struct{}

func (NopUI) AttachLocalPreview(*Stream)        {}
func (NopUI) AttachRemotePreview(*RemoteStream) {}
func (NopUI) ClearRemotePreview()               {}

// Stream is one acquired local track set: the camera stream or a screen
// capture. It is exclusively owned by a single controller session.
type Stream struct {
	mu      sync.Mutex
	tracks  []webrtc.TrackLocal
	enabled map[webrtc.RTPCodecType]bool
	onEnded []func()
	ended   bool
	stopped bool
	release func()
}

// NewStream wraps acquired tracks. release, if non-nil, frees the
// underlying capture device and runs once on Stop.
func NewStream(tracks []webrtc.TrackLocal, release func()) *Stream {
	return &Stream{
		tracks: tracks,
		enabled: map[webrtc.RTPCodecType]bool{
			webrtc.RTPCodecTypeAudio: true,
			webrtc.RTPCodecTypeVideo: true,
		},
		release: release,
	}
}

func (s *Stream) Tracks() []webrtc.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]webrtc.TrackLocal, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// VideoTrack returns the first video track, or nil.
func (s *Stream) VideoTrack() webrtc.TrackLocal {
	return s.trackOfKind(webrtc.RTPCodecTypeVideo)
}

// AudioTrack returns the first audio track, or nil.
func (s *Stream) AudioTrack() webrtc.TrackLocal {
	return s.trackOfKind(webrtc.RTPCodecTypeAudio)
}

func (s *Stream) trackOfKind(kind webrtc.RTPCodecType) webrtc.TrackLocal {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tracks {
		if t.Kind() == kind {
			return t
		}
	}
	return nil
}

// SetEnabled flips the local mute state for one kind. This is playback
// state only: a real capture source consults it, the negotiation does not.
func (s *Stream) SetEnabled(kind webrtc.RTPCodecType, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled[kind] = enabled
}

func (s *Stream) Enabled(kind webrtc.RTPCodecType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[kind]
}

// OnEnded registers fn to run when the capture ends on its own, e.g. the
// user stops a screen share from the OS picker.
func (s *Stream) OnEnded(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = append(s.onEnded, fn)
}

// EndCapture signals capture end and fires the ended handlers once.
func (s *Stream) EndCapture() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	handlers := s.onEnded
	s.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
}

// Stop releases the capture. Idempotent; does not fire ended handlers.
func (s *Stream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	release := s.release
	s.mu.Unlock()

	if release != nil {
		release()
	}
}

// RemoteStream is the sink incoming tracks accumulate in; it is what the
// remote preview renders.
type RemoteStream struct {
	mu     sync.Mutex
	tracks []*webrtc.TrackRemote
}

func NewRemoteStream() *RemoteStream {
	return &RemoteStream{}
}

func (r *RemoteStream) AddTrack(track *webrtc.TrackRemote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks = append(r.tracks, track)
}

func (r *RemoteStream) Tracks() []*webrtc.TrackRemote {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*webrtc.TrackRemote, len(r.tracks))
	copy(out, r.tracks)
	return out
}

// Clear drops the accumulated tracks, e.g. after the peer disconnects.
func (r *RemoteStream) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks = nil
}
