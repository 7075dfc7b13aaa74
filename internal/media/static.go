package media

import (
	"context"

	"github.com/pion/webrtc/v3"
)

// StaticSource produces sample-backed tracks without touching capture
// devices. It backs headless deployments and tests; a device-backed Source
// plugs in behind the same interface.
type StaticSource struct{}

func NewStaticSource() *StaticSource {
	return &StaticSource{}
}

func (s *StaticSource) AcquireCamera(ctx context.Context) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "camera",
	)
	if err != nil {
		return nil, err
	}
	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "camera",
	)
	if err != nil {
		return nil, err
	}
	return NewStream([]webrtc.TrackLocal{audio, video}, nil), nil
}

func (s *StaticSource) AcquireScreen(ctx context.Context) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "screen",
	)
	if err != nil {
		return nil, err
	}
	return NewStream([]webrtc.TrackLocal{video}, nil), nil
}
