package call

import (
	"github.com/immxrtalbeast/peercall/internal/media"
	"github.com/immxrtalbeast/peercall/internal/store"
	"github.com/immxrtalbeast/peercall/internal/transport"
)

// session is the in-memory state of one call participation: the live
// transport, the acquired media, and every active store subscription.
// Exactly one exists per joined controller; cleanup destroys it whole.
type session struct {
	transport    transport.Transport
	localStream  *media.Stream
	screenStream *media.Stream
	remoteStream *media.RemoteStream

	hasOffered       bool
	lastParticipants int

	subs []store.Unsubscribe
}

func (s *session) addSub(unsub store.Unsubscribe) {
	s.subs = append(s.subs, unsub)
}

// teardown releases everything the session owns. Closing an already
// closed transport and releasing an already released subscription are both
// no-ops, so teardown is safe from any trigger path.
func (s *session) teardown() {
	if s.transport != nil {
		_ = s.transport.Close()
	}
	if s.localStream != nil {
		s.localStream.Stop()
	}
	if s.screenStream != nil {
		s.screenStream.Stop()
	}
	if s.remoteStream != nil {
		s.remoteStream.Clear()
	}
	for _, unsub := range s.subs {
		unsub()
	}
	s.subs = nil
}
