// Package call implements the signaling state machine that drives a
// two-party session through a shared, eventually consistent document
// store. A controller derives its role from a one-shot room read, performs
// its half of the offer/answer exchange, and reacts to record changes for
// the rest of its life: peer departure, cancellation, renegotiation.
//
// Delivery from the store is at-least-once and unordered across the room
// and candidate subscriptions, so every handler is idempotent against
// redelivery. There is no server-side arbitration: correctness rests on
// the transition guards here, not on locks in the store.
package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"

	"github.com/immxrtalbeast/peercall/internal/chat"
	"github.com/immxrtalbeast/peercall/internal/domain"
	"github.com/immxrtalbeast/peercall/internal/media"
	"github.com/immxrtalbeast/peercall/internal/store"
	"github.com/immxrtalbeast/peercall/internal/transport"
	"github.com/immxrtalbeast/peercall/lib/logger/sl"
)

// Controller owns one call participation. All event handlers and public
// operations serialize on one mutex; between store or transport calls,
// state mutation is atomic with respect to other controller logic.
type Controller struct {
	store        store.SignalingStore
	newTransport transport.Factory
	media        media.Source
	ui           media.UI
	log          *slog.Logger

	chat   *chat.Channel
	onChat func(domain.ChatMessage)

	mu      sync.Mutex
	roomID  uuid.UUID
	role    domain.Role
	session *session
}

func NewController(st store.SignalingStore, factory transport.Factory, source media.Source, ui media.UI, log *slog.Logger) *Controller {
	if ui == nil {
		ui = media.NopUI{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		store:        st,
		newTransport: factory,
		media:        source,
		ui:           ui,
		log:          log,
	}
}

// AttachChat composes the chat side-channel with this controller: its
// subscription is established on join and torn down by the same cleanup
// path as the negotiation subscriptions. Must be called before Join.
func (c *Controller) AttachChat(channel *chat.Channel, onMessage func(domain.ChatMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chat = channel
	c.onChat = onMessage
}

// Join attaches this controller to the room. The role is derived from a
// momentary read: an empty room makes this peer the offerer, a room with
// one participant makes it the answerer, a full room fails with
// ErrRoomFull. Races from near-simultaneous joins are corrected by the
// subscription-driven state machine, not by a second arbitration round.
func (c *Controller) Join(ctx context.Context, roomID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return ErrAlreadyJoined
	}

	record, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("read room: %w", err)
	}
	c.roomID = roomID

	switch record.ActiveParticipants {
	case 0:
		err = c.establish(ctx, c.createOffer)
	case 1:
		err = c.establish(ctx, c.createAnswer)
	default:
		return ErrRoomFull
	}
	if err != nil {
		c.cleanupLocked()
		return err
	}
	return nil
}

// Cancel marks the room cancelled on behalf of this side and tears the
// local session down. The participant decrement is read-then-write; a
// concurrent peer update between the two is tolerated because the count is
// only used to pick a qualitative transition.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return ErrNotJoined
	}

	record, err := c.store.GetRoom(ctx, c.roomID)
	if err != nil {
		c.log.Error("read room for cancel", sl.Err(err))
	} else {
		cancelled := domain.RoomStatusCancelled
		remaining := record.ActiveParticipants - 1
		role := c.role
		patch := domain.RoomPatch{
			Status:             &cancelled,
			ActiveParticipants: &remaining,
			CancelledBy:        &role,
		}
		if err := c.store.UpdateRoom(ctx, c.roomID, patch); err != nil {
			c.log.Error("write cancel", sl.Err(err))
		}
	}

	c.cleanupLocked()
	return nil
}

// Leave tears down local state without touching the room record, e.g. on
// navigation away. In-flight store writes may still complete afterwards.
func (c *Controller) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupLocked()
}

func (c *Controller) Role() domain.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

func (c *Controller) RoomID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Controller) Joined() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// establish runs one half of the exchange and then (re)arms the
// continuous room watcher and the chat subscription.
func (c *Controller) establish(ctx context.Context, create func(context.Context) error) error {
	if err := create(ctx); err != nil {
		return err
	}
	if c.session == nil {
		// create was a guarded no-op
		return nil
	}
	if err := c.watchRoom(ctx); err != nil {
		return err
	}
	return c.attachChat(ctx)
}

// initSession acquires camera media, creates a fresh transport, attaches
// the local tracks and wires the remote sink and disconnect watcher. Any
// previous session is torn down first: a controller owns at most one
// transport at a time.
func (c *Controller) initSession(ctx context.Context) error {
	if c.session != nil {
		c.cleanupLocked()
	}

	stream, err := c.media.AcquireCamera(ctx)
	if err != nil {
		return fmt.Errorf("acquire camera: %w", err)
	}
	tr, err := c.newTransport()
	if err != nil {
		stream.Stop()
		return fmt.Errorf("create transport: %w", err)
	}

	remote := media.NewRemoteStream()
	s := &session{
		transport:    tr,
		localStream:  stream,
		remoteStream: remote,
	}
	c.session = s

	for _, track := range stream.Tracks() {
		if _, err := tr.AddTrack(track); err != nil {
			c.cleanupLocked()
			return fmt.Errorf("add local track: %w", err)
		}
	}

	tr.OnTrack(func(track *webrtc.TrackRemote) {
		remote.AddTrack(track)
	})
	tr.OnConnectionStateChange(func(state webrtc.ICEConnectionState) {
		if state != webrtc.ICEConnectionStateDisconnected {
			return
		}
		c.handlePeerDisconnect(s)
	})

	c.ui.AttachLocalPreview(stream)
	c.ui.AttachRemotePreview(remote)
	return nil
}

// handlePeerDisconnect clears remote playback when the transport reports a
// broken network path. This is local cleanup only; the room record remains
// the authoritative trigger for renegotiation.
func (c *Controller) handlePeerDisconnect(s *session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != s {
		return
	}
	s.remoteStream.Clear()
	c.ui.ClearRemotePreview()
	c.log.Info("transport disconnected, cleared remote playback",
		slog.String("room_id", c.roomID.String()))
}

// createOffer performs the offering half: publish local candidates to the
// offer log, commit a local offer, write it to the record, then wait for
// the answer and the peer's candidates through subscriptions.
func (c *Controller) createOffer(ctx context.Context) error {
	if err := c.initSession(ctx); err != nil {
		return err
	}
	s := c.session
	c.role = domain.RoleOffer
	roomID := c.roomID

	s.transport.OnICECandidate(func(init webrtc.ICECandidateInit) {
		err := c.store.AppendCandidate(context.Background(), roomID, domain.OfferCandidates, domain.NewCandidate(init))
		if err != nil {
			c.log.Warn("append offer candidate", sl.Err(err))
		}
	})

	offer, err := s.transport.CreateOffer()
	if err != nil {
		return fmt.Errorf("create offer: %w", err)
	}
	if err := s.transport.SetLocalDescription(offer); err != nil {
		return fmt.Errorf("set local offer: %w", err)
	}

	active := domain.RoomStatusActive
	one := 1
	patch := domain.RoomPatch{Offer: &offer, Status: &active, ActiveParticipants: &one}
	if err := c.store.UpdateRoom(ctx, roomID, patch); err != nil {
		return fmt.Errorf("write offer: %w", err)
	}
	s.hasOffered = true
	c.log.Info("offer published", slog.String("room_id", roomID.String()))

	unsub, err := c.store.SubscribeRoom(ctx, roomID, c.handleAnswer)
	if err != nil {
		return fmt.Errorf("subscribe room: %w", err)
	}
	s.addSub(unsub)

	unsub, err = c.store.SubscribeCandidates(ctx, roomID, domain.AnswerCandidates, c.handlePeerCandidate)
	if err != nil {
		return fmt.Errorf("subscribe answer candidates: %w", err)
	}
	s.addSub(unsub)
	return nil
}

// createAnswer performs the answering half against the stored offer. A
// controller that already offered this session refuses: it is offerer or
// answerer, never both, until renegotiation restarts the session.
func (c *Controller) createAnswer(ctx context.Context) error {
	if s := c.session; s != nil && s.hasOffered {
		c.log.Info("already offered this session, skipping answer",
			slog.String("room_id", c.roomID.String()))
		return nil
	}
	if err := c.initSession(ctx); err != nil {
		return err
	}
	s := c.session
	c.role = domain.RoleAnswer
	roomID := c.roomID

	s.transport.OnICECandidate(func(init webrtc.ICECandidateInit) {
		err := c.store.AppendCandidate(context.Background(), roomID, domain.AnswerCandidates, domain.NewCandidate(init))
		if err != nil {
			c.log.Warn("append answer candidate", sl.Err(err))
		}
	})

	record, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("read room: %w", err)
	}
	if record.Offer == nil {
		return ErrMissingOffer
	}

	if err := s.transport.SetRemoteDescription(*record.Offer); err != nil {
		return fmt.Errorf("set remote offer: %w", err)
	}
	answer, err := s.transport.CreateAnswer()
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if state := s.transport.SignalingState(); state != webrtc.SignalingStateHaveRemoteOffer {
		return fmt.Errorf("%w: %s", ErrSignalingState, state)
	}
	if err := s.transport.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local answer: %w", err)
	}

	active := domain.RoomStatusActive
	two := 2
	patch := domain.RoomPatch{Answer: &answer, Status: &active, ActiveParticipants: &two}
	if err := c.store.UpdateRoom(ctx, roomID, patch); err != nil {
		return fmt.Errorf("write answer: %w", err)
	}
	c.log.Info("answer published", slog.String("room_id", roomID.String()))

	unsub, err := c.store.SubscribeCandidates(ctx, roomID, domain.OfferCandidates, c.handlePeerCandidate)
	if err != nil {
		return fmt.Errorf("subscribe offer candidates: %w", err)
	}
	s.addSub(unsub)
	return nil
}

// handleAnswer applies a stored answer to the offering transport. With the
// transport awaiting an answer this is the normal path; in stable state it
// is a stale or glare notification, recovered by re-applying the local
// offer before the remote answer. Anything else is logged and ignored.
func (c *Controller) handleAnswer(record domain.RoomRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || record.Answer == nil {
		return
	}

	switch state := s.transport.SignalingState(); state {
	case webrtc.SignalingStateHaveLocalOffer:
		if err := s.transport.SetRemoteDescription(*record.Answer); err != nil {
			c.log.Error("set remote answer", sl.Err(err))
		}
	case webrtc.SignalingStateStable:
		local := s.transport.LocalDescription()
		if local == nil {
			return
		}
		if err := s.transport.SetLocalDescription(*local); err != nil {
			c.log.Error("re-apply local offer", sl.Err(err))
			return
		}
		if err := s.transport.SetRemoteDescription(*record.Answer); err != nil {
			c.log.Error("set remote answer after re-offer", sl.Err(err))
		}
	default:
		c.log.Warn("unexpected signaling state for answer",
			slog.String("state", state.String()))
	}
}

// handlePeerCandidate registers one of the peer's candidates. Candidates
// arriving before the remote description is set are dropped, not buffered.
func (c *Controller) handlePeerCandidate(candidate domain.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return
	}
	if s.transport.RemoteDescription() == nil {
		c.log.Debug("dropping candidate before remote description",
			slog.String("room_id", c.roomID.String()))
		return
	}
	if err := s.transport.AddICECandidate(candidate.Init); err != nil {
		c.log.Warn("add ice candidate", sl.Err(err))
	}
}

// watchRoom arms the continuous participant watcher: the last-observed
// count comes from a fresh read, then every record change funnels through
// handleRoomChange.
func (c *Controller) watchRoom(ctx context.Context) error {
	record, err := c.store.GetRoom(ctx, c.roomID)
	if err != nil {
		return fmt.Errorf("read room: %w", err)
	}
	c.session.lastParticipants = record.ActiveParticipants

	unsub, err := c.store.SubscribeRoom(ctx, c.roomID, c.handleRoomChange)
	if err != nil {
		return fmt.Errorf("subscribe room: %w", err)
	}
	c.session.addSub(unsub)
	return nil
}

// handleRoomChange picks the qualitative transition for a participant
// count change. An unchanged count is a duplicate delivery and is skipped;
// the last-observed value is updated even when the branch taken was a
// no-op, so the comparison stays monotonic.
func (c *Controller) handleRoomChange(record domain.RoomRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return
	}
	if record.ActiveParticipants == s.lastParticipants {
		return
	}

	ctx := context.Background()
	switch {
	case record.Status == domain.RoomStatusCancelled && record.CancelledBy != c.role:
		// Peer left via cancel.
		if err := c.resetAndReoffer(ctx); err != nil {
			c.log.Error("renegotiate after cancel", sl.Err(err))
		}
	case record.ActiveParticipants == 1 && s.lastParticipants == 2:
		// Peer disconnected normally.
		if err := c.resetAndReoffer(ctx); err != nil {
			c.log.Error("renegotiate after peer left", sl.Err(err))
		}
	case record.ActiveParticipants == 1 && !s.hasOffered:
		// A new peer is joining and this side is the existing party.
		if err := c.establish(ctx, c.createAnswer); err != nil {
			c.log.Error("answer joining peer", sl.Err(err))
		}
	case record.ActiveParticipants == 0:
		if err := c.establish(ctx, c.createOffer); err != nil {
			c.log.Error("offer empty room", sl.Err(err))
		}
	}

	if cur := c.session; cur != nil {
		cur.lastParticipants = record.ActiveParticipants
	}
}

// resetAndReoffer turns a two-party room back into a one-offerer room
// after the peer's departure, without destroying the room id: tear down
// the session, reset the record, purge both candidate logs, offer again.
func (c *Controller) resetAndReoffer(ctx context.Context) error {
	c.cleanupLocked()

	active := domain.RoomStatusActive
	one := 1
	patch := domain.RoomPatch{
		Status:             &active,
		ActiveParticipants: &one,
		ClearOffer:         true,
		ClearAnswer:        true,
	}
	if err := c.store.UpdateRoom(ctx, c.roomID, patch); err != nil {
		return fmt.Errorf("reset room: %w", err)
	}
	for _, log := range []string{domain.OfferCandidates, domain.AnswerCandidates} {
		if err := c.store.PurgeCandidates(ctx, c.roomID, log); err != nil {
			return fmt.Errorf("purge %s: %w", log, err)
		}
	}

	return c.establish(ctx, c.createOffer)
}

func (c *Controller) attachChat(ctx context.Context) error {
	if c.chat == nil || c.onChat == nil || c.session == nil {
		return nil
	}
	unsub, err := c.chat.Subscribe(ctx, c.roomID, c.onChat)
	if err != nil {
		return fmt.Errorf("subscribe chat: %w", err)
	}
	c.session.addSub(unsub)
	return nil
}

// cleanupLocked is the single exit path: close the transport, stop all
// media, release every subscription. Safe to invoke repeatedly.
func (c *Controller) cleanupLocked() {
	s := c.session
	if s == nil {
		return
	}
	c.session = nil
	s.teardown()
}

// StartScreenShare substitutes a screen capture track for the outgoing
// camera video in place; no negotiation message is exchanged. When the
// capture ends on its own the camera track is restored.
func (c *Controller) StartScreenShare(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil {
		return ErrNotJoined
	}
	if s.screenStream != nil {
		return nil
	}

	stream, err := c.media.AcquireScreen(ctx)
	if err != nil {
		return fmt.Errorf("acquire screen: %w", err)
	}
	videoTrack := stream.VideoTrack()
	if videoTrack == nil {
		stream.Stop()
		return errors.New("screen capture has no video track")
	}

	if sender := videoSender(s.transport); sender != nil {
		if err := sender.ReplaceTrack(videoTrack); err != nil {
			stream.Stop()
			return fmt.Errorf("replace video track: %w", err)
		}
	} else if _, err := s.transport.AddTrack(videoTrack); err != nil {
		stream.Stop()
		return fmt.Errorf("add screen track: %w", err)
	}

	stream.OnEnded(func() {
		if err := c.StopScreenShare(); err != nil {
			c.log.Warn("revert after capture end", sl.Err(err))
		}
	})
	s.screenStream = stream
	c.ui.AttachLocalPreview(stream)
	return nil
}

// StopScreenShare reverts the outgoing video to the camera track through
// the same in-place replacement.
func (c *Controller) StopScreenShare() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || s.screenStream == nil {
		return nil
	}

	s.screenStream.Stop()
	s.screenStream = nil

	if sender := videoSender(s.transport); sender != nil {
		if camera := s.localStream.VideoTrack(); camera != nil {
			if err := sender.ReplaceTrack(camera); err != nil {
				return fmt.Errorf("restore camera track: %w", err)
			}
		}
	}
	c.ui.AttachLocalPreview(s.localStream)
	return nil
}

func (c *Controller) ScreenSharing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil && c.session.screenStream != nil
}

// ToggleCamera flips the local video mute state and reports the new one.
func (c *Controller) ToggleCamera() bool {
	return c.toggle(webrtc.RTPCodecTypeVideo)
}

// ToggleMic flips the local audio mute state and reports the new one.
func (c *Controller) ToggleMic() bool {
	return c.toggle(webrtc.RTPCodecTypeAudio)
}

func (c *Controller) toggle(kind webrtc.RTPCodecType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session
	if s == nil || s.localStream == nil {
		return false
	}
	next := !s.localStream.Enabled(kind)
	s.localStream.SetEnabled(kind, next)
	return next
}

func videoSender(tr transport.Transport) transport.Sender {
	for _, sender := range tr.Senders() {
		if track := sender.Track(); track != nil && track.Kind() == webrtc.RTPCodecTypeVideo {
			return sender
		}
	}
	return nil
}
