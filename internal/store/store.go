package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/peercall/internal/domain"
)

var ErrRoomNotFound = errors.New("room not found")

// Unsubscribe releases one subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// SignalingStore is the document store both peers exchange negotiation
// state through. Delivery on subscriptions is at-least-once: duplicates
// happen, and ordering across the room subscription and the candidate
// subscriptions is not guaranteed. Handlers must tolerate both.
type SignalingStore interface {
	CreateRoom(ctx context.Context, record *domain.RoomRecord) error
	GetRoom(ctx context.Context, id uuid.UUID) (*domain.RoomRecord, error)
	UpdateRoom(ctx context.Context, id uuid.UUID, patch domain.RoomPatch) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error

	// SubscribeRoom delivers the full current record once at subscribe
	// time and again on every change.
	SubscribeRoom(ctx context.Context, id uuid.UUID, fn func(domain.RoomRecord)) (Unsubscribe, error)

	AppendCandidate(ctx context.Context, id uuid.UUID, log string, c domain.Candidate) error
	// SubscribeCandidates replays the entries already in the log as adds,
	// then delivers each subsequent append.
	SubscribeCandidates(ctx context.Context, id uuid.UUID, log string, fn func(domain.Candidate)) (Unsubscribe, error)
	ListCandidates(ctx context.Context, id uuid.UUID, log string) ([]domain.Candidate, error)
	// PurgeCandidates removes every entry of the log in one batch.
	PurgeCandidates(ctx context.Context, id uuid.UUID, log string) error

	AppendChat(ctx context.Context, id uuid.UUID, msg domain.ChatMessage) error
	SubscribeChat(ctx context.Context, id uuid.UUID, fn func(domain.ChatMessage)) (Unsubscribe, error)
	ListChat(ctx context.Context, id uuid.UUID) ([]domain.ChatMessage, error)
}
