package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/peercall/internal/domain"
)

// MessageRepository persists chat history independently of the live chat
// log in the signaling store.
type MessageRepository interface {
	Save(ctx context.Context, msg *domain.ChatMessage) error
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.ChatMessage, error)
}

type InMemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[uuid.UUID][]domain.ChatMessage
}

func NewInMemoryMessageRepository() *InMemoryMessageRepository {
	return &InMemoryMessageRepository{
		messages: make(map[uuid.UUID][]domain.ChatMessage),
	}
}

func (r *InMemoryMessageRepository) Save(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages[msg.RoomID] = append(r.messages[msg.RoomID], *msg)
	return nil
}

func (r *InMemoryMessageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ChatMessage, len(r.messages[roomID]))
	copy(out, r.messages[roomID])
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
