// Package chat is the side-channel message log that rides the same room
// id as a call but stays decoupled from the negotiation state machine.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/peercall/internal/domain"
	"github.com/immxrtalbeast/peercall/internal/store"
)

const maxMessageLength = 4000
const maxSenderLength = 255

var (
	ErrEmptyMessage   = errors.New("chat message cannot be empty")
	ErrMessageTooLong = errors.New("chat message is too long")
	ErrSenderTooLong  = errors.New("chat sender is too long")
)

// Channel sends, lists and follows chat messages for rooms. Messages are
// persisted through the repository and fanned out through the store's chat
// log so live subscribers see them without polling history.
type Channel struct {
	store    store.SignalingStore
	messages MessageRepository
	log      *slog.Logger
}

func NewChannel(st store.SignalingStore, messages MessageRepository, log *slog.Logger) *Channel {
	if log == nil {
		log = slog.Default()
	}
	return &Channel{store: st, messages: messages, log: log}
}

func (ch *Channel) Send(ctx context.Context, roomID uuid.UUID, sender, content string) (*domain.ChatMessage, error) {
	sender, err := validateSender(sender)
	if err != nil {
		return nil, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, ErrMessageTooLong
	}

	msg := domain.NewChatMessage(roomID, sender, content)
	return msg, ch.publish(ctx, msg)
}

// SendFileRef appends a file reference entry to the room's chat.
func (ch *Channel) SendFileRef(ctx context.Context, roomID uuid.UUID, sender, fileRef string) (*domain.ChatMessage, error) {
	sender, err := validateSender(sender)
	if err != nil {
		return nil, err
	}

	fileRef = strings.TrimSpace(fileRef)
	if fileRef == "" {
		return nil, errors.New("file reference cannot be empty")
	}

	msg := domain.NewChatMessage(roomID, sender, "")
	msg.FileRef = fileRef
	return msg, ch.publish(ctx, msg)
}

func (ch *Channel) publish(ctx context.Context, msg *domain.ChatMessage) error {
	if ch.messages != nil {
		if err := ch.messages.Save(ctx, msg); err != nil {
			return fmt.Errorf("save chat message: %w", err)
		}
	}
	if err := ch.store.AppendChat(ctx, msg.RoomID, *msg); err != nil {
		return fmt.Errorf("append chat message: %w", err)
	}
	return nil
}

// History returns the persisted messages for a room, oldest first.
func (ch *Channel) History(ctx context.Context, roomID uuid.UUID) ([]domain.ChatMessage, error) {
	if ch.messages != nil {
		return ch.messages.ListByRoom(ctx, roomID)
	}
	return ch.store.ListChat(ctx, roomID)
}

// Subscribe follows the room's live chat log. The returned handle is what
// the call controller tears down in its cleanup path.
func (ch *Channel) Subscribe(ctx context.Context, roomID uuid.UUID, fn func(domain.ChatMessage)) (store.Unsubscribe, error) {
	return ch.store.SubscribeChat(ctx, roomID, fn)
}

func validateSender(sender string) (string, error) {
	sender = strings.TrimSpace(sender)
	if utf8.RuneCountInString(sender) > maxSenderLength {
		return "", ErrSenderTooLong
	}
	return sender, nil
}
