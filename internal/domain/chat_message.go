package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one entry in a room's chat log. Chat rides the same room
// id as the call but is decoupled from the negotiation state machine.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	FileRef   string    `json:"file_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewChatMessage(roomID uuid.UUID, sender, content string) *ChatMessage {
	return &ChatMessage{
		ID:        uuid.New(),
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
