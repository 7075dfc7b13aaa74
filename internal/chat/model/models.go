package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID    uuid.UUID `gorm:"type:uuid;index;not null"`
	Sender    string    `gorm:"size:255;not null"`
	Content   string    `gorm:"size:4000"`
	FileRef   string    `gorm:"size:512"`
	CreatedAt time.Time `gorm:"not null"`
}
