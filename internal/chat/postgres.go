package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/peercall/internal/chat/model"
	"github.com/immxrtalbeast/peercall/internal/domain"
	"gorm.io/gorm"
)

type PostgresMessageRepository struct {
	db *gorm.DB
}

func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Save(ctx context.Context, msg *domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg == nil {
		return errors.New("message is nil")
	}

	return r.db.WithContext(ctx).Create(toModelMessage(msg)).Error
}

func (r *PostgresMessageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var messages []model.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	result := make([]domain.ChatMessage, 0, len(messages))
	for i := range messages {
		result = append(result, *toDomainMessage(&messages[i]))
	}
	return result, nil
}

func toModelMessage(msg *domain.ChatMessage) *model.ChatMessage {
	return &model.ChatMessage{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Sender:    msg.Sender,
		Content:   msg.Content,
		FileRef:   msg.FileRef,
		CreatedAt: msg.CreatedAt.UTC(),
	}
}

func toDomainMessage(msg *model.ChatMessage) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Sender:    msg.Sender,
		Content:   msg.Content,
		FileRef:   msg.FileRef,
		CreatedAt: msg.CreatedAt.UTC(),
	}
}
