package converter

import (
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/peercall/internal/domain"
)

type RoomResponse struct {
	ID                 uuid.UUID         `json:"id"`
	Status             domain.RoomStatus `json:"status"`
	ActiveParticipants int               `json:"active_participants"`
	HasOffer           bool              `json:"has_offer"`
	HasAnswer          bool              `json:"has_answer"`
	CancelledBy        domain.Role       `json:"cancelled_by,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	JoinLink           string            `json:"join_link"`
}

func RoomToApi(r *domain.RoomRecord) *RoomResponse {
	return &RoomResponse{
		ID:                 r.ID,
		Status:             r.Status,
		ActiveParticipants: r.ActiveParticipants,
		HasOffer:           r.Offer != nil,
		HasAnswer:          r.Answer != nil,
		CancelledBy:        r.CancelledBy,
		CreatedAt:          r.CreatedAt,
		JoinLink:           "/chat?id=" + r.ID.String(),
	}
}
