package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
)

type RoomStatus string

const (
	RoomStatusActive    RoomStatus = "active"
	RoomStatusCancelled RoomStatus = "cancelled"
)

// Role identifies which half of the negotiation a controller drives.
// The tag doubles as the cancelledBy marker on the room record, which is
// how a symmetric-cancel race is broken.
type Role string

const (
	RoleOffer  Role = "offer"
	RoleAnswer Role = "answer"
)

// CandidateLog returns the name of the sub-collection this role appends
// its own ICE candidates to.
func (r Role) CandidateLog() string {
	if r == RoleAnswer {
		return AnswerCandidates
	}
	return OfferCandidates
}

// PeerCandidateLog returns the name of the sub-collection the opposite
// role writes to, i.e. the one this role must read.
func (r Role) PeerCandidateLog() string {
	if r == RoleAnswer {
		return OfferCandidates
	}
	return AnswerCandidates
}

// RoomRecord is the shared call document. It is authoritative but only
// eventually consistent: both peers mutate it through partial updates and
// observe each other's writes through store subscriptions.
type RoomRecord struct {
	ID                 uuid.UUID
	Status             RoomStatus
	ActiveParticipants int
	Offer              *webrtc.SessionDescription
	Answer             *webrtc.SessionDescription
	CancelledBy        Role
	CreatedAt          time.Time
}

// NewRoomRecord constructs the record a freshly created room starts from:
// active, nobody attached, no negotiation payloads.
func NewRoomRecord() *RoomRecord {
	return &RoomRecord{
		ID:        uuid.New(),
		Status:    RoomStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

// RoomPatch is a partial update to a RoomRecord. Nil fields are left
// untouched by the store; the Clear flags distinguish "remove the payload"
// from "don't change it".
type RoomPatch struct {
	Status             *RoomStatus
	ActiveParticipants *int
	Offer              *webrtc.SessionDescription
	ClearOffer         bool
	Answer             *webrtc.SessionDescription
	ClearAnswer        bool
	CancelledBy        *Role
}

// Apply merges the patch into the record in place.
func (p RoomPatch) Apply(r *RoomRecord) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.ActiveParticipants != nil {
		r.ActiveParticipants = *p.ActiveParticipants
	}
	if p.ClearOffer {
		r.Offer = nil
	} else if p.Offer != nil {
		offer := *p.Offer
		r.Offer = &offer
	}
	if p.ClearAnswer {
		r.Answer = nil
	} else if p.Answer != nil {
		answer := *p.Answer
		r.Answer = &answer
	}
	if p.CancelledBy != nil {
		r.CancelledBy = *p.CancelledBy
	}
}

// Clone returns a deep copy so subscribers never share payload pointers
// with the stored record.
func (r *RoomRecord) Clone() *RoomRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Offer != nil {
		offer := *r.Offer
		cp.Offer = &offer
	}
	if r.Answer != nil {
		answer := *r.Answer
		cp.Answer = &answer
	}
	return &cp
}
