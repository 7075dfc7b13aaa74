package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"
)

// Candidate log names. Each side appends only to its own log and reads
// only the peer's.
const (
	OfferCandidates  = "offerCandidates"
	AnswerCandidates = "answerCandidates"
)

// Candidate is one locally discovered network path descriptor, appended to
// a room's candidate log. Entries are immutable; the renegotiation path
// purges whole logs instead of editing them.
type Candidate struct {
	ID        uuid.UUID
	Init      webrtc.ICECandidateInit
	CreatedAt time.Time
}

func NewCandidate(init webrtc.ICECandidateInit) Candidate {
	return Candidate{
		ID:        uuid.New(),
		Init:      init,
		CreatedAt: time.Now().UTC(),
	}
}
