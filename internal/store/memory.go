package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/peercall/internal/domain"
)

// MemoryStore is the in-process SignalingStore. Both controller instances
// of a test or a single-host deployment share one MemoryStore; in a real
// deployment the interface is backed by a hosted document store.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*roomDoc
}

type roomDoc struct {
	record     *domain.RoomRecord
	candidates map[string][]domain.Candidate
	chat       []domain.ChatMessage

	nextSub  int
	roomSubs map[int]*mailbox[domain.RoomRecord]
	candSubs map[string]map[int]*mailbox[domain.Candidate]
	chatSubs map[int]*mailbox[domain.ChatMessage]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[uuid.UUID]*roomDoc)}
}

func newRoomDoc(record *domain.RoomRecord) *roomDoc {
	return &roomDoc{
		record:     record,
		candidates: make(map[string][]domain.Candidate),
		roomSubs:   make(map[int]*mailbox[domain.RoomRecord]),
		candSubs:   make(map[string]map[int]*mailbox[domain.Candidate]),
		chatSubs:   make(map[int]*mailbox[domain.ChatMessage]),
	}
}

func (s *MemoryStore) CreateRoom(ctx context.Context, record *domain.RoomRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[record.ID] = newRoomDoc(record.Clone())
	return nil
}

func (s *MemoryStore) GetRoom(ctx context.Context, id uuid.UUID) (*domain.RoomRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return doc.record.Clone(), nil
}

func (s *MemoryStore) UpdateRoom(ctx context.Context, id uuid.UUID, patch domain.RoomPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	doc, ok := s.rooms[id]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	patch.Apply(doc.record)
	record := *doc.record.Clone()
	subs := make([]*mailbox[domain.RoomRecord], 0, len(doc.roomSubs))
	for _, sub := range doc.roomSubs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.publish(record)
	}
	return nil
}

func (s *MemoryStore) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	for _, sub := range doc.roomSubs {
		sub.stop()
	}
	for _, subs := range doc.candSubs {
		for _, sub := range subs {
			sub.stop()
		}
	}
	for _, sub := range doc.chatSubs {
		sub.stop()
	}
	delete(s.rooms, id)
	return nil
}

func (s *MemoryStore) SubscribeRoom(ctx context.Context, id uuid.UUID, fn func(domain.RoomRecord)) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}

	key := doc.nextSub
	doc.nextSub++
	sub := newMailbox(fn)
	doc.roomSubs[key] = sub
	sub.publish(*doc.record.Clone())

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.stop()
			s.mu.Lock()
			if d, ok := s.rooms[id]; ok {
				delete(d.roomSubs, key)
			}
			s.mu.Unlock()
		})
	}, nil
}

func (s *MemoryStore) AppendCandidate(ctx context.Context, id uuid.UUID, log string, c domain.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	doc, ok := s.rooms[id]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	doc.candidates[log] = append(doc.candidates[log], c)
	subs := make([]*mailbox[domain.Candidate], 0, len(doc.candSubs[log]))
	for _, sub := range doc.candSubs[log] {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.publish(c)
	}
	return nil
}

func (s *MemoryStore) SubscribeCandidates(ctx context.Context, id uuid.UUID, log string, fn func(domain.Candidate)) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}

	key := doc.nextSub
	doc.nextSub++
	sub := newMailbox(fn)
	if doc.candSubs[log] == nil {
		doc.candSubs[log] = make(map[int]*mailbox[domain.Candidate])
	}
	doc.candSubs[log][key] = sub
	for _, c := range doc.candidates[log] {
		sub.publish(c)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.stop()
			s.mu.Lock()
			if d, ok := s.rooms[id]; ok {
				delete(d.candSubs[log], key)
			}
			s.mu.Unlock()
		})
	}, nil
}

func (s *MemoryStore) ListCandidates(ctx context.Context, id uuid.UUID, log string) ([]domain.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := make([]domain.Candidate, len(doc.candidates[log]))
	copy(out, doc.candidates[log])
	return out, nil
}

func (s *MemoryStore) PurgeCandidates(ctx context.Context, id uuid.UUID, log string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.rooms[id]
	if !ok {
		return ErrRoomNotFound
	}
	delete(doc.candidates, log)
	return nil
}

func (s *MemoryStore) AppendChat(ctx context.Context, id uuid.UUID, msg domain.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	doc, ok := s.rooms[id]
	if !ok {
		s.mu.Unlock()
		return ErrRoomNotFound
	}
	doc.chat = append(doc.chat, msg)
	subs := make([]*mailbox[domain.ChatMessage], 0, len(doc.chatSubs))
	for _, sub := range doc.chatSubs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.publish(msg)
	}
	return nil
}

func (s *MemoryStore) SubscribeChat(ctx context.Context, id uuid.UUID, fn func(domain.ChatMessage)) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}

	key := doc.nextSub
	doc.nextSub++
	sub := newMailbox(fn)
	doc.chatSubs[key] = sub

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.stop()
			s.mu.Lock()
			if d, ok := s.rooms[id]; ok {
				delete(d.chatSubs, key)
			}
			s.mu.Unlock()
		})
	}, nil
}

func (s *MemoryStore) ListChat(ctx context.Context, id uuid.UUID) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := make([]domain.ChatMessage, len(doc.chat))
	copy(out, doc.chat)
	return out, nil
}
