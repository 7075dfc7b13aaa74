package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immxrtalbeast/peercall/internal/domain"
	"github.com/immxrtalbeast/peercall/internal/store"
)

func newChatRoom(t *testing.T, st *store.MemoryStore) *domain.RoomRecord {
	t.Helper()
	record := domain.NewRoomRecord()
	require.NoError(t, st.CreateRoom(context.Background(), record))
	return record
}

func TestSendPersistsAndFansOut(t *testing.T) {
	st := store.NewMemoryStore()
	room := newChatRoom(t, st)
	channel := NewChannel(st, NewInMemoryMessageRepository(), nil)

	events := make(chan domain.ChatMessage, 8)
	unsub, err := channel.Subscribe(context.Background(), room.ID, func(msg domain.ChatMessage) {
		events <- msg
	})
	require.NoError(t, err)
	defer unsub()

	sent, err := channel.Send(context.Background(), room.ID, "alice", "  hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "hello there", sent.Content)
	assert.Equal(t, "alice", sent.Sender)

	select {
	case got := <-events:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "hello there", got.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live delivery")
	}

	history, err := channel.History(context.Background(), room.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sent.ID, history[0].ID)
}

func TestSendValidation(t *testing.T) {
	st := store.NewMemoryStore()
	room := newChatRoom(t, st)
	channel := NewChannel(st, NewInMemoryMessageRepository(), nil)
	ctx := context.Background()

	_, err := channel.Send(ctx, room.ID, "alice", "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = channel.Send(ctx, room.ID, "alice", strings.Repeat("x", maxMessageLength+1))
	require.ErrorIs(t, err, ErrMessageTooLong)

	_, err = channel.Send(ctx, room.ID, strings.Repeat("a", maxSenderLength+1), "hi")
	require.ErrorIs(t, err, ErrSenderTooLong)

	// Nothing landed in history.
	history, err := channel.History(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendFileRef(t *testing.T) {
	st := store.NewMemoryStore()
	room := newChatRoom(t, st)
	channel := NewChannel(st, NewInMemoryMessageRepository(), nil)

	msg, err := channel.SendFileRef(context.Background(), room.ID, "bob", "uploads/demo.webm")
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
	assert.Equal(t, "uploads/demo.webm", msg.FileRef)

	_, err = channel.SendFileRef(context.Background(), room.ID, "bob", "   ")
	require.Error(t, err)
}

func TestSendToMissingRoom(t *testing.T) {
	st := store.NewMemoryStore()
	channel := NewChannel(st, nil, nil)

	_, err := channel.Send(context.Background(), domain.NewRoomRecord().ID, "alice", "hi")
	require.ErrorIs(t, err, store.ErrRoomNotFound)
}

func TestHistoryWithoutRepositoryFallsBackToStore(t *testing.T) {
	st := store.NewMemoryStore()
	room := newChatRoom(t, st)
	channel := NewChannel(st, nil, nil)

	_, err := channel.Send(context.Background(), room.ID, "alice", "one")
	require.NoError(t, err)
	_, err = channel.Send(context.Background(), room.ID, "alice", "two")
	require.NoError(t, err)

	history, err := channel.History(context.Background(), room.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "one", history[0].Content)
	assert.Equal(t, "two", history[1].Content)
}

func TestHistoryOrderedOldestFirst(t *testing.T) {
	repo := NewInMemoryMessageRepository()
	ctx := context.Background()
	roomID := domain.NewRoomRecord().ID

	newer := domain.NewChatMessage(roomID, "a", "newer")
	older := domain.NewChatMessage(roomID, "a", "older")
	older.CreatedAt = newer.CreatedAt.Add(-time.Minute)

	require.NoError(t, repo.Save(ctx, newer))
	require.NoError(t, repo.Save(ctx, older))

	history, err := repo.ListByRoom(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "older", history[0].Content)
	assert.Equal(t, "newer", history[1].Content)
}
