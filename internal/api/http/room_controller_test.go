package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immxrtalbeast/peercall/internal/chat"
	"github.com/immxrtalbeast/peercall/internal/store"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	channel := chat.NewChannel(st, chat.NewInMemoryMessageRepository(), nil)
	controller := NewRoomController(st, channel, nil, nil)
	return SetupRouter(controller)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createRoom(t *testing.T, router *gin.Engine) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/rooms/create", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Room struct {
			ID       string `json:"id"`
			JoinLink string `json:"join_link"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Room.ID)
	assert.True(t, strings.HasSuffix(resp.Room.JoinLink, resp.Room.ID))
	return resp.Room.ID
}

func TestCreateAndGetRoom(t *testing.T) {
	router := newTestRouter(t)
	roomID := createRoom(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/rooms/"+roomID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Room struct {
			ID                 string `json:"id"`
			Status             string `json:"status"`
			ActiveParticipants int    `json:"active_participants"`
			HasOffer           bool   `json:"has_offer"`
		} `json:"room"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, roomID, resp.Room.ID)
	assert.Equal(t, "active", resp.Room.Status)
	assert.Zero(t, resp.Room.ActiveParticipants)
	assert.False(t, resp.Room.HasOffer)
}

func TestGetRoomErrors(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/rooms/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/rooms/6ba7b810-9dad-11d1-80b4-00c04fd430c8", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteRoom(t *testing.T) {
	router := newTestRouter(t)
	roomID := createRoom(t, router)

	rec := doJSON(t, router, http.MethodDelete, "/api/rooms/"+roomID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/rooms/"+roomID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/rooms/"+roomID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatSendAndHistory(t *testing.T) {
	router := newTestRouter(t)
	roomID := createRoom(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/chat", gin.H{
		"sender":  "alice",
		"message": "hello",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/chat", gin.H{
		"sender":   "bob",
		"file_ref": "uploads/clip.webm",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/rooms/"+roomID+"/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []struct {
			Sender  string `json:"sender"`
			Content string `json:"content"`
			FileRef string `json:"file_ref"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "hello", resp.Messages[0].Content)
	assert.Equal(t, "uploads/clip.webm", resp.Messages[1].FileRef)
}

func TestChatValidationErrors(t *testing.T) {
	router := newTestRouter(t)
	roomID := createRoom(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/chat", gin.H{
		"sender":  "alice",
		"message": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// sender is required by the binding.
	rec = doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/chat", gin.H{
		"message": "hi",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHostedPeersDisabledWithoutFactory(t *testing.T) {
	router := newTestRouter(t)
	roomID := createRoom(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/join", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/rooms/"+roomID+"/leave", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	rec := doJSON(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
