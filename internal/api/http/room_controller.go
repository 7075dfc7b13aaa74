package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/immxrtalbeast/peercall/internal/api/http/converter"
	"github.com/immxrtalbeast/peercall/internal/call"
	"github.com/immxrtalbeast/peercall/internal/chat"
	"github.com/immxrtalbeast/peercall/internal/domain"
	"github.com/immxrtalbeast/peercall/internal/store"
	"github.com/immxrtalbeast/peercall/lib/logger/sl"
)

// ControllerFactory builds one call controller per hosted headless peer.
type ControllerFactory func() *call.Controller

// RoomController is the provisioning surface for call rooms plus the chat
// access paths. The negotiation itself never touches HTTP: controllers
// drive it through the signaling store. It can additionally host headless
// peers, one controller per room, for connectivity checks and tests.
type RoomController struct {
	store       store.SignalingStore
	chat        *chat.Channel
	controllers ControllerFactory
	log         *slog.Logger
	upgrader    websocket.Upgrader

	mu    sync.Mutex
	peers map[uuid.UUID]*call.Controller
}

func NewRoomController(st store.SignalingStore, channel *chat.Channel, controllers ControllerFactory, log *slog.Logger) *RoomController {
	if log == nil {
		log = slog.Default()
	}
	return &RoomController{
		store:       st,
		chat:        channel,
		controllers: controllers,
		log:         log,
		peers:       make(map[uuid.UUID]*call.Controller),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// CreateRoom provisions a fresh call record: active, zero participants,
// no negotiation payloads. The first joining controller becomes offerer.
func (c *RoomController) CreateRoom(ctx *gin.Context) {
	record := domain.NewRoomRecord()
	if err := c.store.CreateRoom(ctx.Request.Context(), record); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.log.Info("room created", slog.String("room_id", record.ID.String()))
	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(record)})
}

func (c *RoomController) GetRoom(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	record, err := c.store.GetRoom(ctx.Request.Context(), roomID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(record)})
}

func (c *RoomController) DeleteRoom(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	if err := c.store.DeleteRoom(ctx.Request.Context(), roomID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (c *RoomController) ChatHistory(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	messages, err := c.chat.History(ctx.Request.Context(), roomID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (c *RoomController) SendChat(ctx *gin.Context) {
	type SendChatRequest struct {
		Sender  string `json:"sender" binding:"required"`
		Message string `json:"message"`
		FileRef string `json:"file_ref"`
	}

	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	var req SendChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	var msg *domain.ChatMessage
	if req.FileRef != "" {
		msg, err = c.chat.SendFileRef(ctx.Request.Context(), roomID, req.Sender, req.FileRef)
	} else {
		msg, err = c.chat.Send(ctx.Request.Context(), roomID, req.Sender, req.Message)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrEmptyMessage) ||
			errors.Is(err, chat.ErrMessageTooLong) ||
			errors.Is(err, chat.ErrSenderTooLong) {
			status = http.StatusBadRequest
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": msg})
}

// JoinRoom attaches a hosted headless peer to the room. The peer runs the
// same signaling state machine a real client would.
func (c *RoomController) JoinRoom(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	if c.controllers == nil {
		ctx.JSON(http.StatusNotImplemented, gin.H{"error": "hosted peers are disabled"})
		return
	}

	c.mu.Lock()
	if _, ok := c.peers[roomID]; ok {
		c.mu.Unlock()
		ctx.JSON(http.StatusConflict, gin.H{"error": "a hosted peer is already in this room"})
		return
	}
	peer := c.controllers()
	c.peers[roomID] = peer
	c.mu.Unlock()

	if err := peer.Join(ctx.Request.Context(), roomID); err != nil {
		c.mu.Lock()
		delete(c.peers, roomID)
		c.mu.Unlock()

		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, call.ErrRoomFull):
			status = http.StatusConflict
		case errors.Is(err, store.ErrRoomNotFound):
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.log.Info("hosted peer joined",
		slog.String("room_id", roomID.String()),
		slog.String("role", string(peer.Role())))
	ctx.JSON(http.StatusOK, gin.H{"room_id": roomID, "role": peer.Role()})
}

// LeaveRoom detaches the hosted peer without touching the room record.
func (c *RoomController) LeaveRoom(ctx *gin.Context) {
	peer, ok := c.takePeer(ctx)
	if !ok {
		return
	}
	peer.Leave()
	ctx.JSON(http.StatusOK, gin.H{"status": "left"})
}

// CancelRoom cancels the call on behalf of the hosted peer.
func (c *RoomController) CancelRoom(ctx *gin.Context) {
	peer, ok := c.takePeer(ctx)
	if !ok {
		return
	}
	if err := peer.Cancel(ctx.Request.Context()); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (c *RoomController) takePeer(ctx *gin.Context) (*call.Controller, bool) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return nil, false
	}

	c.mu.Lock()
	peer, ok := c.peers[roomID]
	delete(c.peers, roomID)
	c.mu.Unlock()

	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no hosted peer in this room"})
		return nil, false
	}
	return peer, true
}

// ChatWS streams the room's live chat log over a websocket and accepts
// sends on the same connection.
func (c *RoomController) ChatWS(ctx *gin.Context) {
	roomID, err := uuid.Parse(ctx.Param("roomID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		ctx.String(http.StatusInternalServerError, "failed to upgrade connection")
		return
	}

	unsub, err := c.chat.Subscribe(context.Background(), roomID, func(msg domain.ChatMessage) {
		if err := conn.WriteJSON(msg); err != nil {
			c.log.Debug("chat ws write failed", sl.Err(err))
		}
	})
	if err != nil {
		_ = conn.WriteJSON(gin.H{"error": err.Error()})
		conn.Close()
		return
	}
	defer unsub()
	defer conn.Close()

	for {
		var req struct {
			Sender  string `json:"sender"`
			Message string `json:"message"`
			FileRef string `json:"file_ref"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		if req.FileRef != "" {
			_, err = c.chat.SendFileRef(context.Background(), roomID, req.Sender, req.FileRef)
		} else {
			_, err = c.chat.Send(context.Background(), roomID, req.Sender, req.Message)
		}
		if err != nil {
			if writeErr := conn.WriteJSON(gin.H{"error": err.Error()}); writeErr != nil {
				return
			}
		}
	}
}
