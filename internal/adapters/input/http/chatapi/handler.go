package chatapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chime-together/internal/adapters/input/http/middleware"
	"chime-together/internal/adapters/input/http/respond"
	"chime-together/internal/adapters/ws"
	"chime-together/internal/domain/chat"
	"chime-together/pkg/logattr"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Handler struct {
	service *chat.Service
	hub     *ws.Hub
	logger  *slog.Logger
}

func NewHandler(service *chat.Service, hub *ws.Hub, logger *slog.Logger) *Handler {
	return &Handler{service: service, hub: hub, logger: logger}
}

// NewRouter wires the chat endpoints. redisClient may be nil, in which case
// the Idempotency-Key header is ignored.
func NewRouter(h *Handler, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.Handler(h.hub, h.logger))

	r.Route("/api/chat", func(r chi.Router) {
		if redisClient != nil {
			r.With(middleware.Idempotency(redisClient)).Post("/messages", h.SendMessage)
		} else {
			r.Post("/messages", h.SendMessage)
		}
		r.Get("/conversations/{userId}", h.Conversations)
		r.Get("/conversations/{conversationId}/messages", h.History)
	})
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type sendMessageRequest struct {
	SenderId   string `json:"senderId"`
	ReceiverId string `json:"receiverId"`
	Content    string `json:"content"`
}

type messageResponse struct {
	Id             string    `json:"id"`
	ConversationId string    `json:"conversationId"`
	SenderId       string    `json:"senderId"`
	ReceiverId     string    `json:"receiverId"`
	Content        string    `json:"content"`
	SentAt         time.Time `json:"sentAt"`
}

type conversationResponse struct {
	Id           string    `json:"id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
	LastMessage  string    `json:"lastMessage"`
}

// receiveMessagePush is the frame pushed to a connected receiver the moment
// their message is committed.
type receiveMessagePush struct {
	Event    string    `json:"event"`
	SenderId string    `json:"senderId"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sentAt"`
}

func toMessageResponse(m chat.Message) messageResponse {
	return messageResponse{
		Id:             m.ID.String(),
		ConversationId: m.ConversationID.String(),
		SenderId:       m.SenderID,
		ReceiverId:     m.ReceiverID,
		Content:        m.Content,
		SentAt:         m.SentAt,
	}
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SenderId == "" || req.ReceiverId == "" || req.Content == "" {
		respond.Error(w, http.StatusBadRequest, "senderId, receiverId and content are required")
		return
	}
	if req.SenderId == req.ReceiverId {
		respond.Error(w, http.StatusBadRequest, "sender and receiver must differ")
		return
	}
	message, werr := h.service.SendMessage(r.Context(), req.SenderId, req.ReceiverId, req.Content)
	if werr != nil {
		respond.WError(w, werr)
		return
	}

	// Push to the receiver if they hold a live connection on this instance.
	// Failures are logged only; delivery guarantees live in notifyd.
	err := h.hub.SendToUser(req.ReceiverId, receiveMessagePush{
		Event:    "ReceiveMessage",
		SenderId: message.SenderID,
		Content:  message.Content,
		SentAt:   message.SentAt,
	})
	if err != nil {
		h.logger.Warn("realtime push failed", logattr.ReceiverId(req.ReceiverId), logattr.Error(err.Error()))
	}

	respond.JSON(w, http.StatusOK, toMessageResponse(message))
}

func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userId")
	conversations, werr := h.service.ConversationsOfUser(r.Context(), userId)
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	resp := make([]conversationResponse, 0, len(conversations))
	for _, c := range conversations {
		resp = append(resp, conversationResponse{
			Id:           c.ID.String(),
			Participants: c.Participants,
			CreatedAt:    c.CreatedAt,
			LastMessage:  c.LastMessage,
		})
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	conversationId, err := uuid.Parse(chi.URLParam(r, "conversationId"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	messages, werr := h.service.ConversationHistory(r.Context(), conversationId)
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	resp := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, toMessageResponse(m))
	}
	respond.JSON(w, http.StatusOK, resp)
}
