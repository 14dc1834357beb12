package notificationapi

import (
	"log/slog"
	"net/http"
	"time"

	"chime-together/internal/adapters/input/http/respond"
	"chime-together/internal/adapters/ws"
	"chime-together/internal/domain/notification"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	repository notification.Repository
	hub        *ws.Hub
	logger     *slog.Logger
}

func NewHandler(repository notification.Repository, hub *ws.Hub, logger *slog.Logger) *Handler {
	return &Handler{repository: repository, hub: hub, logger: logger}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", ws.Handler(h.hub, h.logger))

	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/{receiverId}", h.ListByReceiver)
		r.Get("/by-id/{notificationId}", h.GetByID)
		r.Delete("/{notificationId}", h.Delete)
		r.Put("/{notificationId}/read", h.MarkRead)
	})
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type notificationResponse struct {
	Id         string    `json:"id"`
	MessageId  string    `json:"messageId"`
	ReceiverId string    `json:"receiverId"`
	SenderId   string    `json:"senderId"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Read       bool      `json:"read"`
}

func toNotificationResponse(n notification.Notification) notificationResponse {
	return notificationResponse{
		Id:         n.ID.String(),
		MessageId:  n.MessageId,
		ReceiverId: n.ReceiverId,
		SenderId:   n.SenderId,
		Message:    n.Message,
		Timestamp:  n.Timestamp,
		Read:       n.Read,
	}
}

func (h *Handler) ListByReceiver(w http.ResponseWriter, r *http.Request) {
	receiverId := chi.URLParam(r, "receiverId")
	notifications, werr := h.repository.GetByReceiver(r.Context(), receiverId)
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	resp := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, toNotificationResponse(n))
	}
	respond.JSON(w, http.StatusOK, resp)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "notificationId"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	n, werr := h.repository.GetByID(r.Context(), id)
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	respond.JSON(w, http.StatusOK, toNotificationResponse(n))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "notificationId"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if werr := h.repository.Delete(r.Context(), id); werr != nil {
		respond.WError(w, werr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "notificationId"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid notification id")
		return
	}
	if werr := h.repository.MarkRead(r.Context(), id); werr != nil {
		respond.WError(w, werr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
