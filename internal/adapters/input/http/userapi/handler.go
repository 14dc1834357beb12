package userapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"chime-together/internal/adapters/input/http/respond"
	"chime-together/internal/domain/user"
	"chime-together/pkg/logattr"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	service *user.Service
	logger  *slog.Logger
}

func NewHandler(service *user.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.GetAll)
		r.Post("/", h.Create)
		r.Get("/search", h.Search)
		r.Get("/by-auth/{authUserId}", h.GetByAuthUserID)
		r.Get("/{userId}", h.GetByID)
		r.Put("/{userId}", h.Update)
		r.Delete("/{userId}", h.Delete)
	})
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type profileResponse struct {
	Id         string    `json:"id"`
	AuthUserId string    `json:"authUserId"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toProfileResponse(p user.Profile) profileResponse {
	return profileResponse{
		Id:         p.ID.String(),
		AuthUserId: p.AuthUserId,
		Username:   p.Username,
		Email:      p.Email,
		CreatedAt:  p.CreatedAt,
	}
}

func toProfileResponses(profiles []user.Profile) []profileResponse {
	resp := make([]profileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, toProfileResponse(p))
	}
	return resp
}

type createProfileRequest struct {
	AuthUserId string `json:"authUserId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (h *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	profiles, werr := h.service.GetAll(r.Context())
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	respond.JSON(w, http.StatusOK, toProfileResponses(profiles))
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	profile, werr := h.service.GetByID(r.Context(), id)
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	respond.JSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) GetByAuthUserID(w http.ResponseWriter, r *http.Request) {
	authUserId := chi.URLParam(r, "authUserId")
	profile, werr := h.service.GetByAuthUserID(r.Context(), authUserId)
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	respond.JSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		respond.Error(w, http.StatusBadRequest, "username query parameter is required")
		return
	}
	profiles, werr := h.service.SearchByUsername(r.Context(), username)
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	respond.JSON(w, http.StatusOK, toProfileResponses(profiles))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AuthUserId == "" || req.Username == "" || req.Email == "" {
		respond.Error(w, http.StatusBadRequest, "authUserId, username and email are required")
		return
	}
	created, werr := h.service.CreateIfNotExists(r.Context(), req.AuthUserId, req.Username, req.Email, time.Now().UTC())
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	if !created {
		respond.Error(w, http.StatusConflict, "profile already exists")
		return
	}
	profile, werr := h.service.GetByAuthUserID(r.Context(), req.AuthUserId)
	if werr != nil {
		h.logger.Error("failed reading back created profile", logattr.AuthUserId(req.AuthUserId), logattr.Error(werr.Message()))
		respond.WError(w, werr)
		return
	}
	respond.JSON(w, http.StatusCreated, toProfileResponse(profile))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" {
		respond.Error(w, http.StatusBadRequest, "username and email are required")
		return
	}
	profile, werr := h.service.Update(r.Context(), id, req.Username, req.Email)
	if werr != nil {
		respond.WError(w, werr)
		return
	}
	respond.JSON(w, http.StatusOK, toProfileResponse(profile))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if werr := h.service.Delete(r.Context(), id); werr != nil {
		respond.WError(w, werr)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
