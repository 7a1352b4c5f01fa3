package project

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/figdraw/figdraw/internal/auth"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes mounts the project endpoints on r. Callers wrap r with the auth
// middleware.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/projects", h.List).Methods(http.MethodGet)
	r.HandleFunc("/projects", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/projects/{projectId}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/projects/{projectId}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/projects/{projectId}/drawing", h.GetLatestSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/projects/{projectId}/members", h.ListMembers).Methods(http.MethodGet)
	r.HandleFunc("/projects/{projectId}/members", h.Invite).Methods(http.MethodPost)
	r.HandleFunc("/projects/{projectId}/members/{userId}", h.RemoveMember).Methods(http.MethodDelete)
}

type createRequest struct {
	Name string `json:"name"`
}

type inviteRequest struct {
	Email string `json:"email"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		auth.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	project, err := h.service.Create(r.Context(), name, userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	auth.WriteJSON(w, http.StatusCreated, project)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), mux.Vars(r)["projectId"], auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, project)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if projects == nil {
		projects = []Project{}
	}
	auth.WriteJSON(w, http.StatusOK, projects)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), mux.Vars(r)["projectId"], auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		auth.WriteError(w, http.StatusBadRequest, "email is required")
		return
	}

	err := h.service.InviteByEmail(r.Context(), mux.Vars(r)["projectId"], auth.UserIDFromContext(r.Context()), req.Email)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	auth.WriteJSON(w, http.StatusCreated, map[string]string{"status": "invited"})
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context(), mux.Vars(r)["projectId"], auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	auth.WriteJSON(w, http.StatusOK, members)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.service.RemoveMember(r.Context(), vars["projectId"], auth.UserIDFromContext(r.Context()), vars["userId"])
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLatestSnapshot serves the last saved drawing document as is.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetLatestSnapshot(r.Context(), mux.Vars(r)["projectId"], auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		auth.WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, ErrUserNotFound):
		auth.WriteError(w, http.StatusNotFound, "user not found")
	case errors.Is(err, ErrForbidden):
		auth.WriteError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ErrNotMember):
		auth.WriteError(w, http.StatusForbidden, "not a project member")
	case errors.Is(err, ErrOwnerRemoval):
		auth.WriteError(w, http.StatusBadRequest, "cannot remove project owner")
	case errors.Is(err, ErrAlreadyIn):
		auth.WriteError(w, http.StatusConflict, "user is already a member")
	default:
		h.logger.Error("service error", "error", err)
		auth.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
