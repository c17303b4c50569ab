package handlers

import (
	"errors"
	"net/http"

	"health-companion-backend/internal/middleware"
	"health-companion-backend/internal/models"
	"health-companion-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateSessionRequest represents the request body for logging in
type CreateSessionRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// SessionResponse carries a fresh access token
type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err, "Failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// CreateSession handles POST /api/v1/sessions
func (h *UserHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, user, err := h.userService.Authenticate(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			respondError(w, "Invalid login or password", http.StatusUnauthorized)
			return
		}
		respondServiceError(w, r, err, "Failed to authenticate")
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Msg("Session created")

	respondJSON(w, http.StatusCreated, SessionResponse{Token: token, User: user})
}

// Me handles GET /api/v1/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err, "Failed to get user")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
