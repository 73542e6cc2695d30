package handler

import (
	"net/http"

	"paloma-store/internal/model"
	"paloma-store/internal/service"
	"paloma-store/internal/session"

	"github.com/rs/zerolog"
)

// AuthHandler handles account and session requests.
type AuthHandler struct {
	service  service.AuthService
	sessions *session.Manager
	logger   zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(service service.AuthService, sessions *session.Manager, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		sessions: sessions,
		logger:   logger.With().Str("handler", "auth").Logger(),
	}
}

// SignUp handles POST /api/auth/sign-up. The new account is signed in.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req model.SignUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w, err, h.logger)
		return
	}

	user, err := h.service.SignUp(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	if err := h.sessions.SignIn(w, r, user); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, user, h.logger)
}

// SignIn handles POST /api/auth/sign-in.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeInvalidJSON(w, err, h.logger)
		return
	}

	user, err := h.service.SignIn(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	if err := h.sessions.SignIn(w, r, user); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, user, h.logger)
}

// SignOut handles POST /api/auth/sign-out. The cart stays with the session.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.SignOut(w, r); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/auth/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	who, ok := session.FromContext(r.Context())
	if !ok {
		writeDomainError(w, model.ErrUnauthorised, h.logger)
		return
	}

	user, err := h.service.GetByID(r.Context(), who.UserID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, user, h.logger)
}
