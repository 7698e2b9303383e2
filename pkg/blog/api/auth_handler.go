package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/auth"
)

// SessionCookieName is the cookie jwtauth reads when no bearer token is sent
const SessionCookieName = "jwt"

// LoginRequest is the request body for admin login
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse is the response body for a successful login
type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthHandler handles admin login
type AuthHandler struct {
	sessions *auth.Sessions
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *auth.Sessions) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Routes returns the routes for auth
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/admin", h.Login)
	return r
}

// Login checks the admin password and issues a session token, also set as a cookie
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		slog.Warn("Failed to decode request", "error", err)
		writeMessage(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.sessions.Login(req.Password)
	if err != nil {
		if errors.Is(err, blog.ErrUnauthorized) {
			slog.Warn("Admin login failed", "remote_addr", r.RemoteAddr)
			writeMessage(w, r, http.StatusUnauthorized, "Invalid password")
			return
		}
		writeError(w, r, err, "", "Authentication failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("Admin logged in", "expires_at", session.ExpiresAt)
	render.JSON(w, r, LoginResponse{Success: true, Token: session.Token, ExpiresAt: session.ExpiresAt})
}
