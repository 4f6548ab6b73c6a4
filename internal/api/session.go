package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"formcoach/internal/identity"
	"formcoach/internal/profile"
	"formcoach/internal/store"
)

// SessionHandler handles workout session endpoints.
type SessionHandler struct {
	*Handler
	prof profile.Profile
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(base *Handler, prof profile.Profile) *SessionHandler {
	return &SessionHandler{Handler: base, prof: prof}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/config", h.GetConfig)
		r.Get("/session", h.GetSession)
		r.Post("/session/end", h.EndSession)
	})
}

// GetMe returns the current user's information.
func (h *SessionHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":  user.UserID,
		"username": user.Username,
	})
}

// GetConfig returns the coaching profile the frontend should display.
func (h *SessionHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"exercise":      h.prof.Name,
		"window_millis": h.prof.Window.Milliseconds(),
	})
}

// GetSession returns the user's active session snapshot, or 404 when the
// user has no session in flight.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := h.repo.GetActiveSession(r.Context(), userID)
	if err != nil {
		slog.Error("Failed to load active session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		Error(w, http.StatusNotFound, "no active session")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id":      session.ID,
		"rep_count":       session.RepCount,
		"last_score":      session.LastScore,
		"last_feedback":   session.LastFeedback,
		"elapsed_seconds": int64(session.Elapsed().Seconds()),
	})
}

// EndSession finalizes the user's active session and closes its stream.
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx := r.Context()
	session, err := h.repo.GetActiveSession(ctx, userID)
	if err != nil {
		slog.Error("Failed to load active session", "error", err, "user_id", userID)
		Error(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		JSON(w, http.StatusOK, map[string]string{"status": "no_session"})
		return
	}

	// Close any live stream before finalizing the row.
	h.sm.CloseUser(userID)

	if err := h.repo.EndSession(ctx, session.ID, time.Now().UTC()); err != nil {
		slog.Error("Failed to end session", "error", err, "session_id", session.ID)
		Error(w, http.StatusInternalServerError, "failed to end session")
		return
	}

	slog.Info("Session ended via API", "session_id", session.ID, "user_id", userID, "reps", session.RepCount)
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ended",
		"rep_count": session.RepCount,
	})
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo store.Repository
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository) *HealthHandler {
	return &HealthHandler{repo: repo}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
