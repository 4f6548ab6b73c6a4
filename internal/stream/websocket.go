// Package stream serves the WebSocket endpoint that carries pose frames in
// and coaching verdicts out.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"formcoach/internal/coach"
	"formcoach/internal/domain"
	"formcoach/internal/estimator"
	"formcoach/internal/identity"
	"formcoach/internal/metrics"
	"formcoach/internal/pose"
	"formcoach/internal/profile"
	"formcoach/internal/store"
	"formcoach/internal/summary"
)

// WebSocketHandler handles WebSocket-based coaching sessions.
type WebSocketHandler struct {
	repo          store.Repository
	sm            *coach.SessionManager
	prof          profile.Profile
	est           estimator.Estimator
	sum           *summary.Client
	met           *metrics.Metrics
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler. est and sum may be
// nil: without an estimator raw-frame messages are rejected, and without a
// summarizer no snapshots are forwarded.
func NewWebSocketHandler(repo store.Repository, sm *coach.SessionManager, prof profile.Profile, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		repo:          repo,
		sm:            sm,
		prof:          prof,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// SetEstimator enables server-side pose estimation for raw-frame messages.
func (h *WebSocketHandler) SetEstimator(est estimator.Estimator) {
	h.est = est
}

// SetSummarizer enables forwarding of keypoint snapshots.
func (h *WebSocketHandler) SetSummarizer(sum *summary.Client) {
	h.sum = sum
}

// SetMetrics enables frame and rep instrumentation.
func (h *WebSocketHandler) SetMetrics(met *metrics.Metrics) {
	h.met = met
}

// inboundMessage is one client frame or control message.
type inboundMessage struct {
	Type      string          `json:"type"`
	Keypoints domain.Skeleton `json:"keypoints,omitempty"`
	Frame     []byte          `json:"frame,omitempty"` // base64 JPEG for server-side estimation
	Timestamp int64           `json:"ts,omitempty"`
}

// progressMessage reports the rep count after each counted rep.
type progressMessage struct {
	Type     string `json:"type"`
	RepCount int    `json:"rep_count"`
}

// feedbackMessage carries one window verdict.
type feedbackMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Score   int    `json:"score"`
}

// skeletonMessage echoes the visible keypoints and the overlay topology so
// the client can render the pose without duplicating joint adjacency.
type skeletonMessage struct {
	Type      string            `json:"type"`
	Keypoints []domain.Keypoint `json:"keypoints"`
	Segments  []domain.Segment  `json:"segments"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("WebSocket connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.sm.Register(userID, sessionID, ws)
	defer h.sm.Unregister(userID, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session, err := h.ensureSession(ctx, userID)
	if err != nil {
		slog.Error("Failed to establish session", "error", err, "user_id", userID)
		if err := h.writeJSON(ws, map[string]string{"type": "error", "error": "session_unavailable"}); err != nil {
			slog.Debug("Failed to send session_unavailable error", "error", err)
		}
		return
	}

	slog.Info("Coaching session attached", "session_id", session.ID, "user_id", userID, "reps", session.RepCount)

	// Frame processing is strictly sequential: one read loop, one pipeline,
	// no shared mutable state between frames.
	h.frameLoop(ctx, ws, session, userID)
	slog.Info("Coaching session detached", "session_id", session.ID, "user_id", userID)
}

// ensureSession returns the user's active session row, creating one when
// none is in flight.
func (h *WebSocketHandler) ensureSession(ctx context.Context, userID string) (*domain.WorkoutSession, error) {
	session, err := h.repo.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	now := time.Now().UTC()
	session = &domain.WorkoutSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := h.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	slog.Info("Workout session created", "session_id", session.ID, "user_id", userID)
	return session, nil
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

//nolint:gocognit // Message dispatch coordinates the socket, the pipeline, and persistence.
func (h *WebSocketHandler) frameLoop(ctx context.Context, ws *websocket.Conn, session *domain.WorkoutSession, userID string) {
	pipeline := coach.NewPipeline(h.prof, time.Now())
	repCount := session.RepCount

	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", userID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("Discarding malformed message", "error", err, "user_id", userID)
			continue
		}

		switch msg.Type {
		case "pose":
			h.processFrame(ws, pipeline, session, msg.Keypoints, &repCount)

		case "frame":
			if h.est == nil {
				if err := h.writeJSON(ws, map[string]string{"type": "error", "error": "estimator_unavailable"}); err != nil {
					slog.Debug("Failed to send estimator_unavailable error", "error", err)
				}
				continue
			}
			sk, err := h.est.Estimate(ctx, msg.Frame)
			if err != nil {
				slog.Warn("Pose estimation failed", "error", err, "session_id", session.ID)
				if h.met != nil {
					h.met.IncEstimatorErrors()
				}
				continue
			}
			h.processFrame(ws, pipeline, session, sk, &repCount)

		case "ping":
			if err := h.writeJSON(ws, map[string]string{"type": "pong"}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}

		case "restart":
			slog.Info("Set restart requested", "session_id", session.ID, "user_id", userID)
			pipeline.Restart(time.Now())
			repCount = 0
			h.persistProgress(session.ID, 0, 0, "")
			if err := h.writeJSON(ws, progressMessage{Type: "progress", RepCount: 0}); err != nil {
				slog.Debug("Failed to send restart progress", "error", err)
			}

		case "end":
			slog.Info("Session end requested", "session_id", session.ID, "user_id", userID)
			if err := h.repo.EndSession(ctx, session.ID, time.Now().UTC()); err != nil {
				slog.Error("Failed to end session", "error", err, "session_id", session.ID)
			}
			if err := h.writeJSON(ws, map[string]string{"type": "ended"}); err != nil {
				slog.Debug("Failed to send ended acknowledgment", "error", err)
			}
			return
		}

		// Update last seen asynchronously with timeout.
		go func() {
			updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.repo.UpdateLastSeen(updateCtx, userID, time.Now()); err != nil {
				slog.Warn("Failed to update last seen", "error", err)
			}
		}()
	}
}

// processFrame runs one skeleton through the pipeline and publishes whatever
// it produced.
func (h *WebSocketHandler) processFrame(ws *websocket.Conn, pipeline *coach.Pipeline, session *domain.WorkoutSession, sk domain.Skeleton, repCount *int) {
	if h.met != nil {
		h.met.IncFrames()
	}

	ev := pipeline.Process(sk, time.Now())

	if visible := pose.Visible(sk); len(visible) > 0 {
		if err := h.writeJSON(ws, skeletonMessage{
			Type:      "skeleton",
			Keypoints: visible,
			Segments:  domain.OverlaySegments,
		}); err != nil {
			slog.Debug("Failed to send skeleton", "error", err)
		}
	}

	if ev.RepCounted {
		// The pipeline counts from zero per connection; the session total
		// carries across reconnects, so it increments instead of mirroring.
		*repCount++
		if h.met != nil {
			h.met.IncReps()
		}
		if err := h.writeJSON(ws, progressMessage{Type: "progress", RepCount: *repCount}); err != nil {
			slog.Debug("Failed to send progress", "error", err)
		}
		h.persistProgress(session.ID, *repCount, session.LastScore, session.LastFeedback)
	}

	if ev.Feedback != nil {
		session.LastScore = ev.Feedback.Score
		session.LastFeedback = ev.Feedback.Message
		if h.met != nil {
			h.met.IncFeedback()
		}
		if err := h.writeJSON(ws, feedbackMessage{
			Type:    "feedback",
			Message: ev.Feedback.Message,
			Score:   ev.Feedback.Score,
		}); err != nil {
			slog.Debug("Failed to send feedback", "error", err)
		}
		h.persistProgress(session.ID, *repCount, ev.Feedback.Score, ev.Feedback.Message)
	}

	if h.sum != nil {
		h.sum.Observe(session.ID, sk)
	}
}

// persistProgress writes the live counters asynchronously so database
// contention never stalls the frame loop.
func (h *WebSocketHandler) persistProgress(sessionID string, repCount, score int, feedback string) {
	go func() {
		updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.repo.UpdateSessionProgress(updateCtx, sessionID, repCount, score, feedback); err != nil {
			slog.Warn("Failed to persist session progress", "error", err, "session_id", sessionID)
		}
	}()
}

func (h *WebSocketHandler) writeJSON(ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(context.Background(), websocket.MessageText, data)
}
