package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"formcoach/internal/coach"
	"formcoach/internal/domain"
	"formcoach/internal/identity"
	"formcoach/internal/profile"
)

type memRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	sessions map[string]*domain.WorkoutSession
}

func newMemRepo() *memRepo {
	return &memRepo{
		users:    make(map[string]*domain.User),
		sessions: make(map[string]*domain.WorkoutSession),
	}
}

func (f *memRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	if user == nil {
		return nil, nil
	}
	copy := *user
	return &copy, nil
}

func (f *memRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *user
	f.users[user.UserID] = &copy
	return nil
}

func (f *memRepo) UpdateLastSeen(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *memRepo) CreateSession(_ context.Context, session *domain.WorkoutSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *session
	f.sessions[session.ID] = &copy
	return nil
}

func (f *memRepo) GetSession(_ context.Context, sessionID string) (*domain.WorkoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[sessionID]
	if s == nil {
		return nil, nil
	}
	copy := *s
	return &copy, nil
}

func (f *memRepo) GetActiveSession(_ context.Context, userID string) (*domain.WorkoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.EndedAt == nil {
			copy := *s
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *memRepo) UpdateSessionProgress(_ context.Context, sessionID string, repCount, score int, feedback string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.sessions[sessionID]; s != nil && s.EndedAt == nil {
		s.RepCount = repCount
		s.LastScore = score
		s.LastFeedback = feedback
		s.UpdatedAt = time.Now()
	}
	return nil
}

func (f *memRepo) EndSession(_ context.Context, sessionID string, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s := f.sessions[sessionID]; s != nil && s.EndedAt == nil {
		s.EndedAt = &endedAt
	}
	return nil
}

func (f *memRepo) GetIdleSessions(_ context.Context, _ time.Duration) ([]*domain.WorkoutSession, error) {
	return nil, nil
}

func (f *memRepo) DeleteEndedSessions(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *memRepo) Ping(_ context.Context) error { return nil }
func (f *memRepo) Close() error                 { return nil }

// fullFrame builds a six-joint skeleton at the given shoulder height with a
// mid-range elbow bend.
func fullFrame(shoulderY float64) domain.Skeleton {
	return domain.Skeleton{
		{Name: domain.JointLeftShoulder, X: 100, Y: shoulderY, Score: 0.9},
		{Name: domain.JointRightShoulder, X: 200, Y: shoulderY, Score: 0.9},
		{Name: domain.JointLeftElbow, X: 90, Y: shoulderY + 40, Score: 0.9},
		{Name: domain.JointRightElbow, X: 210, Y: shoulderY + 40, Score: 0.9},
		{Name: domain.JointLeftWrist, X: 110, Y: shoulderY + 80, Score: 0.9},
		{Name: domain.JointRightWrist, X: 190, Y: shoulderY + 80, Score: 0.9},
	}
}

func newTestServer(t *testing.T, repo *memRepo) *httptest.Server {
	t.Helper()
	sm := coach.NewSessionManager()
	handler := NewWebSocketHandler(repo, sm, profile.Default(), "", true)
	mw := identity.Middleware(repo, true)
	srv := httptest.NewServer(mw(handler))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "test done") })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, v interface{}) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

// readUntil reads messages until one of the given type arrives or the
// timeout elapses.
func readUntil(t *testing.T, ws *websocket.Conn, msgType string) map[string]interface{} {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			t.Fatalf("read failed waiting for %q: %v", msgType, err)
		}
		var msg map[string]interface{}
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("malformed server message: %v", err)
		}
		if msg["type"] == msgType {
			return msg
		}
	}
}

func TestWebSocket_PingPong(t *testing.T) {
	srv := newTestServer(t, newMemRepo())
	ws := dial(t, srv)

	send(t, ws, map[string]string{"type": "ping"})
	readUntil(t, ws, "pong")
}

func TestWebSocket_CountsRepAndPublishesProgress(t *testing.T) {
	repo := newMemRepo()
	srv := newTestServer(t, repo)
	ws := dial(t, srv)

	// Descend past the down threshold, then rise back past the up
	// threshold with enough total range.
	for _, y := range []float64{100, 130, 160, 180, 160, 130, 100} {
		send(t, ws, map[string]interface{}{"type": "pose", "keypoints": fullFrame(y)})
	}

	msg := readUntil(t, ws, "progress")
	if msg["rep_count"] != float64(1) {
		t.Errorf("Expected rep_count 1, got %v", msg["rep_count"])
	}
}

func TestWebSocket_SkeletonEchoesVisibleJoints(t *testing.T) {
	srv := newTestServer(t, newMemRepo())
	ws := dial(t, srv)

	send(t, ws, map[string]interface{}{"type": "pose", "keypoints": fullFrame(100)})

	msg := readUntil(t, ws, "skeleton")
	kps, ok := msg["keypoints"].([]interface{})
	if !ok || len(kps) != 6 {
		t.Fatalf("Expected 6 visible keypoints, got %v", msg["keypoints"])
	}
	if _, ok := msg["segments"].([]interface{}); !ok {
		t.Error("Expected overlay segments in skeleton message")
	}
}

func TestWebSocket_RestartResetsProgress(t *testing.T) {
	srv := newTestServer(t, newMemRepo())
	ws := dial(t, srv)

	for _, y := range []float64{100, 180, 100} {
		send(t, ws, map[string]interface{}{"type": "pose", "keypoints": fullFrame(y)})
	}
	readUntil(t, ws, "progress")

	send(t, ws, map[string]string{"type": "restart"})
	msg := readUntil(t, ws, "progress")
	if msg["rep_count"] != float64(0) {
		t.Errorf("Expected rep_count 0 after restart, got %v", msg["rep_count"])
	}
}

func TestWebSocket_EndFinalizesSession(t *testing.T) {
	repo := newMemRepo()
	srv := newTestServer(t, repo)
	ws := dial(t, srv)

	send(t, ws, map[string]string{"type": "ping"})
	readUntil(t, ws, "pong")

	send(t, ws, map[string]string{"type": "end"})
	readUntil(t, ws, "ended")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		repo.mu.Lock()
		ended := false
		for _, s := range repo.sessions {
			if s.EndedAt != nil {
				ended = true
			}
		}
		n := len(repo.sessions)
		repo.mu.Unlock()
		if n == 1 && ended {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Expected the session row to be finalized")
}

func TestWebSocket_FrameRejectedWithoutEstimator(t *testing.T) {
	srv := newTestServer(t, newMemRepo())
	ws := dial(t, srv)

	send(t, ws, map[string]interface{}{"type": "frame", "frame": []byte{0xff, 0xd8}})
	msg := readUntil(t, ws, "error")
	if msg["error"] != "estimator_unavailable" {
		t.Errorf("Expected estimator_unavailable, got %v", msg["error"])
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(newMemRepo(), coach.NewSessionManager(), profile.Default(), "https://coach.example.com", false)

	req := httptest.NewRequest(http.MethodGet, "/ws/pose", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	if h.checkOrigin(req) {
		t.Error("Expected foreign origin to be rejected")
	}

	req.Header.Set("Origin", "https://coach.example.com")
	if !h.checkOrigin(req) {
		t.Error("Expected allowed origin to pass")
	}

	dev := NewWebSocketHandler(newMemRepo(), coach.NewSessionManager(), profile.Default(), "https://coach.example.com", true)
	req.Header.Set("Origin", "https://evil.example.com")
	if !dev.checkOrigin(req) {
		t.Error("Expected dev mode to accept any origin")
	}
}
