package summary

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"formcoach/internal/domain"
)

func testSkeleton() domain.Skeleton {
	return domain.Skeleton{
		{Name: domain.JointLeftShoulder, X: 100, Y: 120, Score: 0.9},
	}
}

func TestObserve_RateLimited(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL)
	base := time.Now()
	clock := base
	c.now = func() time.Time { return clock }

	// 30 frames inside one second: only the first goes out.
	for i := 0; i < 30; i++ {
		clock = base.Add(time.Duration(i) * 33 * time.Millisecond)
		c.Observe("sess-1", testSkeleton())
	}

	// Past the interval, one more is allowed.
	clock = base.Add(1100 * time.Millisecond)
	c.Observe("sess-1", testSkeleton())

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("Expected 2 calls, got %d", calls.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Give any stray sends a moment to land before the final count check.
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Errorf("Expected exactly 2 calls, got %d", got)
	}
}

func TestObserve_EmptySkeletonIgnored(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.Observe("sess-1", nil)
	c.Observe("sess-1", domain.Skeleton{})

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("Expected no calls for empty skeletons, got %d", got)
	}
}

func TestObserve_FailureIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	// Must not panic or block.
	c.Observe("sess-1", testSkeleton())
	time.Sleep(100 * time.Millisecond)
}
