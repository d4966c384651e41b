package idempotency

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(store Store, calls *int, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(store, func() time.Duration { return time.Hour }, func(c *gin.Context) string { return c.GetHeader("X-User") }))
	handler := func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	}
	r.POST("/donate", handler)
	r.POST("/transfer", handler)
	r.GET("/donate", handler)
	return r
}

func send(r *gin.Engine, method, path, key string) *httptest.ResponseRecorder {
	return sendAs(r, method, path, key, "")
}

func sendAs(r *gin.Engine, method, path, key, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMiddlewareReplaysRepeatedPost(t *testing.T) {
	calls := 0
	r := newTestRouter(NewMemoryStore(), &calls, http.StatusCreated)

	first := send(r, http.MethodPost, "/donate", "abc")
	second := send(r, http.MethodPost, "/donate", "abc")
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("replay mismatch: %d %q vs %q", second.Code, second.Body.String(), first.Body.String())
	}
	if second.Header().Get(HeaderReplayed) != "true" {
		t.Fatalf("expected replay header")
	}

	send(r, http.MethodPost, "/transfer", "abc")
	send(r, http.MethodPost, "/donate", "")
	send(r, http.MethodGet, "/donate", "abc")
	if calls != 4 {
		t.Fatalf("expected other path, missing key and GET to bypass the cache, calls=%d", calls)
	}
}

func TestMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	calls := 0
	r := newTestRouter(NewMemoryStore(), &calls, http.StatusInternalServerError)
	send(r, http.MethodPost, "/donate", "k")
	send(r, http.MethodPost, "/donate", "k")
	if calls != 2 {
		t.Fatalf("expected retries after 5xx to reach the handler, calls=%d", calls)
	}
}

func TestMiddlewareKeepsCallersApart(t *testing.T) {
	calls := 0
	r := newTestRouter(NewMemoryStore(), &calls, http.StatusCreated)

	alice := sendAs(r, http.MethodPost, "/donate", "retry-1", "1")
	bob := sendAs(r, http.MethodPost, "/donate", "retry-1", "2")
	if calls != 2 {
		t.Fatalf("expected each caller to reach the handler, calls=%d", calls)
	}
	if bob.Header().Get(HeaderReplayed) != "" || bob.Body.String() == alice.Body.String() {
		t.Fatalf("second caller got a replayed response: %q", bob.Body.String())
	}
	if again := sendAs(r, http.MethodPost, "/donate", "retry-1", "2"); again.Header().Get(HeaderReplayed) != "true" || calls != 2 {
		t.Fatalf("expected same caller retry to replay, calls=%d", calls)
	}
}

func TestMiddlewareRejectsConcurrentDuplicate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore()
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	r := gin.New()
	r.Use(Middleware(store, func() time.Duration { return time.Hour }, nil))
	r.POST("/donate", func(c *gin.Context) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- send(r, http.MethodPost, "/donate", "k") }()
	<-started

	dup := send(r, http.MethodPost, "/donate", "k")
	if dup.Code != http.StatusConflict {
		t.Fatalf("expected status 409 while the first request runs, got %d", dup.Code)
	}
	close(release)
	if first := <-done; first.Code != http.StatusCreated {
		t.Fatalf("expected first request to finish with 201, got %d", first.Code)
	}
	if retry := send(r, http.MethodPost, "/donate", "k"); retry.Code != http.StatusCreated || retry.Header().Get(HeaderReplayed) != "true" {
		t.Fatalf("expected replay after completion, got %d", retry.Code)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}
}

func TestMiddlewareReleasesReservationAfterServerError(t *testing.T) {
	calls := 0
	store := NewMemoryStore()
	r := newTestRouter(store, &calls, http.StatusBadGateway)
	send(r, http.MethodPost, "/donate", "k")
	if _, ok, _ := store.Get(t.Context(), "POST /donate  k"); ok {
		t.Fatalf("expected reservation to be released after 5xx")
	}
}
