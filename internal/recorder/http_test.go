package recorder

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/your-org/mediameta/pkg/storage/metastore"
)

func newTestHandler(store Writer, opts HTTPOptions) http.Handler {
	rec := New(Params{Store: store})
	return NewHTTPHandler(rec, zap.NewNop(), opts).Router()
}

func postEvent(h http.Handler, body []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHTTPHandler_Health(t *testing.T) {
	h := newTestHandler(metastore.NewMemoryStore(), HTTPOptions{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHTTPHandler_Event(t *testing.T) {
	store := metastore.NewMemoryStore()
	h := newTestHandler(store, HTTPOptions{})

	w := postEvent(h, notificationJSON("uploads", "videos/clip.mp4", 5242880), nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["id"] != "uploads/videos/clip.mp4" {
		t.Errorf("unexpected id %q", resp["id"])
	}
	if store.Puts() != 1 {
		t.Errorf("expected 1 write, got %d", store.Puts())
	}
}

func TestHTTPHandler_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		store  Writer
		body   []byte
		status int
		writes int
	}{
		{"malformed", &failingStore{}, []byte(`{"Records":[]}`), http.StatusBadRequest, 0},
		{"store failure", &failingStore{err: errors.New("down")}, notificationJSON("b", "k.txt", 1), http.StatusBadGateway, 1},
		{"probe empty", &failingStore{}, nil, http.StatusOK, 0},
		{"probe object", &failingStore{}, []byte(" {} "), http.StatusOK, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(tt.store, HTTPOptions{})
			w := postEvent(h, tt.body, nil)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
			if calls := tt.store.(*failingStore).calls; calls != tt.writes {
				t.Errorf("expected %d writes, got %d", tt.writes, calls)
			}
		})
	}
}

func TestHTTPHandler_BodyLimit(t *testing.T) {
	store := metastore.NewMemoryStore()
	h := newTestHandler(store, HTTPOptions{MaxBodyBytes: 64})

	body := notificationJSON("uploads", strings.Repeat("a", 100)+".txt", 1)
	w := postEvent(h, body, nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
	if store.Puts() != 0 {
		t.Errorf("expected no writes, got %d", store.Puts())
	}
}

func TestHTTPHandler_Auth(t *testing.T) {
	store := metastore.NewMemoryStore()
	h := newTestHandler(store, HTTPOptions{AuthToken: "s3cret"})
	body := notificationJSON("uploads", "a.txt", 1)

	if w := postEvent(h, body, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: expected 401, got %d", w.Code)
	}
	if w := postEvent(h, body, http.Header{"Authorization": {"Bearer wrong"}}); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: expected 401, got %d", w.Code)
	}
	if w := postEvent(h, body, http.Header{"Authorization": {"Bearer s3cret"}}); w.Code != http.StatusCreated {
		t.Errorf("valid token: expected 201, got %d", w.Code)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health must not require auth, got %d", w.Code)
	}
}

func TestHTTPHandler_RateLimit(t *testing.T) {
	store := metastore.NewMemoryStore()
	h := newTestHandler(store, HTTPOptions{RateLimit: 0.001, RateBurst: 1})
	body := notificationJSON("uploads", "a.txt", 1)

	if w := postEvent(h, body, nil); w.Code != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", w.Code)
	}
	if w := postEvent(h, body, nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request: expected 429, got %d", w.Code)
	}
	if store.Puts() != 1 {
		t.Errorf("expected 1 write, got %d", store.Puts())
	}
}
