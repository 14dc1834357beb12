package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (s *fakeStore) Get(_ context.Context, key string) *redis.StringCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value, ok := s.values[key]; ok {
		return redis.NewStringResult(value, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (s *fakeStore) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	s.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (s *fakeStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (s *fakeStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for _, key := range keys {
		if _, ok := s.values[key]; ok {
			delete(s.values, key)
			deleted++
		}
	}
	return redis.NewIntResult(deleted, nil)
}

func (s *fakeStore) value(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

func postRequest(idempotencyKey string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/chat/messages", strings.NewReader("{}"))
	if idempotencyKey != "" {
		req.Header.Set(idempotencyKeyHeader, idempotencyKey)
	}
	return req
}

func countingHandler(status int, calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(status)
	})
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store)(countingHandler(http.StatusOK, &calls))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, postRequest(""))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 1, calls)
	assert.Empty(t, store.values)
}

func TestIdempotencyRejectsRepeatedKey(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store)(countingHandler(http.StatusOK, &calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postRequest("abc-123"))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, postRequest("abc-123"))

	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Hit"))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyMarksSuccessfulRequestCompleted(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store)(countingHandler(http.StatusOK, &calls))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, postRequest("abc-123"))

	require.Equal(t, http.StatusOK, recorder.Code)
	value, ok := store.value("idempotency:abc-123")
	require.True(t, ok)
	assert.Equal(t, "COMPLETED", value)
}

func TestIdempotencyReleasesKeyWhenHandlerFails(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store)(countingHandler(http.StatusInternalServerError, &calls))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, postRequest("abc-123"))
	require.Equal(t, http.StatusInternalServerError, first.Code)
	_, ok := store.value("idempotency:abc-123")
	assert.False(t, ok, "failed request must not hold the key")

	retry := httptest.NewRecorder()
	handler.ServeHTTP(retry, postRequest("abc-123"))

	assert.Equal(t, http.StatusInternalServerError, retry.Code)
	assert.Equal(t, 2, calls, "client retry of a failed request must reach the handler")
}
