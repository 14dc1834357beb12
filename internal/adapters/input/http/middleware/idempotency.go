package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	processingTTL        = 10 * time.Second
	completedTTL         = 24 * time.Hour
)

// IdempotencyStore is the slice of the redis client the middleware needs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Idempotency guards state-changing endpoints against client retries of the
// same logical request. Requests without an Idempotency-Key header pass
// through; so do requests when redis is unreachable (the projectors dedup
// anyway, this is an edge optimization). A 5xx outcome releases the key so
// the client may retry the failed request.
func Idempotency(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(idempotencyKeyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			idemKey := "idempotency:" + key
			ctx := r.Context()

			_, err := store.Get(ctx, idemKey).Result()
			if err == nil {
				w.Header().Set("X-Idempotency-Hit", "true")
				http.Error(w, `{"message": "request already processed"}`, http.StatusConflict)
				return
			}
			if !errors.Is(err, redis.Nil) {
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := store.SetNX(ctx, idemKey, "PROCESSING", processingTTL).Result()
			if err != nil || !acquired {
				http.Error(w, `{"message": "concurrent request"}`, http.StatusConflict)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			if recorder.status >= http.StatusInternalServerError {
				store.Del(ctx, idemKey)
				return
			}
			store.Set(ctx, idemKey, "COMPLETED", completedTTL)
		})
	}
}
