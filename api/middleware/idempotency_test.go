package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
)

const acceptPath = "/api/v1/owner/matches/7c1d/accept"

type fakeStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func ownerRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, acceptPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req.WithContext(WithActor(req.Context(), "owner-user", "owner"))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, DecisionIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), ownerRequest(`{}`, ""))
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, DecisionIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"status":"accepted"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, ownerRequest(`{}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, ownerRequest(`{}`, "abc"))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get(idempotentReplayHeader))
	assert.JSONEq(t, `{"data":{"status":"accepted"}}`, replay.Body.String())
	for _, ttl := range store.ttls {
		assert.Equal(t, DecisionIdempotencyTTL, ttl)
	}
}

func TestIdempotencyScopesKeysPerActor(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, DecisionIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), ownerRequest(`{}`, "shared"))
	other := httptest.NewRequest(http.MethodPost, acceptPath, strings.NewReader(`{}`))
	other.Header.Set(IdempotencyKeyHeader, "shared")
	other = other.WithContext(WithActor(other.Context(), "admin-user", "admin"))
	handler.ServeHTTP(httptest.NewRecorder(), other)

	assert.Equal(t, 2, calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, DecisionIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), ownerRequest(`{}`, "retry-me"))
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyRejectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, MatchRunIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), ownerRequest(`{"dryRun":true}`, "xyz"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, ownerRequest(`{"dryRun":false}`, "xyz"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, rec))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	var inner http.Handler
	handler := Idempotency(store, DecisionIdempotencyTTL, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dup := httptest.NewRecorder()
		inner.ServeHTTP(dup, ownerRequest(`{}`, "dup"))
		assert.Equal(t, http.StatusConflict, dup.Code)
		w.WriteHeader(http.StatusOK)
	}))
	inner = handler

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, ownerRequest(`{}`, "dup"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
