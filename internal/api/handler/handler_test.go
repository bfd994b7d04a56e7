package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rrens/invitation-agent/internal/domain"
	"github.com/Rrens/invitation-agent/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type fakeFlusher struct {
	deleted int64
	err     error
}

func (f *fakeFlusher) FlushAll(ctx context.Context) (int64, error) { return f.deleted, f.err }

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}

func TestReadyCheck(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ReadyCheck(pingerFunc(func(context.Context) error { return nil }))(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ready", decode(t, rec)["status"])
	})

	t.Run("store down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ReadyCheck(pingerFunc(func(context.Context) error { return errors.New("dial tcp: refused") }))(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "database not ready", decode(t, rec)["detail"])
	})
}

func TestFlushCache(t *testing.T) {
	t.Run("flushes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		FlushCache(&fakeFlusher{deleted: 3})(rec, httptest.NewRequest(http.MethodPost, "/cache/flush", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, float64(3), decode(t, rec)["keys_deleted"])
	})

	t.Run("error is not leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		FlushCache(&fakeFlusher{err: errors.New("NOAUTH secret")})(rec, httptest.NewRequest(http.MethodPost, "/cache/flush", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", decode(t, rec)["detail"])
	})
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{service.ErrDuplicateUser, http.StatusBadRequest},
		{service.ErrEmptyMessage, http.StatusBadRequest},
		{service.ErrInvalidCredentials, http.StatusUnauthorized},
		{service.ErrUserNotFound, http.StatusNotFound},
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("failed to save turn: %w", domain.ErrVersionConflict), http.StatusConflict},
		{fmt.Errorf("%w: timeout", service.ErrSessionBusy), http.StatusConflict},
		{service.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("pq: relation does not exist"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			if tt.status == http.StatusInternalServerError {
				assert.Equal(t, "internal server error", body["detail"])
			} else {
				assert.NotEmpty(t, body["detail"])
			}
		})
	}
}
