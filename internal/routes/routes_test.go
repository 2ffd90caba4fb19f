package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/services"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/pkg/metrics"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendCustom(ctx context.Context, req services.CustomSendRequest) (services.CustomSendResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(services.CustomSendResponse), args.Error(1)
}

func (m *mockNotifier) CleanupInvalidTokens(ctx context.Context) (services.SweepReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.SweepReport), args.Error(1)
}

func newTestRouter(n Notifier) http.Handler {
	return NewRouter(n, metrics.New(), slog.New(slog.NewTextHandler(io.Discard, nil)), time.Now())
}

func post(t *testing.T, h http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestSendCustomNotification(t *testing.T) {
	n := new(mockNotifier)
	n.On("SendCustom", mock.Anything, mock.MatchedBy(func(req services.CustomSendRequest) bool {
		return req.Title == "Hi" && req.Topic == "news" && req.Data["n"] == float64(2)
	})).Return(services.CustomSendResponse{Success: true, SuccessCount: 1}, nil).Once()

	rec, out := post(t, newTestRouter(n), "/v1/sendCustomNotification",
		`{"data":{"title":"Hi","body":"there","topic":"news","data":{"n":2}}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"success": true, "successCount": float64(1), "failureCount": float64(0)}, out["result"])
	n.AssertExpectations(t)
}

func TestSendCustomNotificationErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantHTTP   int
		wantStatus string
	}{
		{"invalid argument", status.Error(codes.InvalidArgument, "title and body are required"), http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"internal", status.Error(codes.Internal, "fcm down"), http.StatusInternalServerError, "INTERNAL"},
		{"plain error", errors.New("unexpected"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := new(mockNotifier)
			n.On("SendCustom", mock.Anything, mock.Anything).Return(services.CustomSendResponse{}, tc.err).Once()

			rec, out := post(t, newTestRouter(n), "/v1/sendCustomNotification", `{"data":{}}`)

			assert.Equal(t, tc.wantHTTP, rec.Code)
			errBody, ok := out["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tc.wantStatus, errBody["status"])
		})
	}
}

func TestSendCustomNotificationBadJSON(t *testing.T) {
	n := new(mockNotifier)
	rec, out := post(t, newTestRouter(n), "/v1/sendCustomNotification", `not-json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", out["error"].(map[string]any)["status"])
	n.AssertNotCalled(t, "SendCustom", mock.Anything, mock.Anything)
}

func TestCleanupInvalidTokens(t *testing.T) {
	n := new(mockNotifier)
	n.On("CleanupInvalidTokens", mock.Anything).Return(services.SweepReport{Scanned: 4, Deleted: 1}, nil).Once()

	rec, out := post(t, newTestRouter(n), "/v1/cleanupInvalidTokens", ``)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"scanned": float64(4), "deleted": float64(1)}, out["result"])
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(new(mockNotifier))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
