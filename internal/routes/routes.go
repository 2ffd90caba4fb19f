package routes

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/internal/services"
	"github.com/CyberwizD/Distributed-Notification-System/services/catalog_notifier/pkg/metrics"
)

// Notifier is the callable surface exposed over HTTP.
type Notifier interface {
	SendCustom(ctx context.Context, req services.CustomSendRequest) (services.CustomSendResponse, error)
	CleanupInvalidTokens(ctx context.Context) (services.SweepReport, error)
}

type handler struct {
	notifier Notifier
	logger   *slog.Logger
	started  time.Time
}

// NewRouter wires the callable endpoints next to health and metrics.
func NewRouter(notifier Notifier, metrics *metrics.Metrics, logger *slog.Logger, started time.Time) http.Handler {
	h := &handler{notifier: notifier, logger: logger, started: started}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sendCustomNotification", h.sendCustomNotification)
		r.Post("/cleanupInvalidTokens", h.cleanupInvalidTokens)
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "notifier healthy",
		"meta": map[string]any{
			"uptime_seconds": int(time.Since(h.started).Seconds()),
			"timestamp":      time.Now().UTC(),
		},
	})
}

// callableRequest follows the Firebase callable protocol: the payload is
// wrapped in "data" and the reply in "result" or "error".
type callableRequest struct {
	Data services.CustomSendRequest `json:"data"`
}

func (h *handler) sendCustomNotification(w http.ResponseWriter, r *http.Request) {
	var req callableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid callable body", slog.Any("error", err))
		writeCallableError(w, status.Error(codes.InvalidArgument, "request body must be {\"data\": {...}}"))
		return
	}

	resp, err := h.notifier.SendCustom(r.Context(), req.Data)
	if err != nil {
		writeCallableError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": resp})
}

func (h *handler) cleanupInvalidTokens(w http.ResponseWriter, r *http.Request) {
	report, err := h.notifier.CleanupInvalidTokens(r.Context())
	if err != nil {
		writeCallableError(w, status.Error(codes.Internal, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": report})
}

var callableStatus = map[codes.Code]struct {
	name string
	http int
}{
	codes.InvalidArgument: {"INVALID_ARGUMENT", http.StatusBadRequest},
	codes.Internal:        {"INTERNAL", http.StatusInternalServerError},
}

func writeCallableError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	mapped, ok := callableStatus[st.Code()]
	if !ok {
		mapped = callableStatus[codes.Internal]
	}
	writeJSON(w, mapped.http, map[string]any{
		"error": map[string]string{
			"status":  mapped.name,
			"message": st.Message(),
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
