// Package httptransport exposes the service over HTTP: record queries,
// acquisition runs with streamed progress, reconciliation, notifications and
// user management, all behind bearer-token auth.
package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certhub/internal/acquire"
	"certhub/internal/auth"
	"certhub/internal/domain"
	"certhub/internal/notify"
	domainerrors "certhub/pkg/domain-errors"
)

// AuthService is the account surface the handlers need.
type AuthService interface {
	TokenVerifier
	Login(ctx context.Context, username, password string) (string, domain.User, error)
	CreateUser(ctx context.Context, actor auth.Claims, username, password string, role domain.Role) (domain.User, error)
	DeleteUser(ctx context.Context, actor auth.Claims, username string) error
	ListUsers(ctx context.Context, actor auth.Claims) ([]domain.User, error)
}

// Reconciler runs record reconciliation and cross-store deletes.
type Reconciler interface {
	Run(ctx context.Context) ([]domain.IssuanceRecord, error)
	DeleteEverywhere(ctx context.Context, key domain.RecordKey) error
}

// AcquireRunner drives a full acquisition for one identifier.
type AcquireRunner interface {
	AcquireAllStream(ctx context.Context, id domain.TaxpayerID, progress func(acquire.ProgressEvent)) []acquire.Outcome
}

// SweepRunner triggers the expiry sweep and the one-off issuance mails.
type SweepRunner interface {
	Run(ctx context.Context, force bool) (notify.Outcome, error)
	AnnounceIssuance(ctx context.Context, rec domain.IssuanceRecord) error
}

// Handler is the thin HTTP layer; all business logic lives in the services.
type Handler struct {
	auth     AuthService
	records  Reconciler
	acquirer AcquireRunner
	sweeper  SweepRunner
	log      *slog.Logger
}

// NewHandler wires the HTTP layer.
func NewHandler(authSvc AuthService, records Reconciler, acquirer AcquireRunner, sweeper SweepRunner, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		auth:     authSvc,
		records:  records,
		acquirer: acquirer,
		sweeper:  sweeper,
		log:      log,
	}
}

// NewRouter builds the full route tree.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/api/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(h.auth, h.log))

		r.Get("/api/records", h.handleListRecords)
		r.Post("/api/records/sync", h.handleSync)
		r.Delete("/api/records/{id}/{type}", h.handleDeleteRecord)
		r.Post("/api/acquire/{id}", h.handleAcquire)
		r.Post("/api/notify/run", h.handleNotifyRun)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/api/users", h.handleListUsers)
			r.Post("/api/users", h.handleCreateUser)
			r.Delete("/api/users/{username}", h.handleDeleteUser)
		})
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates domain error codes into HTTP statuses with a stable
// JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := domainerrors.CodeInternal
	message := "internal error"

	var de *domainerrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
		status = httpStatus(de.Code)
	}
	writeJSON(w, status, map[string]string{
		"error":   string(code),
		"message": message,
	})
}

func httpStatus(code domainerrors.Code) int {
	switch code {
	case domainerrors.CodeNotFound:
		return http.StatusNotFound
	case domainerrors.CodeBadRequest, domainerrors.CodeInvalidInput:
		return http.StatusBadRequest
	case domainerrors.CodeConflict:
		return http.StatusConflict
	case domainerrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case domainerrors.CodeForbidden:
		return http.StatusForbidden
	case domainerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case domainerrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// timeoutContext bounds slow handlers without cutting off acquisition runs,
// which legitimately take minutes.
func timeoutContext(r *http.Request, d time.Duration) (*http.Request, func()) {
	ctx, cancel := context.WithTimeout(r.Context(), d)
	return r.WithContext(ctx), cancel
}
