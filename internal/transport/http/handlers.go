package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"certhub/internal/acquire"
	"certhub/internal/domain"
	domainerrors "certhub/pkg/domain-errors"
)

const syncTimeout = 2 * time.Minute

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string      `json:"token"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: user.Username, Role: user.Role})
}

// handleListRecords reconciles with the remote store and returns the
// resulting record set. A remote outage degrades to the local view.
func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	r, cancel := timeoutContext(r, syncTimeout)
	defer cancel()

	records, err := h.records.Run(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "list records", "error", err)
		writeError(w, domainerrors.New(domainerrors.CodeInternal, "failed to load records"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	r, cancel := timeoutContext(r, syncTimeout)
	defer cancel()

	records, err := h.records.Run(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "sync records", "error", err)
		writeError(w, domainerrors.New(domainerrors.CodeInternal, "reconciliation failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": len(records)})
}

func (h *Handler) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := domain.NormalizeTaxpayerID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeInvalidInput, err.Error()))
		return
	}
	docType := domain.DocumentType(chi.URLParam(r, "type"))
	if !docType.IsValid() {
		writeError(w, domainerrors.New(domainerrors.CodeInvalidInput, "unknown document type"))
		return
	}

	key := domain.RecordKey{TaxpayerID: id, DocumentType: docType}
	if err := h.records.DeleteEverywhere(r.Context(), key); err != nil {
		h.log.ErrorContext(r.Context(), "delete record", "key", key.String(), "error", err)
		writeError(w, domainerrors.New(domainerrors.CodeInternal, "delete failed"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAcquire runs a full acquisition and streams progress as NDJSON: one
// event per line as it happens, then a final summary line.
func (h *Handler) handleAcquire(w http.ResponseWriter, r *http.Request) {
	id, err := domain.NormalizeTaxpayerID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeInvalidInput, err.Error()))
		return
	}

	flusher, _ := w.(http.Flusher)
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	progress := func(ev acquire.ProgressEvent) {
		_ = enc.Encode(ev)
		if flusher != nil {
			flusher.Flush()
		}
	}

	outcomes := h.acquirer.AcquireAllStream(r.Context(), id, progress)

	for _, o := range outcomes {
		if !o.Success || o.Record == nil {
			continue
		}
		if err := h.sweeper.AnnounceIssuance(r.Context(), *o.Record); err != nil {
			h.log.WarnContext(r.Context(), "issuance mail deferred", "key", o.Record.Key().String(), "error", err)
		}
	}

	type outcomeBody struct {
		Type    domain.DocumentType    `json:"type"`
		Success bool                   `json:"success"`
		Reason  string                 `json:"reason,omitempty"`
		Record  *domain.IssuanceRecord `json:"record,omitempty"`
	}
	summary := struct {
		Done     bool          `json:"done"`
		Outcomes []outcomeBody `json:"outcomes"`
	}{Done: true}
	for _, o := range outcomes {
		summary.Outcomes = append(summary.Outcomes, outcomeBody{
			Type:    o.Type,
			Success: o.Success,
			Reason:  o.Reason,
			Record:  o.Record,
		})
	}
	_ = enc.Encode(summary)
	if flusher != nil {
		flusher.Flush()
	}
}

func (h *Handler) handleNotifyRun(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	outcome, err := h.sweeper.Run(r.Context(), force)
	if err != nil {
		h.log.ErrorContext(r.Context(), "notification sweep", "error", err)
		writeError(w, domainerrors.New(domainerrors.CodeInternal, "sweep failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ran":      outcome.Ran,
		"skipped":  outcome.Skipped,
		"alerted":  outcome.Alerted,
		"expiring": len(outcome.Expiring),
	})
}

type createUserRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.auth.CreateUser(r.Context(), GetClaims(r.Context()), req.Username, req.Password, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	user.PasswordHash = ""
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.DeleteUser(r.Context(), GetClaims(r.Context()), chi.URLParam(r, "username")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context(), GetClaims(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}
