package httptransport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certhub/internal/acquire"
	"certhub/internal/auth"
	"certhub/internal/domain"
	"certhub/internal/notify"
	"certhub/internal/store/remote"
)

type fakeReconciler struct {
	records []domain.IssuanceRecord
	deleted []domain.RecordKey
}

func (f *fakeReconciler) Run(context.Context) ([]domain.IssuanceRecord, error) {
	return f.records, nil
}

func (f *fakeReconciler) DeleteEverywhere(_ context.Context, key domain.RecordKey) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeAcquirer struct{}

func (fakeAcquirer) AcquireAllStream(_ context.Context, id domain.TaxpayerID, progress func(acquire.ProgressEvent)) []acquire.Outcome {
	progress(acquire.ProgressEvent{Type: domain.DocFederal, Stage: "start", Message: "Acquiring..."})
	progress(acquire.ProgressEvent{Type: domain.DocFederal, Stage: "done", Message: "acquired"})
	rec := &domain.IssuanceRecord{TaxpayerID: id, DocumentType: domain.DocFederal}
	return []acquire.Outcome{{Type: domain.DocFederal, Success: true, Record: rec}}
}

type fakeSweeper struct {
	force     bool
	announced []domain.RecordKey
}

func (f *fakeSweeper) Run(_ context.Context, force bool) (notify.Outcome, error) {
	f.force = force
	return notify.Outcome{Ran: true, Alerted: 2}, nil
}

func (f *fakeSweeper) AnnounceIssuance(_ context.Context, rec domain.IssuanceRecord) error {
	f.announced = append(f.announced, rec.Key())
	return nil
}

type fixture struct {
	server     *httptest.Server
	reconciler *fakeReconciler
	sweeper    *fakeSweeper
	adminToken string
	opToken    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := remote.NewMemoryStore(nil)
	authSvc, err := auth.NewService(store, "test-key", time.Hour)
	require.NoError(t, err)
	require.NoError(t, authSvc.SeedAdmin(ctx, "admin", "correct-horse"))

	adminToken, _, err := authSvc.Login(ctx, "admin", "correct-horse")
	require.NoError(t, err)
	adminClaims, err := authSvc.VerifyToken(adminToken)
	require.NoError(t, err)

	_, err = authSvc.CreateUser(ctx, adminClaims, "operator", "long-enough", domain.RoleOperator)
	require.NoError(t, err)
	opToken, _, err := authSvc.Login(ctx, "operator", "long-enough")
	require.NoError(t, err)

	reconciler := &fakeReconciler{}
	sweeper := &fakeSweeper{}
	handler := NewHandler(authSvc, reconciler, fakeAcquirer{}, sweeper, nil)

	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return &fixture{
		server:     srv,
		reconciler: reconciler,
		sweeper:    sweeper,
		adminToken: adminToken,
		opToken:    opToken,
	}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthNeedsNoAuth(t *testing.T) {
	f := newFixture(t)
	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	t.Run("valid credentials", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/login", "", loginRequest{Username: "admin", Password: "correct-horse"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body loginResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.NotEmpty(t, body.Token)
		assert.Equal(t, domain.RoleAdmin, body.Role)
	})
	t.Run("wrong password", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/login", "", loginRequest{Username: "admin", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/api/records", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/api/records", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListRecords(t *testing.T) {
	f := newFixture(t)
	f.reconciler.records = []domain.IssuanceRecord{
		{TaxpayerID: "01419973000122", DocumentType: domain.DocFederal},
	}

	resp := f.do(t, http.MethodGet, "/api/records", f.opToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Records []domain.IssuanceRecord `json:"records"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Records, 1)
}

func TestDeleteRecord(t *testing.T) {
	f := newFixture(t)

	t.Run("valid", func(t *testing.T) {
		resp := f.do(t, http.MethodDelete, "/api/records/01419973000122/federal", f.opToken, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		require.Len(t, f.reconciler.deleted, 1)
		assert.Equal(t, "01419973000122_federal", f.reconciler.deleted[0].String())
	})
	t.Run("bad identifier", func(t *testing.T) {
		resp := f.do(t, http.MethodDelete, "/api/records/123/federal", f.opToken, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	t.Run("bad type", func(t *testing.T) {
		resp := f.do(t, http.MethodDelete, "/api/records/01419973000122/bogus", f.opToken, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAcquireStreamsProgress(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/acquire/01419973000122", f.opToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			lines = append(lines, scanner.Text())
		}
	}
	require.Len(t, lines, 3, "two progress events plus the summary")

	var summary struct {
		Done     bool `json:"done"`
		Outcomes []struct {
			Success bool `json:"success"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &summary))
	assert.True(t, summary.Done)
	require.Len(t, summary.Outcomes, 1)
	assert.True(t, summary.Outcomes[0].Success)

	require.Len(t, f.sweeper.announced, 1, "each acquired certificate gets an issuance mail")
	assert.Equal(t, "01419973000122_federal", f.sweeper.announced[0].String())
}

func TestNotifyRun(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/api/notify/run?force=true", f.opToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, f.sweeper.force)
}

func TestUserManagementIsAdminOnly(t *testing.T) {
	f := newFixture(t)

	t.Run("operator forbidden", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/api/users", f.opToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
	t.Run("admin creates and deletes", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/users", f.adminToken,
			createUserRequest{Username: "viewer", Password: "long-enough", Role: domain.RoleOperator})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = f.do(t, http.MethodDelete, "/api/users/viewer", f.adminToken, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
	t.Run("duplicate conflicts", func(t *testing.T) {
		resp := f.do(t, http.MethodPost, "/api/users", f.adminToken,
			createUserRequest{Username: "operator", Password: "long-enough", Role: domain.RoleOperator})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}
