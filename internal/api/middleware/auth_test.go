package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fleetcal/backend/internal/storage"
	"github.com/fleetcal/backend/internal/storage/models"
)

func setupAccounts(t *testing.T) (*storage.AccountRepository, *models.Account) {
	t.Helper()

	db, err := storage.NewDB(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	repo := storage.NewAccountRepository(db)
	acct := &models.Account{BusinessName: "Apex Exotics", Email: "owner@apexexotics.test"}
	if err := repo.Create(context.Background(), acct); err != nil {
		t.Fatalf("creating account: %v", err)
	}

	return repo, acct
}

func TestRequireAuthValidKey(t *testing.T) {
	repo, acct := setupAccounts(t)

	var gotAccountID string
	handler := RequireAuth(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccountID, _ = AccountID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/api/calendar/feeds", nil)
	req.Header.Set("Authorization", "Bearer "+acct.APIKey)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAccountID != acct.ID {
		t.Errorf("account ID in context = %q, want %q", gotAccountID, acct.ID)
	}
}

func TestRequireAuthRejectsMissingAndInvalidKeys(t *testing.T) {
	repo, _ := setupAccounts(t)

	handler := RequireAuth(repo)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run without valid auth")
	}))

	cases := map[string]string{
		"no header":    "",
		"wrong scheme": "Basic abc123",
		"unknown key":  "Bearer not-a-real-key",
	}

	for name, header := range cases {
		req := httptest.NewRequest("GET", "/api/calendar/feeds", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want %d", name, rec.Code, http.StatusUnauthorized)
		}
	}
}
