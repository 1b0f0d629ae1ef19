package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"uniondash/backend/internal/cache"
	"uniondash/backend/internal/domain"
	"uniondash/backend/internal/service"
	"uniondash/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopResumeCache{}, nil, 2025, time.Minute)
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleResumes_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rfa/resumes", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleResumes_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "commercial", "commercial123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rfa/resumes", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Year    int                         `json:"year"`
		Resumes []domain.ClientRebateResume `json:"resumes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Year != 2025 {
		t.Fatalf("expected campaign year 2025, got %d", body.Year)
	}
	if len(body.Resumes) == 0 {
		t.Fatalf("expected seeded resumes in response")
	}
}

func TestHandleResumes_CSVExport(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "commercial", "commercial123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rfa/resumes?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/csv") {
		t.Fatalf("expected text/csv content type, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "client_code,") {
		t.Fatalf("expected CSV header row, got %q", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "M0042") {
		t.Fatalf("expected seeded client in CSV export")
	}
}

func TestHandleClientResume(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "commercial", "commercial123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rfa/resumes/M0042", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Resume domain.ClientRebateResume `json:"resume"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Resume.ClientCode != "M0042" {
		t.Fatalf("expected resume for M0042, got %q", body.Resume.ClientCode)
	}
	if len(body.Resume.PerSupplier) == 0 {
		t.Fatalf("expected per-supplier entries")
	}

	missing := httptest.NewRequest(http.MethodGet, "/api/v1/rfa/resumes/M9999", nil)
	missing.Header.Set("Authorization", "Bearer "+token)
	missingRec := httptest.NewRecorder()
	handler.ServeHTTP(missingRec, missing)
	if missingRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown client, got %d", missingRec.Code)
	}
}

func TestHandlePrograms_CommercialCannotCreate(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "commercial", "commercial123")
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.ProgramCreateRequest{
		Name:  "Contrat pirate",
		Tiers: []domain.Tier{{MinAmount: 0, RebatePercent: 10}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfa/programs", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandlePrograms_AdminCreate(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, api)
	csrf := fetchCSRFToken(t, api)

	max := 40000.0
	payload, _ := json.Marshal(domain.ProgramCreateRequest{
		Name: "Contrat 2026",
		Tiers: []domain.Tier{
			{MinAmount: 0, MaxAmount: &max, RebatePercent: 1, BonusPercent: 0.5},
			{MinAmount: 40000, RebatePercent: 2, BonusPercent: 1},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rfa/programs", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body struct {
		Program domain.TieredProgram `json:"program"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Program.ID == "" || body.Program.Name != "Contrat 2026" {
		t.Fatalf("unexpected created program: %+v", body.Program)
	}
}

func TestHandleRevenueImport(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAsAdmin(t, api)
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.RevenueImportRequest{Records: []domain.RevenueRecord{
		{ClientCode: "M0500", Supplier: "Alliance", Brand: "BREMBO", Year: 2025, Amount: 9000},
		{ClientCode: "", Supplier: "Alliance", Year: 2025, Amount: 100},
	}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/revenues/import", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body domain.RevenueImportResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Imported != 1 || body.Skipped != 1 {
		t.Fatalf("unexpected import counts: %+v", body)
	}
}

func TestHandleSuppliers(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "commercial", "commercial123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/suppliers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Suppliers []string `json:"suppliers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Suppliers) != 4 || body.Suppliers[0] != "Alliance" {
		t.Fatalf("unexpected supplier list: %v", body.Suppliers)
	}
}

func TestHandleAuditLogs_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "commercial", "commercial123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit-logs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for commercial role, got %d", rec.Code)
	}
}
