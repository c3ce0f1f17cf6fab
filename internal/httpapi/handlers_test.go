package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"phoneshop/backend/internal/cache"
	"phoneshop/backend/internal/domain"
	"phoneshop/backend/internal/service"
	"phoneshop/backend/internal/store/memory"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_STAFF_PASSWORD", "staff123")

	repo := memory.NewSeeded()
	svc := service.New(repo, cache.NoopProductCache{}, "Test Shop", 5*time.Second)
	auth := NewAuthManager("test-secret-key-test-secret-key!", time.Hour, repo)
	return New(svc, auth, "*").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, token, csrf string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, handler http.Handler, username, password string) domain.LoginResponse {
	t.Helper()
	rr := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login for %s failed with status %d: %s", username, rr.Code, rr.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp
}

func fetchCSRFToken(t *testing.T, handler http.Handler) string {
	t.Helper()
	rr := doJSON(t, handler, http.MethodGet, "/api/v1/auth/csrf-token", "", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("csrf token fetch failed with status %d", rr.Code)
	}
	var resp struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode csrf response: %v", err)
	}
	if resp.CSRFToken == "" {
		t.Fatalf("expected non-empty csrf token")
	}
	return resp.CSRFToken
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t)

	rr := doJSON(t, handler, http.MethodGet, "/healthz", "", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected health body: %s", rr.Body.String())
	}
}

func TestHandleLoginSuccess(t *testing.T) {
	handler := newTestAPI(t)

	resp := login(t, handler, "admin", "admin123")
	if resp.AccessToken == "" || resp.Role != "admin" {
		t.Fatalf("unexpected login response %+v", resp)
	}
	if _, err := time.Parse(time.RFC3339, resp.ExpiresAt); err != nil {
		t.Fatalf("expected RFC3339 expiry, got %q: %v", resp.ExpiresAt, err)
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	handler := newTestAPI(t)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", "", domain.LoginRequest{
		Username: "admin",
		Password: "wrong-password",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestHandleLoginRateLimit(t *testing.T) {
	handler := newTestAPI(t)

	var last int
	for i := 0; i < 6; i++ {
		body, _ := json.Marshal(domain.LoginRequest{Username: "admin", Password: "wrong-password"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.9:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated attempts, got %d", last)
	}
}

func TestProductsRequireAuth(t *testing.T) {
	handler := newTestAPI(t)

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/products", "", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
}

func TestProductsWithValidToken(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "staff", "staff123").AccessToken

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/products", token, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "iPhone 13") {
		t.Fatalf("expected seeded catalog in response: %s", rr.Body.String())
	}
}

func TestBarcodeLookupEndpoint(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "staff", "staff123").AccessToken

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/products/barcode/8801000000011", token, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp domain.BarcodeLookupResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode lookup response: %v", err)
	}
	if !resp.Success || resp.ProductID != "prod-iphone13-128" {
		t.Fatalf("unexpected lookup response %+v", resp)
	}
}

func TestStaffForbiddenOnAdminRoutes(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "staff", "staff123").AccessToken

	for _, path := range []string{"/api/v1/reports/daily", "/api/v1/ledger", "/api/v1/audit-logs"} {
		rr := doJSON(t, handler, http.MethodGet, path, token, "", nil)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for staff on %s, got %d", path, rr.Code)
		}
	}
}

func TestMutatingRequestWithoutCSRFRejected(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "staff", "staff123").AccessToken

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, "", domain.SaleStartRequest{
		CustomerID: "cust-walkin",
	})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSaleFlowOverHTTP(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "staff", "staff123").AccessToken
	csrf := fetchCSRFToken(t, handler)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleStartRequest{
		CustomerID: "cust-walkin",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("start sale failed with %d: %s", rr.Code, rr.Body.String())
	}
	var started domain.SaleStartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}

	rr = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/sales/%s/complete", started.SaleID), token, csrf, domain.SaleCompleteRequest{
		Lines: []domain.SaleLine{
			{ProductID: "prod-glass-9h", Qty: 1},
		},
		Payment: domain.PaymentRequest{Method: "cash", AmountCents: 25000},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("complete sale failed with %d: %s", rr.Code, rr.Body.String())
	}
	var completed domain.SaleCompleteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &completed); err != nil {
		t.Fatalf("decode complete response: %v", err)
	}
	if completed.Sale.Status != domain.SaleStatusCompleted {
		t.Fatalf("expected completed sale, got %+v", completed.Sale)
	}

	rr = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/v1/sales/%s/receipt", started.SaleID), token, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("receipt failed with %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), started.InvoiceNumber) {
		t.Fatalf("expected invoice number on receipt: %s", rr.Body.String())
	}
}

func TestCompleteSaleRejectsUnknownPaymentMethod(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "staff", "staff123").AccessToken
	csrf := fetchCSRFToken(t, handler)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, csrf, domain.SaleStartRequest{
		CustomerID: "cust-walkin",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("start sale failed with %d", rr.Code)
	}
	var started domain.SaleStartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}

	rr = doJSON(t, handler, http.MethodPost, fmt.Sprintf("/api/v1/sales/%s/complete", started.SaleID), token, csrf, domain.SaleCompleteRequest{
		Lines: []domain.SaleLine{
			{ProductID: "prod-glass-9h", Qty: 1},
		},
		Payment: domain.PaymentRequest{Method: "crypto", AmountCents: 25000},
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown payment method, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCreateStaffThenLogin(t *testing.T) {
	handler := newTestAPI(t)
	adminToken := login(t, handler, "admin", "admin123").AccessToken
	csrf := fetchCSRFToken(t, handler)

	rr := doJSON(t, handler, http.MethodPost, "/api/v1/users/staff", adminToken, csrf, domain.StaffCreateRequest{
		Username: "kasir2",
		Password: "secret66",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create staff failed with %d: %s", rr.Code, rr.Body.String())
	}

	staffToken := login(t, handler, "kasir2", "secret66")
	if staffToken.Role != "staff" {
		t.Fatalf("expected staff role for new account, got %q", staffToken.Role)
	}

	rr = doJSON(t, handler, http.MethodGet, "/api/v1/ledger", staffToken.AccessToken, "", nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for new staff on admin route, got %d", rr.Code)
	}
}

func TestUnknownSaleReturnsNotFound(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "staff", "staff123").AccessToken

	rr := doJSON(t, handler, http.MethodGet, "/api/v1/sales/sale-does-not-exist", token, "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown sale, got %d", rr.Code)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "staff", "staff123").AccessToken
	csrf := fetchCSRFToken(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(`{"customer_id":"cust-walkin","surprise":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rr.Code)
	}
}
