package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"detailinfra/internal/classification"
	"detailinfra/internal/csvio"
	"detailinfra/internal/queue"
	"detailinfra/internal/remote"
)

// helper to parse standardized error
type stdError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d; body=%s", status, rr.Code, rr.Body.String())
	}
	var e stdError
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if e.Error.Code != code {
		t.Fatalf("unexpected error code: %s", e.Error.Code)
	}
}

func TestClassify_InvalidJSON_ErrorJSON(t *testing.T) {
	h := New(nil, nil)
	rr := do(t, h, http.MethodPost, "/classify", "{")
	expectError(t, rr, http.StatusBadRequest, "invalid_json")
}

func TestClassify_MissingModel_ErrorJSON(t *testing.T) {
	h := New(nil, nil)
	rr := do(t, h, http.MethodPost, "/classify", `{"make":"Honda"}`)
	expectError(t, rr, http.StatusBadRequest, "invalid_request")
}

func TestServiceSteps_UnknownService_ErrorJSON(t *testing.T) {
	h := New(nil, nil)
	rr := do(t, h, http.MethodGet, "/catalog/services/teleport/steps", "")
	expectError(t, rr, http.StatusNotFound, "resource_not_found")
}

func TestDestinationFee_BadMiles_ErrorJSON(t *testing.T) {
	h := New(nil, nil)
	for _, q := range []string{"", "abc", "-3"} {
		rr := do(t, h, http.MethodGet, "/fees/destination?miles="+q, "")
		expectError(t, rr, http.StatusBadRequest, "invalid_request")
	}
}

func TestEstimate_UnknownTier_ErrorJSON(t *testing.T) {
	h := New(nil, nil)
	rr := do(t, h, http.MethodPost, "/estimates", `{"service_id":"basic-exterior","tier":"spaceship"}`)
	expectError(t, rr, http.StatusBadRequest, "invalid_request")

	rr = do(t, h, http.MethodPost, "/estimates", `{"tier":"truck"}`)
	expectError(t, rr, http.StatusBadRequest, "invalid_request")
}

func TestImport_NonAdmin_ErrorJSON(t *testing.T) {
	h := New(nil, nil)
	rr := do(t, h, http.MethodPost, "/classifications/import", "make,model\n")
	expectError(t, rr, http.StatusForbidden, "admin_only")
}

func TestImport_BadHeader_ErrorJSON(t *testing.T) {
	h := New(nil, nil)
	rr := do(t, h, http.MethodPost, "/classifications/import", "make,model\nHonda,Civic\n", "X-User-Role", "admin")
	expectError(t, rr, http.StatusBadRequest, "invalid_header")
}

func TestImport_BodyTooLarge_ErrorJSON(t *testing.T) {
	old := maxImportBytes
	maxImportBytes = 256
	defer func() { maxImportBytes = old }()

	h := New(nil, nil)
	body := csvio.HeaderLine + "\n" + strings.Repeat("Honda,Civic,2016,2021,Compact/Sedan,false,\n", 20)
	rr := do(t, h, http.MethodPost, "/classifications/import", body, "X-User-Role", "admin")
	expectError(t, rr, http.StatusRequestEntityTooLarge, "payload_too_large")
}

func TestSetLuxury_RemoteDown_ErrorJSON(t *testing.T) {
	rs := remote.NewMemory()
	rs.SetOffline(true)
	svc := classification.New(classification.Deps{Remote: rs, Queue: queue.New(queue.NewMemoryStore(), rs)})
	h := New(svc, nil)
	rr := do(t, h, http.MethodPatch, "/classifications/abc/luxury", `{"is_luxury":false}`, "X-User-Role", "admin")
	expectError(t, rr, http.StatusServiceUnavailable, "remote_unavailable")
}

func TestUnknownRoute(t *testing.T) {
	h := New(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/shipments", strings.NewReader(""))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
