package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	appErrors "github.com/charlesng35/barangay/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newContext(rec *httptest.ResponseRecorder) *gin.Context {
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/residents", nil)
	return ctx
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := newContext(rec)

	Success(ctx, http.StatusCreated, gin.H{"message": "ok"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success flag to be true")
	}
	if resp.Error != nil {
		t.Fatal("expected no error information")
	}
}

func TestListIncludesTotal(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := newContext(rec)

	List(ctx, []string{"a", "b", "c"}, 3)

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Meta == nil || resp.Meta.Total != 3 {
		t.Fatal("expected total to be serialised")
	}
}

func TestErrorWithAppError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := newContext(rec)

	Error(ctx, appErrors.NewForbidden("Secretaries can only invite staff"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d got %d", http.StatusForbidden, rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Success {
		t.Fatal("expected success to be false")
	}
	if resp.Error == nil || resp.Error.Message != "Secretaries can only invite staff" {
		t.Fatal("expected role-specific message in response")
	}
}

func TestErrorHidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := newContext(rec)

	Error(ctx, appErrors.Backend(errors.New("dial tcp 10.0.0.5:5432: connection refused")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error.Code != appErrors.ErrBackendUnavailable.Code {
		t.Fatalf("unexpected code %s", resp.Error.Code)
	}
	if resp.Error.Message != appErrors.ErrBackendUnavailable.Message {
		t.Fatalf("internal cause leaked: %s", resp.Error.Message)
	}
}

func TestErrorWithGenericError(t *testing.T) {
	rec := httptest.NewRecorder()
	ctx := newContext(rec)

	Error(ctx, errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d got %d", http.StatusInternalServerError, rec.Code)
	}
}
