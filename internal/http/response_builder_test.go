package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gastos/internal/core"
)

func TestResponseBuilder_JSON(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().Status(http.StatusCreated).Header("X-Test", "1").JSON(map[string]int{"id": 7}).Write(rr)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json; charset=utf-8" || rr.Header().Get("X-Test") != "1" {
		t.Errorf("headers = %v", rr.Header())
	}
	if rr.Body.String() != "{\"id\":7}\n" {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestResponseBuilder_NoBody(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().Status(http.StatusNoContent).Write(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Fatalf("status = %d body = %q", rr.Code, rr.Body.String())
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("decode: %w", core.ErrMalformedIntent), http.StatusUnprocessableEntity, "malformed_intent"},
		{fmt.Errorf("record: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity, "invalid_amount"},
		{fmt.Errorf("%w: transaction 3", core.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: name taken", core.ErrConflict), http.StatusConflict, "conflict"},
		{fmt.Errorf("%w: disk I/O", core.ErrStorage), http.StatusServiceUnavailable, "storage_unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			rr := httptest.NewRecorder()
			FromError(tt.err).Write(rr)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var body errorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.code)
			}
		})
	}
}

func TestFromError_HidesStorageDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	FromError(fmt.Errorf("%w: open /secret/path.db", core.ErrStorage)).Write(rr)
	var body errorBody
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Error.Message != "ledger storage is unavailable" {
		t.Fatalf("message leaked: %q", body.Error.Message)
	}
}
