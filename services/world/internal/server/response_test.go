package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mozhi/services/world/internal/app"
)

func TestWriteErrorMessages(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"internal", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, codeInternal, "Internal server error"},
		{"http", &app.Error{Status: http.StatusNotFound, Message: "Book not found"}, http.StatusNotFound, codeHTTPException, "Book not found"},
		{"http without message", &app.Error{Status: http.StatusConflict}, http.StatusConflict, codeHTTPException, "HTTP error"},
		{"validation", &app.ValidationError{}, http.StatusUnprocessableEntity, codeValidation, "Validation error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/books/1", nil), tc.err)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			var env envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.ErrorCode != tc.code || env.Message != tc.message || env.Success {
				t.Fatalf("unexpected envelope %+v", env)
			}
			if strings.Contains(rec.Body.String(), "connection refused") {
				t.Fatalf("internal detail leaked: %s", rec.Body.String())
			}
		})
	}
}
