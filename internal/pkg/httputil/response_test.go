package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]int{"n": 1})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, w.Body.String())
}

func TestText(t *testing.T) {
	w := httptest.NewRecorder()
	Text(w, http.StatusOK, "hello\n")
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "hello\n", w.Body.String())
}

func TestInternalError_HidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	InternalError(w, errors.New("loading ledger: dial tcp 10.0.0.5:6379: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Storage temporarily unavailable"}`, w.Body.String())
}

func TestPublicMessage(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{"context deadline exceeded", "Request timed out"},
		{"decoding tier2: invalid character", "Stored state could not be read"},
		{"AccessDenied: bucket policy", "Access denied"},
		{"something odd", "An internal error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicMessage(errors.New(tt.err)))
		})
	}
	assert.Equal(t, "An internal error occurred", PublicMessage(nil))
}
