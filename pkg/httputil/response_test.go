package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"message": "success"}

	err := WriteJSON(w, http.StatusOK, data)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "success")
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	err := errors.New("directory unavailable")

	WriteError(w, http.StatusInternalServerError, err)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "directory unavailable")
}

func TestStatusHelpers(t *testing.T) {
	tests := []struct {
		name       string
		write      func(w http.ResponseWriter)
		wantStatus int
		wantBody   string
	}{
		{"not found", func(w http.ResponseWriter) { WriteNotFoundError(w, "organization not found") }, http.StatusNotFound, "organization not found"},
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "missing email") }, http.StatusBadRequest, "missing email"},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "invalid credentials") }, http.StatusUnauthorized, "invalid credentials"},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "not a member") }, http.StatusForbidden, "not a member"},
		{"conflict", func(w http.ResponseWriter) { WriteConflict(w, "already a member") }, http.StatusConflict, "already a member"},
		{"too many requests", func(w http.ResponseWriter) { WriteTooManyRequests(w, "locked") }, http.StatusTooManyRequests, "locked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
