package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	var dest struct {
		Email string `json:"email"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"alice@acme.test"}`))
	require.NoError(t, ParseJSON(r, &dest))
	assert.Equal(t, "alice@acme.test", dest.Email)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	assert.Error(t, ParseJSON(r, &dest))
}

func TestParsePathInt64(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/orgs/42", nil)
	r = mux.SetURLVars(r, map[string]string{"org_id": "42"})

	val, err := ParsePathInt64(r, "org_id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), val)

	r = mux.SetURLVars(r, map[string]string{"org_id": "acme"})
	_, err = ParsePathInt64(r, "org_id")
	assert.Error(t, err)

	_, err = ParsePathInt64(r, "user_id")
	assert.Error(t, err)
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/events?limit=50", nil)

	val, err := ParseQueryInt(r, "limit", 100)
	require.NoError(t, err)
	assert.Equal(t, 50, val)

	val, err = ParseQueryInt(r, "offset", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, val)

	r = httptest.NewRequest(http.MethodGet, "/events?limit=lots", nil)
	_, err = ParseQueryInt(r, "limit", 100)
	assert.Error(t, err)
}

func TestRequireNonEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(w, "alice@acme.test", "email"))

	w = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(w, "", "email"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "email")
}
