package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledWithoutKeys(t *testing.T) {
	a := NewAPIKeyAuth([]string{"", "  "})

	assert.False(t, a.Enabled())
	assert.True(t, a.Authorized(httptest.NewRequest("GET", "/ws", nil)))
	assert.False(t, a.IsValidKey(""))
}

func TestKeyFromHeaderOrQuery(t *testing.T) {
	a := NewAPIKeyAuth([]string{"secret"})

	r := httptest.NewRequest("GET", "/games/x", nil)
	assert.False(t, a.Authorized(r))

	r.Header.Set(HeaderName, "secret")
	assert.True(t, a.Authorized(r))

	r = httptest.NewRequest("GET", "/ws?api_key=secret", nil)
	assert.True(t, a.Authorized(r))

	r = httptest.NewRequest("GET", "/ws?api_key=wrong", nil)
	assert.False(t, a.Authorized(r))
}

func TestAddRemoveKey(t *testing.T) {
	a := NewAPIKeyAuth(nil)
	a.AddKey("k1")
	assert.True(t, a.IsValidKey("k1"))

	a.RemoveKey("k1")
	assert.False(t, a.IsValidKey("k1"))
	assert.False(t, a.Enabled())
}
