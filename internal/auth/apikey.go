// Package auth gates HTTP and websocket endpoints behind API keys.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
)

// HeaderName carries the key on plain HTTP requests. Browsers cannot set
// headers on websocket upgrades, so QueryParam is accepted as well.
const (
	HeaderName = "X-Api-Key"
	QueryParam = "api_key"
)

// APIKeyAuth provides a simple API key authentication
type APIKeyAuth struct {
	mu        sync.RWMutex
	validKeys map[string]struct{}
}

// NewAPIKeyAuth creates a new API key authentication middleware
func NewAPIKeyAuth(keys []string) *APIKeyAuth {
	a := &APIKeyAuth{validKeys: make(map[string]struct{})}
	for _, key := range keys {
		a.AddKey(key)
	}

	return a
}

// Enabled reports whether any key is configured. Without keys every request
// is allowed.
func (a *APIKeyAuth) Enabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.validKeys) > 0
}

// AddKey adds a new valid API key
func (a *APIKeyAuth) AddKey(key string) {
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.validKeys[key] = struct{}{}
}

// RemoveKey removes a valid API key
func (a *APIKeyAuth) RemoveKey(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.validKeys, key)
}

// IsValidKey checks if a key is valid
func (a *APIKeyAuth) IsValidKey(key string) bool {
	if key == "" {
		return false
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	valid := false
	for k := range a.validKeys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			valid = true
		}
	}

	return valid
}

// Authorized checks the key carried by r
func (a *APIKeyAuth) Authorized(r *http.Request) bool {
	if !a.Enabled() {
		return true
	}

	key := r.Header.Get(HeaderName)
	if key == "" {
		key = r.URL.Query().Get(QueryParam)
	}

	return a.IsValidKey(key)
}
