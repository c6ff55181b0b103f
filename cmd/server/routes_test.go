package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/internal/color"
	"github.com/tecu23/pairing-server/pkg/config"
	"github.com/tecu23/pairing-server/pkg/game"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *application {
	t.Helper()
	cfg := &config.Config{
		Port:           "0",
		ArchiveTTL:     time.Hour,
		MatchRetention: time.Minute,
		SweepInterval:  time.Minute,
		SendBuffer:     16,
	}
	if mutate != nil {
		mutate(cfg)
	}

	app, err := newApplication(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	return app
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, nil)

	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "disabled", body.Archive)
	assert.Equal(t, 0, body.Matches)
}

func TestAuthGuardsEverythingButHealth(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.APIKeys = []string{"k"} })
	h := app.routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/games", nil)
	req.Header.Set("X-Api-Key", "k")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetGameWithoutArchive(t *testing.T) {
	app := newTestApp(t, nil)
	h := app.routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games/not-an-id", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetArchivedGame(t *testing.T) {
	mr := miniredis.RunT(t)
	app := newTestApp(t, func(c *config.Config) { c.RedisURL = "redis://" + mr.Addr() + "/0" })
	t.Cleanup(func() { _ = app.Archive.Close() })

	id := uuid.New()
	_, err := app.Archive.Save(context.Background(), game.Summary{
		ID:         id.String(),
		White:      "w",
		Black:      "b",
		Result:     game.Result{Winner: color.Black, Reason: game.ReasonTimeout},
		ResultText: "Black wins on time",
	})
	require.NoError(t, err)

	h := app.routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Black wins on time", body["resultText"])
	assert.Contains(t, body["pgn"], "0-1")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Archive)
}

func TestWebSocketOriginCheck(t *testing.T) {
	app := newTestApp(t, func(c *config.Config) { c.FrontendOrigin = "http://allowed.test" })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go app.Hub.Run(ctx)

	srv := httptest.NewServer(app.routes())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.test"}})
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	ws, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://allowed.test"}})
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env struct {
		Event string `json:"event"`
	}
	require.NoError(t, ws.ReadJSON(&env))
	assert.Equal(t, "connected", env.Event)
}
