package archive

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/internal/color"
	"github.com/tecu23/pairing-server/pkg/events"
	"github.com/tecu23/pairing-server/pkg/game"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, ttl, zap.NewNop()), mr
}

func summary(id string) game.Summary {
	return game.Summary{
		ID:          id,
		White:       "bob",
		Black:       "alice",
		TimeControl: "300+0",
		Result:      game.Result{Winner: color.White, Reason: game.ReasonResignation},
		ResultText:  "White wins by resignation",
		MovesSAN:    []string{"e4", "e5", "Nf3"},
		FinalFEN:    "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 1 2",
		StartedAt:   time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC),
		EndedAt:     time.Date(2024, 3, 9, 10, 5, 0, 0, time.UTC),
	}
}

func TestSaveAndGet(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	_, err := store.Save(ctx, summary("m1"))
	require.NoError(t, err)

	rec, err := store.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "White wins by resignation", rec.ResultText)
	assert.Equal(t, []string{"e4", "e5", "Nf3"}, rec.MovesSAN)
	assert.Contains(t, rec.PGN, "1. e4 e5 2. Nf3 1-0")

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordsExpire(t *testing.T) {
	store, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	_, err := store.Save(ctx, summary("m1"))
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	_, err = store.Get(ctx, "m1")
	assert.ErrorIs(t, err, ErrNotFound)

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRecentNewestFirst(t *testing.T) {
	store, _ := newTestStore(t, 0)
	ctx := context.Background()

	for _, id := range []string{"m1", "m2", "m3"} {
		_, err := store.Save(ctx, summary(id))
		require.NoError(t, err)
	}

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "m3", recent[0].ID)
	assert.Equal(t, "m2", recent[1].ID)
}

func TestSubscriberArchivesEndedMatches(t *testing.T) {
	store, _ := newTestStore(t, 0)
	pub := events.NewPublisher()
	store.Subscribe(pub)

	pub.Publish(events.Event{Type: events.EventMatchEnded, MatchID: "m9", Payload: summary("m9")})
	pub.Publish(events.Event{Type: events.EventMatchEnded, MatchID: "bad", Payload: "nope"})
	pub.Wait()

	rec, err := store.Get(context.Background(), "m9")
	require.NoError(t, err)
	assert.Equal(t, game.Identity("bob"), rec.White)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := Open(context.Background(), "redis://"+mr.Addr()+"/0", time.Minute, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	assert.NoError(t, store.Ping(context.Background()))

	_, err = Open(context.Background(), "", time.Minute, zap.NewNop())
	assert.Error(t, err)

	_, err = Open(context.Background(), "ftp://nowhere", time.Minute, zap.NewNop())
	assert.Error(t, err)
}
