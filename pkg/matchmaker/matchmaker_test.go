package matchmaker

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/pkg/chess"
	"github.com/tecu23/pairing-server/pkg/game"
)

func standardFactory(white, black game.Identity, tc chess.TimeControl) (*game.Match, error) {
	return game.NewMatch(game.CreateMatchParams{
		White:       white,
		Black:       black,
		TimeControl: tc,
		Engine:      chess.NewStandard(),
	})
}

func newTestMatchmaker(opts ...Option) *Matchmaker {
	return New(standardFactory, zap.NewNop(), opts...)
}

func TestEnqueueMissQueues(t *testing.T) {
	mm := newTestMatchmaker()

	p, err := mm.Enqueue("a", 10, 0)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 1, mm.Len())
}

func TestFirstCompatibleEntryWins(t *testing.T) {
	mm := newTestMatchmaker(WithCoinFlip(func() bool { return true }))
	mm.queue = []QueueEntry{
		{Identity: "A", TimeControl: 10},
		{Identity: "B", TimeControl: 10},
		{Identity: "C", TimeControl: 5},
	}

	p, err := mm.Enqueue("D", 10, 0)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, game.Identity("D"), p.White)
	assert.Equal(t, game.Identity("A"), p.Black)
	assert.Equal(t, 10*60*1000, int(p.Match.Snapshot().WhiteTime))

	left := mm.Entries()
	require.Len(t, left, 2)
	assert.Equal(t, game.Identity("B"), left[0].Identity)
	assert.Equal(t, game.Identity("C"), left[1].Identity)
}

func TestSecondRequestPairsWithFirst(t *testing.T) {
	mm := newTestMatchmaker()

	_, err := mm.Enqueue("A", 10, 0)
	require.NoError(t, err)
	_, err = mm.Enqueue("C", 5, 0)
	require.NoError(t, err)

	p, err := mm.Enqueue("B", 10, 0)
	require.NoError(t, err)
	require.NotNil(t, p)

	players := []game.Identity{p.White, p.Black}
	assert.ElementsMatch(t, []game.Identity{"A", "B"}, players)
	assert.True(t, p.Match.HasPlayer("A"))
	assert.True(t, p.Match.HasPlayer("B"))
	assert.Equal(t, 1, mm.Len())
}

func TestDifferentCriteriaNeverPair(t *testing.T) {
	mm := newTestMatchmaker()

	_, err := mm.Enqueue("A", 10, 0)
	require.NoError(t, err)

	p, err := mm.Enqueue("B", 10, 5)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = mm.Enqueue("C", 3, 0)
	require.NoError(t, err)
	assert.Nil(t, p)

	assert.Equal(t, 3, mm.Len())
}

func TestCoinFlipAssignsColors(t *testing.T) {
	mm := newTestMatchmaker(WithCoinFlip(func() bool { return false }))

	_, err := mm.Enqueue("A", 1, 0)
	require.NoError(t, err)
	p, err := mm.Enqueue("B", 1, 0)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, game.Identity("A"), p.White)
	assert.Equal(t, game.Identity("B"), p.Black)
}

func TestRandomFlipIsUnbiasedEnough(t *testing.T) {
	whites := 0
	for i := 0; i < 2000; i++ {
		if randomFlip() {
			whites++
		}
	}
	assert.InDelta(t, 1000, whites, 200)
}

func TestDuplicateRequestsAreKeptAndNeverSelfPair(t *testing.T) {
	mm := newTestMatchmaker()

	_, err := mm.Enqueue("A", 10, 0)
	require.NoError(t, err)
	p, err := mm.Enqueue("A", 10, 0)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, 2, mm.Len())

	assert.Equal(t, 2, mm.CancelAll("A"))
	assert.Equal(t, 0, mm.Len())
}

func TestCancel(t *testing.T) {
	mm := newTestMatchmaker()

	_, err := mm.Enqueue("A", 10, 0)
	require.NoError(t, err)
	_, err = mm.Enqueue("B", 5, 0)
	require.NoError(t, err)

	require.NoError(t, mm.Cancel("A"))
	assert.ErrorIs(t, mm.Cancel("A"), ErrQueueEntryAbsent)
	assert.Equal(t, 1, mm.Len())

	p, err := mm.Enqueue("C", 10, 0)
	require.NoError(t, err)
	assert.Nil(t, p, "cancelled entry must not be paired")
}

func TestFactoryErrorKeepsQueue(t *testing.T) {
	mm := New(func(_, _ game.Identity, _ chess.TimeControl) (*game.Match, error) {
		return nil, errors.New("boom")
	}, zap.NewNop())

	_, err := mm.Enqueue("A", 10, 0)
	require.NoError(t, err)

	_, err = mm.Enqueue("B", 10, 0)
	assert.Error(t, err)
	assert.Equal(t, 1, mm.Len())
}

func TestConcurrentRequestsPairEachEntryOnce(t *testing.T) {
	mm := newTestMatchmaker()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		pairings []*Pairing
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := mm.Enqueue(game.Identity(fmt.Sprintf("player-%d", i)), 10, 0)
			assert.NoError(t, err)
			if p != nil {
				mu.Lock()
				pairings = append(pairings, p)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, pairings, 50)
	assert.Equal(t, 0, mm.Len())

	seen := map[game.Identity]bool{}
	for _, p := range pairings {
		for _, id := range []game.Identity{p.White, p.Black} {
			assert.False(t, seen[id], "identity %s paired twice", id)
			seen[id] = true
		}
	}
}
