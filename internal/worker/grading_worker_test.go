package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Arpan7125/procto-3.0/internal/config"
)

type fakeScoreStore struct {
	scores map[uuid.UUID]float64
}

func (f *fakeScoreStore) SetFinalScore(_ context.Context, id uuid.UUID, score float64) error {
	f.scores[id] = score
	return nil
}

type fixedGrader struct {
	score *float64
}

func (g fixedGrader) Grade(context.Context, uuid.UUID) (*float64, error) {
	return g.score, nil
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestGradingQueueRoundTrip(t *testing.T) {
	rdb := newTestRedis(t)
	queue := NewRedisGradingQueue(rdb)
	sessionID := uuid.New()

	require.NoError(t, queue.EnqueueGrading(context.Background(), sessionID))

	length, err := rdb.LLen(context.Background(), config.WorkerKey.GradingQueue).Result()
	require.NoError(t, err)
	require.EqualValues(t, 1, length)
}

func TestGradingWorkerPersistsScore(t *testing.T) {
	rdb := newTestRedis(t)
	store := &fakeScoreStore{scores: make(map[uuid.UUID]float64)}
	score := 87.5
	w := NewGradingWorker(rdb, store, fixedGrader{score: &score}, zerolog.Nop())

	sessionID := uuid.New()
	require.NoError(t, NewRedisGradingQueue(rdb).EnqueueGrading(context.Background(), sessionID))

	// Cancelled context sends Start straight to the drain path, which
	// processes everything queued and returns.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain in time")
	}

	require.Equal(t, score, store.scores[sessionID])
	length, err := rdb.LLen(context.Background(), config.WorkerKey.GradingQueue).Result()
	require.NoError(t, err)
	require.EqualValues(t, 0, length)
}

func TestGradingWorkerSkipsManualReview(t *testing.T) {
	rdb := newTestRedis(t)
	store := &fakeScoreStore{scores: make(map[uuid.UUID]float64)}
	w := NewGradingWorker(rdb, store, NoopGrader{}, zerolog.Nop())

	require.NoError(t, NewRedisGradingQueue(rdb).EnqueueGrading(context.Background(), uuid.New()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	// The noop grader reports no score; nothing is persisted or requeued.
	require.Empty(t, store.scores)
	length, err := rdb.LLen(context.Background(), config.WorkerKey.GradingQueue).Result()
	require.NoError(t, err)
	require.EqualValues(t, 0, length)
}

func TestGradingWorkerDropsGarbage(t *testing.T) {
	rdb := newTestRedis(t)
	store := &fakeScoreStore{scores: make(map[uuid.UUID]float64)}
	w := NewGradingWorker(rdb, store, NoopGrader{}, zerolog.Nop())

	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.GradingQueue, "not json").Err())
	require.NoError(t, rdb.RPush(context.Background(), config.WorkerKey.GradingQueue, `{"session_id":"not-a-uuid"}`).Err())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)

	length, err := rdb.LLen(context.Background(), config.WorkerKey.GradingQueue).Result()
	require.NoError(t, err)
	require.EqualValues(t, 0, length)
}
