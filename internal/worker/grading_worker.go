package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Arpan7125/procto-3.0/internal/config"
)

const gradingPollTimeout = 1 * time.Second

// Grader scores a submitted session. Objective auto-grading plugs in here;
// until then NoopGrader leaves sessions ungraded for manual review.
type Grader interface {
	Grade(ctx context.Context, sessionID uuid.UUID) (*float64, error)
}

// NoopGrader performs no grading and reports no score.
type NoopGrader struct{}

// Grade returns nil: the session stays ungraded.
func (NoopGrader) Grade(context.Context, uuid.UUID) (*float64, error) {
	return nil, nil
}

type gradingPayload struct {
	SessionID string `json:"session_id"`
}

// RedisGradingQueue enqueues submitted sessions for the grading worker.
type RedisGradingQueue struct {
	rdb *redis.Client
}

// NewRedisGradingQueue creates a RedisGradingQueue.
func NewRedisGradingQueue(rdb *redis.Client) *RedisGradingQueue {
	return &RedisGradingQueue{rdb: rdb}
}

// EnqueueGrading pushes a session onto the grading queue.
func (q *RedisGradingQueue) EnqueueGrading(ctx context.Context, sessionID uuid.UUID) error {
	raw, err := json.Marshal(gradingPayload{SessionID: sessionID.String()})
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.GradingQueue, raw).Err()
}

// ScoreStore persists graded scores.
type ScoreStore interface {
	SetFinalScore(ctx context.Context, id uuid.UUID, score float64) error
}

// GradingWorker drains the grading queue and applies the Grader's score to
// each session.
type GradingWorker struct {
	rdb      *redis.Client
	sessions ScoreStore
	grader   Grader
	log      zerolog.Logger
}

// NewGradingWorker creates a new GradingWorker.
func NewGradingWorker(rdb *redis.Client, sessions ScoreStore, grader Grader, log zerolog.Logger) *GradingWorker {
	return &GradingWorker{
		rdb:      rdb,
		sessions: sessions,
		grader:   grader,
		log:      log.With().Str("component", "grading_worker").Logger(),
	}
}

// Start runs the worker loop until ctx is cancelled, then drains whatever is
// left on the queue before returning.
func (w *GradingWorker) Start(ctx context.Context) {
	w.log.Info().Msg("GradingWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Draining grading queue...")
			w.drain(context.Background())
			return

		default:
			item, err := w.rdb.BLPop(ctx, gradingPollTimeout, config.WorkerKey.GradingQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}
			w.process(ctx, []byte(item[1]))
		}
	}
}

// drain processes remaining queue items without blocking.
func (w *GradingWorker) drain(ctx context.Context) {
	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.GradingQueue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				w.log.Error().Err(err).Msg("drain LPop error")
			}
			return
		}
		w.process(ctx, []byte(raw))
	}
}

func (w *GradingWorker) process(ctx context.Context, raw []byte) {
	var p gradingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}
	sessionID, err := uuid.Parse(p.SessionID)
	if err != nil {
		w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("Invalid session ID")
		return
	}

	score, err := w.grader.Grade(ctx, sessionID)
	if err != nil {
		w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("grading failed — requeueing")
		w.rdb.RPush(ctx, config.WorkerKey.GradingQueue, raw)
		return
	}
	if score == nil {
		// Manual-review session; nothing to persist.
		return
	}

	if err := w.sessions.SetFinalScore(ctx, sessionID, *score); err != nil {
		w.log.Error().Err(err).Str("session_id", p.SessionID).Msg("persist score failed — requeueing")
		w.rdb.RPush(ctx, config.WorkerKey.GradingQueue, raw)
		return
	}
	w.log.Info().Str("session_id", p.SessionID).Float64("score", *score).Msg("session graded")
}
