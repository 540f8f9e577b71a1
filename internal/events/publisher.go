package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Arpan7125/procto-3.0/internal/config"
	"github.com/Arpan7125/procto-3.0/internal/model"
)

// SessionEvent is the wire shape broadcast to exam monitors.
type SessionEvent struct {
	Event     string              `json:"event"`
	SessionID uuid.UUID           `json:"session_id"`
	ExamID    uuid.UUID           `json:"exam_id"`
	StudentID uuid.UUID           `json:"student_id"`
	Status    model.SessionStatus `json:"status"`
	At        time.Time           `json:"at"`
}

// RedisPublisher broadcasts session events over Redis PubSub, one channel
// per exam. Publishing is fire-and-forget: monitor delivery never blocks or
// fails a student request.
type RedisPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisPublisher creates a RedisPublisher.
func NewRedisPublisher(rdb *redis.Client, log zerolog.Logger) *RedisPublisher {
	return &RedisPublisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

// PublishSessionEvent broadcasts one session lifecycle event.
func (p *RedisPublisher) PublishSessionEvent(ctx context.Context, examID uuid.UUID, event string, session *model.ExamSession) {
	payload, err := json.Marshal(SessionEvent{
		Event:     event,
		SessionID: session.ID,
		ExamID:    examID,
		StudentID: session.StudentID,
		Status:    session.Status,
		At:        time.Now(),
	})
	if err != nil {
		p.log.Error().Err(err).Msg("marshal session event")
		return
	}

	channel := config.CacheKey.ExamEventsChannel(examID.String())
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		p.log.Warn().Err(err).Str("channel", channel).Msg("publish session event failed")
	}
}

// Subscribe opens a PubSub subscription on one exam's event channel. The
// caller owns the returned subscription and must Close it.
func (p *RedisPublisher) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return p.rdb.Subscribe(ctx, config.CacheKey.ExamEventsChannel(examID.String()))
}

// NopPublisher drops every event. Used in tests and tooling.
type NopPublisher struct{}

// PublishSessionEvent discards the event.
func (NopPublisher) PublishSessionEvent(context.Context, uuid.UUID, string, *model.ExamSession) {}
