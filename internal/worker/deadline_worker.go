package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Arpan7125/procto-3.0/internal/model"
	"github.com/Arpan7125/procto-3.0/internal/observability"
	"github.com/Arpan7125/procto-3.0/internal/repository"
	"github.com/Arpan7125/procto-3.0/internal/service"
)

const sweepBatchSize = 100

// DeadlineWorker periodically sweeps ACTIVE sessions whose deadline passed
// while the student was gone, so abandoned attempts settle without waiting
// for the next request to touch them.
type DeadlineWorker struct {
	sessions *repository.ExamSessionRepository
	exams    *repository.ExamRepository
	events   service.EventPublisher
	grading  service.GradingEnqueuer
	interval time.Duration
	log      zerolog.Logger
}

// NewDeadlineWorker creates a new DeadlineWorker.
func NewDeadlineWorker(
	sessions *repository.ExamSessionRepository,
	exams *repository.ExamRepository,
	events service.EventPublisher,
	grading service.GradingEnqueuer,
	interval time.Duration,
	log zerolog.Logger,
) *DeadlineWorker {
	return &DeadlineWorker{
		sessions: sessions,
		exams:    exams,
		events:   events,
		grading:  grading,
		interval: interval,
		log:      log.With().Str("component", "deadline_worker").Logger(),
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (w *DeadlineWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("DeadlineWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("DeadlineWorker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep settles one batch of expired sessions.
func (w *DeadlineWorker) sweep(ctx context.Context) {
	expired, err := w.sessions.ListExpired(ctx, time.Now(), service.DeadlineGrace, sweepBatchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("list expired sessions failed")
		return
	}
	if len(expired) == 0 {
		return
	}

	settled := 0
	for i := range expired {
		s := &expired[i]

		exam, err := w.exams.GetByID(ctx, s.ExamID)
		if err != nil {
			w.log.Error().Err(err).Str("session_id", s.ID.String()).Msg("load exam failed")
			continue
		}

		deadline := s.Deadline(exam)
		if err := w.sessions.Finish(ctx, s.ID, model.SessionStatusSubmitted, deadline); err != nil {
			// Raced with a student submit or another instance; already settled.
			continue
		}
		s.Status = model.SessionStatusSubmitted
		s.SubmittedAt = &deadline
		settled++
		observability.CountSessionSubmitted("deadline")

		if err := w.grading.EnqueueGrading(ctx, s.ID); err != nil {
			w.log.Error().Err(err).Str("session_id", s.ID.String()).Msg("grading enqueue failed")
		}
		w.events.PublishSessionEvent(ctx, s.ExamID, "session_submitted", s)
	}

	if settled > 0 {
		w.log.Info().Int("settled", settled).Msg("expired sessions auto-submitted")
	}
}
