package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/repository"
)

// Reconciler is the periodic repair job for the publish protocol's
// recognized partial failure: an Answer that exists while its source
// Question still reads unanswered.
//
// There is no lock to take and nothing to roll back — the repair is the
// same guarded MarkAnswered the publisher uses, so running the pass
// twice, or concurrently with a publish, converges on the same state.
type Reconciler struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	interval  time.Duration
	logger    *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewReconciler(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	interval time.Duration,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		questions: questions,
		answers:   answers,
		interval:  interval,
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

// Start launches the background loop. A non-positive interval disables
// the job entirely.
func (r *Reconciler) Start(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	r.wg.Add(1)
	go r.loop(ctx)
}

// Stop signals the loop and waits for it to exit.
func (r *Reconciler) Stop() {
	close(r.stop)
	r.wg.Wait()
}

func (r *Reconciler) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			r.logger.Info("reconciler stopping")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if repaired, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("reconcile pass failed", slog.String("error", err.Error()))
			} else if repaired > 0 {
				r.logger.Info("reconcile pass repaired questions", slog.Int("repaired", repaired))
			}
		}
	}
}

// RunOnce scans every answer and flips any source question still reading
// unanswered. Returns how many flags this pass actually flipped.
//
// An answer referencing a MISSING question is logged and skipped: that is
// a different corruption than the one this job owns, and deleting data is
// not its call.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	answers, err := r.answers.ListAnswers(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, a := range answers {
		q, err := r.questions.GetQuestion(ctx, a.QuestionID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				r.logger.Warn("answer references missing question",
					slog.String("answerId", a.ID),
					slog.String("questionId", a.QuestionID),
				)
				continue
			}
			return repaired, err
		}
		if q.IsAnswered {
			continue
		}

		flipped, err := r.questions.MarkAnswered(ctx, q.ID)
		if err != nil {
			r.logger.Error("failed to repair question",
				slog.String("questionId", q.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if flipped {
			repaired++
			r.logger.Info("repaired orphan answer",
				slog.String("questionId", q.ID),
				slog.String("answerId", a.ID),
			)
		}
	}
	return repaired, nil
}
