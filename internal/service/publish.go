package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/model"
	"github.com/sakif/askwall/internal/repository"
)

// PublishService converts one queued question into one public answer.
//
// The per-question state machine is Pending → Answered, terminal. There
// is no lock making the transition mutually exclusive; concurrency
// control is OPTIMISTIC — Publish re-checks isAnswered before writing,
// and MarkAnswered's own guard means at most one caller ever observes the
// flag flip.
type PublishService struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
	users     repository.UserRepository
	logger    *slog.Logger
}

func NewPublishService(
	questions repository.QuestionRepository,
	answers repository.AnswerRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *PublishService {
	return &PublishService{questions: questions, answers: answers, users: users, logger: logger}
}

// Publish answers a pending question.
//
// THE TWO-STEP PROTOCOL:
//  1. Insert the Answer — with the question text and the author's profile
//     fields copied in as point-in-time snapshots.
//  2. Flip the source question's isAnswered flag.
//
// Step 1 must be durably committed before step 2, and there is no
// transaction spanning both. The recognized partial-failure mode: step 2
// fails after step 1 succeeded, leaving an orphan Answer next to a
// still-pending Question. That surfaces as a PartialFailureError carrying
// the orphan's id — no automatic compensation here, the reconciler
// repairs it on its next pass. Downstream readers must tolerate a
// question briefly looking unanswered while its answer exists.
func (s *PublishService) Publish(ctx context.Context, questionID, answerText string) (*model.Answer, error) {
	answerText = strings.TrimSpace(answerText)
	if answerText == "" {
		return nil, apperror.ValidationFailed("answerText", "answer text is required")
	}

	q, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	// Optimistic re-check. Two racers can still both pass this line; the
	// guarded MarkAnswered below is what collapses the race to a single
	// observable transition.
	if q.IsAnswered {
		return nil, apperror.Conflict("question", questionID)
	}

	author, err := s.users.GetByUID(ctx, q.ReceiverID)
	if err != nil {
		return nil, err
	}

	a := &model.Answer{
		QuestionID:   q.ID,
		UserID:       author.UID,
		QuestionText: q.Text, // value copy, not a live reference
		AnswerText:   answerText,
		LikedBy:      []string{},
		Author: model.AuthorSnapshot{
			Username:  author.Username,
			FullName:  author.FullName,
			AvatarURL: author.AvatarURL,
		},
	}
	if err := s.answers.InsertAnswer(ctx, a); err != nil {
		s.logger.Error("failed to insert answer",
			slog.String("questionId", questionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("publishing answer: %w", err)
	}

	if _, err := s.questions.MarkAnswered(ctx, q.ID); err != nil {
		// The answer is committed, the flag is not. Logged, surfaced,
		// not retried — see the reconciler.
		s.logger.Error("answer created but question not marked answered",
			slog.String("questionId", q.ID),
			slog.String("answerId", a.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.PartialFailure(
			fmt.Sprintf("answer %s created but question %s not marked answered", a.ID, q.ID),
			a.ID,
		)
	}

	s.logger.Info("answer published",
		slog.String("questionId", q.ID),
		slog.String("answerId", a.ID),
		slog.String("userId", a.UserID),
	)
	return a, nil
}
