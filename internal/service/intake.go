package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/model"
	"github.com/sakif/askwall/internal/notify"
	"github.com/sakif/askwall/internal/repository"
)

// IntakeService accepts anonymous question submissions and lists a
// receiver's unanswered queue.
type IntakeService struct {
	questions repository.QuestionRepository
	users     repository.UserRepository
	pusher    notify.Pusher
	logger    *slog.Logger
}

func NewIntakeService(
	questions repository.QuestionRepository,
	users repository.UserRepository,
	pusher notify.Pusher,
	logger *slog.Logger,
) *IntakeService {
	return &IntakeService{questions: questions, users: users, pusher: pusher, logger: logger}
}

// Submit accepts an anonymous question for a receiver.
//
// Deliberately NOT validated: whether the receiver exists. An unknown uid
// silently creates an orphaned record — receiver validation belongs to
// the identity boundary at a higher layer, and intake must stay writable
// by fully unauthenticated actors.
//
// There is no sender parameter. Anonymity is structural: the Question's
// senderId field is never populated by any code path.
func (s *IntakeService) Submit(ctx context.Context, receiverID, text, theme string) (*model.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "question text is required")
	}
	if len(text) > model.MaxQuestionLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("question must be %d characters or less", model.MaxQuestionLength))
	}
	if strings.TrimSpace(receiverID) == "" {
		return nil, apperror.ValidationFailed("receiverId", "receiver is required")
	}

	q := &model.Question{
		ReceiverID: receiverID,
		Text:       text,
		Theme:      strings.TrimSpace(theme),
	}
	if err := s.questions.InsertQuestion(ctx, q); err != nil {
		s.logger.Error("failed to insert question",
			slog.String("receiverId", receiverID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("submitting question: %w", err)
	}

	s.notifyReceiver(ctx, receiverID)

	s.logger.Info("question submitted",
		slog.String("id", q.ID),
		slog.String("receiverId", q.ReceiverID),
	)
	return q, nil
}

// ListUnanswered returns the receiver's pending queue, newest first.
//
// The store is only asked for the receiverId equality fetch; the
// isAnswered filter and the ordering are applied HERE, in memory. That
// keeps a composite (receiverId, isAnswered) index out of the store's
// operational requirements — the whole point of this layer.
func (s *IntakeService) ListUnanswered(ctx context.Context, receiverID string) ([]model.Question, error) {
	if strings.TrimSpace(receiverID) == "" {
		return nil, apperror.ValidationFailed("receiverId", "receiver is required")
	}

	all, err := s.questions.ListByReceiver(ctx, receiverID)
	if err != nil {
		s.logger.Error("failed to list questions",
			slog.String("receiverId", receiverID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing unanswered questions: %w", err)
	}

	unanswered := make([]model.Question, 0, len(all))
	for _, q := range all {
		if !q.IsAnswered {
			unanswered = append(unanswered, q)
		}
	}
	sort.Slice(unanswered, func(i, j int) bool {
		return unanswered[i].Timestamp > unanswered[j].Timestamp
	})
	return unanswered, nil
}

// notifyReceiver pushes "new question" to the receiver's registered
// devices. Best effort end to end: an unknown receiver, a tokenless
// profile, or a push failure all just log.
func (s *IntakeService) notifyReceiver(ctx context.Context, receiverID string) {
	u, err := s.users.GetByUID(ctx, receiverID)
	if err != nil || len(u.DeviceTokens) == 0 {
		return
	}
	if err := s.pusher.Push(ctx, u.DeviceTokens, "New question", "Someone asked you an anonymous question"); err != nil {
		s.logger.Warn("failed to push new-question notification",
			slog.String("receiverId", receiverID),
			slog.String("error", err.Error()),
		)
	}
}
