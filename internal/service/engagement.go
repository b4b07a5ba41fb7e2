package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/repository"
)

// LikeState is the resulting state of a toggle, returned so the caller
// can update its UI optimistically.
type LikeState string

const (
	Liked   LikeState = "liked"
	Unliked LikeState = "unliked"
)

// EngagementService tracks per-viewer like state on answers.
type EngagementService struct {
	answers repository.AnswerRepository
	logger  *slog.Logger
}

func NewEngagementService(answers repository.AnswerRepository, logger *slog.Logger) *EngagementService {
	return &EngagementService{answers: answers, logger: logger}
}

// ToggleLike flips the viewer's like on an answer and returns the new
// state.
//
// The read of likedBy only picks the DIRECTION of the toggle; the actual
// mutation is a guarded atomic update that re-checks membership and
// applies the counter delta in the same document write. So:
//
//   - distinct viewers toggling concurrently commute — no lost counter
//     updates, likes == |likedBy| always;
//   - the SAME viewer toggling from two sessions is last-writer-wins on
//     membership, which is acceptable because a second toggle merely
//     restores the original state.
//
// When the guarded update reports a no-op (another session of this viewer
// won the race between our read and our write), the membership it
// enforced IS the state we were trying to reach, so the returned state is
// still correct.
func (s *EngagementService) ToggleLike(ctx context.Context, answerID, viewerID string) (LikeState, error) {
	if strings.TrimSpace(answerID) == "" {
		return "", apperror.ValidationFailed("answerId", "answer id is required")
	}
	if strings.TrimSpace(viewerID) == "" {
		return "", apperror.ValidationFailed("viewerId", "viewer id is required")
	}

	a, err := s.answers.GetAnswer(ctx, answerID)
	if err != nil {
		return "", err
	}

	if a.LikedByContains(viewerID) {
		if _, err := s.answers.RemoveLike(ctx, answerID, viewerID); err != nil {
			return "", err
		}
		s.logger.Debug("like removed",
			slog.String("answerId", answerID),
			slog.String("viewerId", viewerID),
		)
		return Unliked, nil
	}

	if _, err := s.answers.AddLike(ctx, answerID, viewerID); err != nil {
		return "", err
	}
	s.logger.Debug("like added",
		slog.String("answerId", answerID),
		slog.String("viewerId", viewerID),
	)
	return Liked, nil
}
