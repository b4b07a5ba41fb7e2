package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/model"
	"github.com/sakif/askwall/internal/repository"
)

const (
	// FeedLimit caps every feed at 20 answers.
	FeedLimit = 20

	// FallbackScanLimit bounds the unordered fetch the global feed falls
	// back to when the ordered query is unavailable or fails.
	FallbackScanLimit = 50
)

// UserStats is the client-side reduction over a user's answers.
type UserStats struct {
	AnswerCount int `json:"answerCount"`
	TotalLikes  int `json:"totalLikes"`
}

// FeedService derives feeds and per-user stats from raw answer records.
type FeedService struct {
	answers repository.AnswerRepository
	logger  *slog.Logger
}

func NewFeedService(answers repository.AnswerRepository, logger *slog.Logger) *FeedService {
	return &FeedService{answers: answers, logger: logger}
}

// GetUserFeed returns the user's published answers, newest first, capped
// at FeedLimit. One equality fetch, then sort and truncate in memory — no
// ordered index on (userId, timestamp) is required of the store.
func (s *FeedService) GetUserFeed(ctx context.Context, uid string) ([]model.Answer, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, apperror.ValidationFailed("uid", "uid is required")
	}

	answers, err := s.answers.ListByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("fetching user feed: %w", err)
	}

	sortNewestFirst(answers)
	if len(answers) > FeedLimit {
		answers = answers[:FeedLimit]
	}
	return answers, nil
}

// GetUserStats reduces the same equality-filtered set client-side,
// avoiding store-side count/aggregation primitives (which tend to demand
// their own index provisioning).
func (s *FeedService) GetUserStats(ctx context.Context, uid string) (*UserStats, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, apperror.ValidationFailed("uid", "uid is required")
	}

	answers, err := s.answers.ListByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("fetching user stats: %w", err)
	}

	stats := &UserStats{AnswerCount: len(answers)}
	for _, a := range answers {
		stats.TotalLikes += a.Likes
	}
	return stats, nil
}

// GetGlobalFeed returns the newest FeedLimit answers across all users.
//
// TWO-TIER STRATEGY:
// Tier 1 asks the store for its ordered query. Tier 2 — taken on
// ErrOrderedUnsupported or ANY tier-1 failure — does an unordered fetch
// bounded at FallbackScanLimit, sorts in memory, and truncates. The
// degradation is logged but never surfaced: a missing index must not take
// the feed down. Any other query that could plausibly lack a server-side
// index should follow this same shape.
func (s *FeedService) GetGlobalFeed(ctx context.Context) ([]model.Answer, error) {
	answers, err := s.answers.ListOrderedByTime(ctx, FeedLimit)
	if err == nil {
		return answers, nil
	}

	if !errors.Is(err, repository.ErrOrderedUnsupported) {
		s.logger.Warn("ordered feed query failed, falling back to bounded scan",
			slog.String("error", err.Error()),
		)
	}

	answers, err = s.answers.ListUnordered(ctx, FallbackScanLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching global feed fallback: %w", err)
	}

	sortNewestFirst(answers)
	if len(answers) > FeedLimit {
		answers = answers[:FeedLimit]
	}
	return answers, nil
}

func sortNewestFirst(answers []model.Answer) {
	sort.Slice(answers, func(i, j int) bool {
		return answers[i].Timestamp > answers[j].Timestamp
	})
}
