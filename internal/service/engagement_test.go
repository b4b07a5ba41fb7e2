package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/model"
)

func seedAnswer(t *testing.T, repo *mockAnswerRepo, userID string) *model.Answer {
	t.Helper()
	a := &model.Answer{
		QuestionID: "q-src",
		UserID:     userID,
		AnswerText: "an answer",
	}
	if err := repo.InsertAnswer(context.Background(), a); err != nil {
		t.Fatalf("failed to seed answer: %v", err)
	}
	return a
}

func TestToggleLike(t *testing.T) {
	repo := newMockAnswerRepo()
	svc := NewEngagementService(repo, testLogger())
	ctx := context.Background()

	a := seedAnswer(t, repo, "author")

	// First toggle likes.
	state, err := svc.ToggleLike(ctx, a.ID, "viewer-1")
	if err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}
	if state != Liked {
		t.Errorf("state = %q, want %q", state, Liked)
	}

	got, _ := repo.GetAnswer(ctx, a.ID)
	if got.Likes != 1 || !got.LikedByContains("viewer-1") {
		t.Errorf("after like: likes=%d likedBy=%v", got.Likes, got.LikedBy)
	}

	// Second toggle by the same viewer unlikes — back to the start.
	state, err = svc.ToggleLike(ctx, a.ID, "viewer-1")
	if err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}
	if state != Unliked {
		t.Errorf("state = %q, want %q", state, Unliked)
	}

	got, _ = repo.GetAnswer(ctx, a.ID)
	if got.Likes != 0 || got.LikedByContains("viewer-1") {
		t.Errorf("after unlike: likes=%d likedBy=%v", got.Likes, got.LikedBy)
	}
}

func TestToggleLikeDistinctViewersAccumulate(t *testing.T) {
	repo := newMockAnswerRepo()
	svc := NewEngagementService(repo, testLogger())
	ctx := context.Background()

	a := seedAnswer(t, repo, "author")

	viewers := []string{"v1", "v2", "v3", "device:abc"}
	for _, v := range viewers {
		if _, err := svc.ToggleLike(ctx, a.ID, v); err != nil {
			t.Fatalf("ToggleLike(%s) error = %v", v, err)
		}
	}

	got, _ := repo.GetAnswer(ctx, a.ID)
	if got.Likes != len(viewers) {
		t.Errorf("likes = %d, want %d", got.Likes, len(viewers))
	}
	// The invariant the guarded updates exist to protect.
	if got.Likes != len(got.LikedBy) {
		t.Errorf("likes (%d) diverged from |likedBy| (%d)", got.Likes, len(got.LikedBy))
	}

	// One viewer backing out only removes their own mark.
	if _, err := svc.ToggleLike(ctx, a.ID, "v2"); err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}
	got, _ = repo.GetAnswer(ctx, a.ID)
	if got.Likes != 3 || got.LikedByContains("v2") || !got.LikedByContains("v1") {
		t.Errorf("after v2 unlike: likes=%d likedBy=%v", got.Likes, got.LikedBy)
	}
}

func TestToggleLikeValidation(t *testing.T) {
	repo := newMockAnswerRepo()
	svc := NewEngagementService(repo, testLogger())
	ctx := context.Background()

	if _, err := svc.ToggleLike(ctx, "", "viewer"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty answer id error = %v, want ErrValidation", err)
	}
	if _, err := svc.ToggleLike(ctx, "a-1", "  "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank viewer id error = %v, want ErrValidation", err)
	}
	if _, err := svc.ToggleLike(ctx, "a-missing", "viewer"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("missing answer error = %v, want ErrNotFound", err)
	}
}
