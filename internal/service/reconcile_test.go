package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/sakif/askwall/internal/model"
)

func TestReconcilerRepairsOrphanAnswer(t *testing.T) {
	questions := newMockQuestionRepo()
	answers := newMockAnswerRepo()
	ctx := context.Background()

	// Reproduce the publish partial failure by hand: answer committed,
	// flag flip never happened.
	q := &model.Question{ReceiverID: "u1", Text: "orphaned?"}
	if err := questions.InsertQuestion(ctx, q); err != nil {
		t.Fatalf("InsertQuestion() error = %v", err)
	}
	a := &model.Answer{QuestionID: q.ID, UserID: "u1", AnswerText: "yes"}
	if err := answers.InsertAnswer(ctx, a); err != nil {
		t.Fatalf("InsertAnswer() error = %v", err)
	}

	// A healthy pair that must not be touched.
	healthy := &model.Question{ReceiverID: "u2", Text: "fine"}
	if err := questions.InsertQuestion(ctx, healthy); err != nil {
		t.Fatalf("InsertQuestion() error = %v", err)
	}
	if _, err := questions.MarkAnswered(ctx, healthy.ID); err != nil {
		t.Fatalf("MarkAnswered() error = %v", err)
	}
	if err := answers.InsertAnswer(ctx, &model.Answer{QuestionID: healthy.ID, UserID: "u2", AnswerText: "ok"}); err != nil {
		t.Fatalf("InsertAnswer() error = %v", err)
	}
	marksBefore := questions.markCalls

	r := NewReconciler(questions, answers, time.Minute, testLogger())
	repaired, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if repaired != 1 {
		t.Errorf("repaired = %d, want 1", repaired)
	}

	got, _ := questions.GetQuestion(ctx, q.ID)
	if !got.IsAnswered {
		t.Error("orphan's question should be answered after the pass")
	}
	// The healthy question was skipped without a write attempt.
	if questions.markCalls != marksBefore+1 {
		t.Errorf("markCalls = %d, want %d", questions.markCalls, marksBefore+1)
	}

	// A second pass finds nothing: the repair converges.
	repaired, err = r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("second RunOnce() error = %v", err)
	}
	if repaired != 0 {
		t.Errorf("second pass repaired = %d, want 0", repaired)
	}
}

func TestReconcilerSkipsAnswersWithMissingQuestions(t *testing.T) {
	questions := newMockQuestionRepo()
	answers := newMockAnswerRepo()
	ctx := context.Background()

	if err := answers.InsertAnswer(ctx, &model.Answer{QuestionID: "q-gone", UserID: "u1", AnswerText: "hm"}); err != nil {
		t.Fatalf("InsertAnswer() error = %v", err)
	}

	r := NewReconciler(questions, answers, time.Minute, testLogger())
	repaired, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce() error = %v, want the dangling answer skipped", err)
	}
	if repaired != 0 {
		t.Errorf("repaired = %d, want 0", repaired)
	}
}

func TestReconcilerStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewReconciler(newMockQuestionRepo(), newMockAnswerRepo(), 10*time.Millisecond, testLogger())
	r.Start(context.Background())
	time.Sleep(35 * time.Millisecond) // let a few ticks fire
	r.Stop()
}

func TestReconcilerDisabledOnNonPositiveInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewReconciler(newMockQuestionRepo(), newMockAnswerRepo(), 0, testLogger())
	r.Start(context.Background())
	// Stop on a never-started loop must not block.
	r.Stop()
}
