// Package repository defines the storage interfaces the service layer is
// written against.
//
// THE STORE MODEL:
// The backing store is treated as a document store with a deliberately
// small capability surface:
//
//   - point lookups by key
//   - conditional insert (fails if the key exists)
//   - filtered scans by a SINGLE equality predicate
//   - an OPTIONAL order-by capability (may be unsupported or fail)
//   - atomic single-document mutations (counter deltas, set add/remove)
//
// Nothing here assumes composite indexes, server-side aggregation, or
// multi-document transactions. Where an operation needs "filter by A and
// B, sorted by C", the interface exposes only the equality fetch and the
// service filters and sorts in memory. That split is the core resilience
// pattern of this layer — see ErrOrderedUnsupported.
package repository

import (
	"context"
	"errors"

	"github.com/sakif/askwall/internal/model"
)

// ErrOrderedUnsupported is returned by ordered-fetch methods when the
// store has no usable ordering index. Callers must treat it (and any other
// ordered-fetch failure) as a signal to fall back to an unordered bounded
// fetch plus an in-memory sort — never as a hard error.
var ErrOrderedUnsupported = errors.New("repository: ordered fetch unsupported")

// UserRepository stores profile documents and the username index
// collection that enforces the uniqueness invariant.
type UserRepository interface {
	InsertProfile(ctx context.Context, u *model.UserProfile) error
	GetByUID(ctx context.Context, uid string) (*model.UserProfile, error)

	// GetByUsername looks up the index collection by NORMALIZED name and
	// then resolves the profile. Returns apperror.NotFound when unclaimed.
	GetByUsername(ctx context.Context, normalized string) (*model.UserProfile, error)

	// UsernameExists checks the index collection for the normalized name.
	UsernameExists(ctx context.Context, normalized string) (bool, error)

	// ClaimUsername conditionally inserts an index entry keyed by the
	// normalized name. It is the uniqueness primitive: exactly one caller
	// can ever succeed for a given name, and a losing racer gets
	// apperror.Conflict.
	ClaimUsername(ctx context.Context, normalized, uid string) error

	// ReleaseUsername removes an index entry. Used to roll back a claim
	// whose profile write failed, and to free the old name after a rename.
	ReleaseUsername(ctx context.Context, normalized string) error

	// UpdateProfile rewrites the profile document (single atomic write).
	UpdateProfile(ctx context.Context, u *model.UserProfile) error

	// TouchActivity updates only lastActive on the profile document.
	TouchActivity(ctx context.Context, uid string, at int64) error

	// AddDeviceToken appends an opaque push token to the profile document
	// with set semantics: a token already present is not duplicated.
	AddDeviceToken(ctx context.Context, uid, token string) error

	// ListProfiles returns every profile. The analytics aggregator reduces
	// these client-side rather than leaning on store-side counting.
	ListProfiles(ctx context.Context) ([]model.UserProfile, error)
}

// QuestionRepository stores anonymous submissions.
type QuestionRepository interface {
	InsertQuestion(ctx context.Context, q *model.Question) error
	GetQuestion(ctx context.Context, id string) (*model.Question, error)

	// ListByReceiver fetches by the receiverId equality predicate ONLY.
	// There is no (receiverId, isAnswered) composite capability; the
	// caller filters and orders in memory.
	ListByReceiver(ctx context.Context, receiverID string) ([]model.Question, error)

	// MarkAnswered flips isAnswered false→true. The write is guarded: a
	// question already flagged is left untouched and reported via the
	// returned bool, which makes the operation idempotent and the flag
	// monotonic.
	MarkAnswered(ctx context.Context, id string) (flipped bool, err error)
}

// AnswerRepository stores published answers and their engagement state.
type AnswerRepository interface {
	InsertAnswer(ctx context.Context, a *model.Answer) error
	GetAnswer(ctx context.Context, id string) (*model.Answer, error)

	// ListByUser fetches by the userId equality predicate only.
	ListByUser(ctx context.Context, userID string) ([]model.Answer, error)

	// ListOrderedByTime is the indexed global-feed path: newest first,
	// at most limit. May return ErrOrderedUnsupported.
	ListOrderedByTime(ctx context.Context, limit int) ([]model.Answer, error)

	// ListUnordered is the fallback path: an unordered bounded fetch with
	// no ordering guarantee whatsoever.
	ListUnordered(ctx context.Context, limit int) ([]model.Answer, error)

	// AddLike atomically appends viewerID to likedBy AND increments the
	// likes counter in one guarded document update. Returns false without
	// modifying anything if the viewer was already present.
	AddLike(ctx context.Context, answerID, viewerID string) (added bool, err error)

	// RemoveLike is the inverse: one guarded update removing the viewer
	// and decrementing the counter. Returns false if the viewer was not
	// present.
	RemoveLike(ctx context.Context, answerID, viewerID string) (removed bool, err error)

	// ListAnswers returns every answer; the reconciliation job scans these to
	// find orphans whose source question is still unflagged.
	ListAnswers(ctx context.Context) ([]model.Answer, error)
}
