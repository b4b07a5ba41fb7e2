package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/model"
	"github.com/sakif/askwall/internal/repository"
)

// Hand-written in-memory mocks for the repository interfaces. The
// services only see the interfaces, so these swap in for the sqlite
// implementation without the services noticing — and they carry failure
// switches the real store can't be talked into flipping on demand.

// =========================================================================
// USER REPOSITORY MOCK
// =========================================================================

type mockUserRepo struct {
	users map[string]*model.UserProfile
	names map[string]string // normalized username -> uid

	failInsert  bool
	failUpdate  bool
	failTouch   bool
	failRelease bool

	releaseCalls []string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users: make(map[string]*model.UserProfile),
		names: make(map[string]string),
	}
}

var errMockFailure = errors.New("mock repository failure")

func (m *mockUserRepo) InsertProfile(_ context.Context, u *model.UserProfile) error {
	if m.failInsert {
		return errMockFailure
	}
	if _, ok := m.users[u.UID]; ok {
		return apperror.Conflict("profile", u.UID)
	}
	stored := *u
	m.users[u.UID] = &stored
	return nil
}

func (m *mockUserRepo) GetByUID(_ context.Context, uid string) (*model.UserProfile, error) {
	u, ok := m.users[uid]
	if !ok {
		return nil, apperror.NotFound("profile", uid)
	}
	result := *u
	return &result, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, normalized string) (*model.UserProfile, error) {
	uid, ok := m.names[normalized]
	if !ok {
		return nil, apperror.NotFound("username", normalized)
	}
	return m.GetByUID(ctx, uid)
}

func (m *mockUserRepo) UsernameExists(_ context.Context, normalized string) (bool, error) {
	_, ok := m.names[normalized]
	return ok, nil
}

func (m *mockUserRepo) ClaimUsername(_ context.Context, normalized, uid string) error {
	if _, ok := m.names[normalized]; ok {
		return apperror.Conflict("username", normalized)
	}
	m.names[normalized] = uid
	return nil
}

func (m *mockUserRepo) ReleaseUsername(_ context.Context, normalized string) error {
	m.releaseCalls = append(m.releaseCalls, normalized)
	if m.failRelease {
		return errMockFailure
	}
	delete(m.names, normalized)
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, u *model.UserProfile) error {
	if m.failUpdate {
		return errMockFailure
	}
	if _, ok := m.users[u.UID]; !ok {
		return apperror.NotFound("profile", u.UID)
	}
	stored := *u
	m.users[u.UID] = &stored
	return nil
}

func (m *mockUserRepo) TouchActivity(_ context.Context, uid string, at int64) error {
	if m.failTouch {
		return errMockFailure
	}
	u, ok := m.users[uid]
	if !ok {
		return apperror.NotFound("profile", uid)
	}
	u.LastActive = at
	return nil
}

func (m *mockUserRepo) AddDeviceToken(_ context.Context, uid, token string) error {
	u, ok := m.users[uid]
	if !ok {
		return apperror.NotFound("profile", uid)
	}
	for _, t := range u.DeviceTokens {
		if t == token {
			return nil
		}
	}
	u.DeviceTokens = append(u.DeviceTokens, token)
	return nil
}

func (m *mockUserRepo) ListProfiles(_ context.Context) ([]model.UserProfile, error) {
	result := make([]model.UserProfile, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, nil
}

// =========================================================================
// QUESTION REPOSITORY MOCK
// =========================================================================

type mockQuestionRepo struct {
	questions map[string]*model.Question
	nextID    int
	nextTS    int64

	failInsert bool
	failMark   bool
	markCalls  int
}

func newMockQuestionRepo() *mockQuestionRepo {
	return &mockQuestionRepo{
		questions: make(map[string]*model.Question),
		nextTS:    1_700_000_000_000,
	}
}

func (m *mockQuestionRepo) InsertQuestion(_ context.Context, q *model.Question) error {
	if m.failInsert {
		return errMockFailure
	}
	m.nextID++
	q.ID = fmt.Sprintf("q-%d", m.nextID)
	if q.Timestamp == 0 {
		m.nextTS++
		q.Timestamp = m.nextTS
	}
	stored := *q
	m.questions[q.ID] = &stored
	return nil
}

func (m *mockQuestionRepo) GetQuestion(_ context.Context, id string) (*model.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, apperror.NotFound("question", id)
	}
	result := *q
	return &result, nil
}

func (m *mockQuestionRepo) ListByReceiver(_ context.Context, receiverID string) ([]model.Question, error) {
	var result []model.Question
	for _, q := range m.questions {
		if q.ReceiverID == receiverID {
			result = append(result, *q)
		}
	}
	return result, nil
}

func (m *mockQuestionRepo) MarkAnswered(_ context.Context, id string) (bool, error) {
	m.markCalls++
	if m.failMark {
		return false, errMockFailure
	}
	q, ok := m.questions[id]
	if !ok {
		return false, apperror.NotFound("question", id)
	}
	if q.IsAnswered {
		return false, nil
	}
	q.IsAnswered = true
	return true, nil
}

// =========================================================================
// ANSWER REPOSITORY MOCK
// =========================================================================

type mockAnswerRepo struct {
	answers map[string]*model.Answer
	nextID  int
	nextTS  int64

	orderedErr error // returned by ListOrderedByTime when set
}

func newMockAnswerRepo() *mockAnswerRepo {
	return &mockAnswerRepo{
		answers: make(map[string]*model.Answer),
		nextTS:  1_700_000_000_000,
	}
}

func (m *mockAnswerRepo) InsertAnswer(_ context.Context, a *model.Answer) error {
	m.nextID++
	a.ID = fmt.Sprintf("a-%d", m.nextID)
	if a.Timestamp == 0 {
		m.nextTS++
		a.Timestamp = m.nextTS
	}
	if a.LikedBy == nil {
		a.LikedBy = []string{}
	}
	stored := *a
	m.answers[a.ID] = &stored
	return nil
}

func (m *mockAnswerRepo) GetAnswer(_ context.Context, id string) (*model.Answer, error) {
	a, ok := m.answers[id]
	if !ok {
		return nil, apperror.NotFound("answer", id)
	}
	result := *a
	result.LikedBy = append([]string(nil), a.LikedBy...)
	return &result, nil
}

func (m *mockAnswerRepo) ListByUser(_ context.Context, userID string) ([]model.Answer, error) {
	var result []model.Answer
	for _, a := range m.answers {
		if a.UserID == userID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAnswerRepo) ListOrderedByTime(ctx context.Context, limit int) ([]model.Answer, error) {
	if m.orderedErr != nil {
		return nil, m.orderedErr
	}
	all, _ := m.ListAnswers(ctx)
	sortNewestFirst(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockAnswerRepo) ListUnordered(ctx context.Context, limit int) ([]model.Answer, error) {
	all, _ := m.ListAnswers(ctx)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *mockAnswerRepo) AddLike(_ context.Context, answerID, viewerID string) (bool, error) {
	a, ok := m.answers[answerID]
	if !ok {
		return false, apperror.NotFound("answer", answerID)
	}
	if a.LikedByContains(viewerID) {
		return false, nil
	}
	a.LikedBy = append(a.LikedBy, viewerID)
	a.Likes++
	return true, nil
}

func (m *mockAnswerRepo) RemoveLike(_ context.Context, answerID, viewerID string) (bool, error) {
	a, ok := m.answers[answerID]
	if !ok {
		return false, apperror.NotFound("answer", answerID)
	}
	for i, v := range a.LikedBy {
		if v == viewerID {
			a.LikedBy = append(a.LikedBy[:i], a.LikedBy[i+1:]...)
			a.Likes--
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAnswerRepo) ListAnswers(_ context.Context) ([]model.Answer, error) {
	result := make([]model.Answer, 0, len(m.answers))
	for _, a := range m.answers {
		result = append(result, *a)
	}
	return result, nil
}

// =========================================================================
// SHARED HELPERS
// =========================================================================

var (
	_ repository.UserRepository     = (*mockUserRepo)(nil)
	_ repository.QuestionRepository = (*mockQuestionRepo)(nil)
	_ repository.AnswerRepository   = (*mockAnswerRepo)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// seedProfile inserts a profile through the identity service so the
// username index stays consistent with the profile map.
func seedProfile(t *testing.T, svc *IdentityService, uid, username string) *model.UserProfile {
	t.Helper()
	u, err := svc.CreateProfile(context.Background(), &model.UserProfile{
		UID:      uid,
		Username: username,
		FullName: "Full Name of " + uid,
	})
	if err != nil {
		t.Fatalf("failed to seed profile %s: %v", uid, err)
	}
	return u
}

// nopPusher satisfies notify.Pusher for tests that don't care.
type nopPusher struct{ calls int }

func (p *nopPusher) Push(context.Context, []string, string, string) error {
	p.calls++
	return nil
}

func msAgo(d time.Duration) int64 {
	return time.Now().Add(-d).UnixMilli()
}

func userWithTokens(uid string, tokens ...string) *model.UserProfile {
	return &model.UserProfile{
		UID:          uid,
		Username:     uid,
		CreatedAt:    msAgo(time.Hour),
		LastActive:   msAgo(time.Hour),
		DeviceTokens: tokens,
	}
}
