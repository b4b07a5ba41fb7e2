package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/auth"
	"github.com/sakif/askwall/internal/service"
)

// AnswerHandler owns publishing, feeds, stats, and like toggling.
type AnswerHandler struct {
	publish    *service.PublishService
	feed       *service.FeedService
	engagement *service.EngagementService
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewAnswerHandler(
	publish *service.PublishService,
	feed *service.FeedService,
	engagement *service.EngagementService,
	validate *validator.Validate,
	logger *slog.Logger,
) *AnswerHandler {
	return &AnswerHandler{
		publish:    publish,
		feed:       feed,
		engagement: engagement,
		validate:   validate,
		logger:     logger,
	}
}

type publishRequest struct {
	QuestionID string `json:"questionId" validate:"required"`
	Text       string `json:"text" validate:"required"`
}

// HandlePublish answers one of the caller's pending questions.
//
// HTTP: POST /api/answers
//
// A partial failure (answer committed, flag flip failed) maps to 202
// rather than an error status: the answer exists and the reconciler will
// finish the job, so the client should refetch, not resubmit.
func (h *AnswerHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	a, err := h.publish.Publish(r.Context(), req.QuestionID, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// HandleUserFeed returns a user's published answers, newest first,
// capped at 20.
//
// HTTP: GET /api/users/{uid}/feed — public.
func (h *AnswerHandler) HandleUserFeed(w http.ResponseWriter, r *http.Request) {
	answers, err := h.feed.GetUserFeed(r.Context(), r.PathValue("uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

// HandleUserStats returns answer and like totals for a profile page.
//
// HTTP: GET /api/users/{uid}/stats — public.
func (h *AnswerHandler) HandleUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.feed.GetUserStats(r.Context(), r.PathValue("uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleGlobalFeed returns the newest answers across all users.
//
// HTTP: GET /api/feed — public.
func (h *AnswerHandler) HandleGlobalFeed(w http.ResponseWriter, r *http.Request) {
	answers, err := h.feed.GetGlobalFeed(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

// HandleToggleLike flips the viewer's like on an answer.
//
// HTTP: POST /api/answers/{id}/like — behind OptionalAuth.
//
// The viewer is the authenticated uid when there is one, otherwise the
// X-Device-ID header. A request with neither has no stable identity to
// record a like against, so it's rejected rather than silently counted.
func (h *AnswerHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	viewer := auth.ViewerID(r)
	if viewer == "" {
		writeError(w, apperror.ValidationFailed("viewer",
			"a session token or X-Device-ID header is required to like"))
		return
	}

	state, err := h.engagement.ToggleLike(r.Context(), r.PathValue("id"), viewer)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"state": string(state)})
}
