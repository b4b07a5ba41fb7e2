package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/askwall/internal/auth"
	"github.com/sakif/askwall/internal/service"
)

// QuestionHandler owns the intake surface: anonymous submission and the
// owner's inbox of pending questions.
type QuestionHandler struct {
	intake   *service.IntakeService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewQuestionHandler(intake *service.IntakeService, validate *validator.Validate, logger *slog.Logger) *QuestionHandler {
	return &QuestionHandler{intake: intake, validate: validate, logger: logger}
}

type submitQuestionRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	Text       string `json:"text" validate:"required,max=300"`
	Theme      string `json:"theme" validate:"max=50"`
}

// HandleSubmit accepts an anonymous question.
//
// HTTP: POST /api/questions — no auth, deliberately.
//
// There is no sender field in the request schema and none is derived
// from the session: a signed-in user asking a question is as anonymous
// as a stranger. Submitting to a nonexistent receiver still succeeds.
func (h *QuestionHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitQuestionRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	q, err := h.intake.Submit(r.Context(), req.ReceiverID, req.Text, req.Theme)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, q)
}

// HandleInbox lists the caller's pending (unanswered) questions, newest
// first.
//
// HTTP: GET /api/me/inbox
func (h *QuestionHandler) HandleInbox(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	questions, err := h.intake.ListUnanswered(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, questions)
}
