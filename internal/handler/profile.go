package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/askwall/internal/auth"
	"github.com/sakif/askwall/internal/model"
	"github.com/sakif/askwall/internal/service"
)

// ProfileHandler owns the account surface: creation, public lookup,
// username availability and changes, display edits, activity and push
// token registration.
type ProfileHandler struct {
	identity *service.IdentityService
	validate *validator.Validate
	logger   *slog.Logger
}

func NewProfileHandler(identity *service.IdentityService, validate *validator.Validate, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{identity: identity, validate: validate, logger: logger}
}

type createProfileRequest struct {
	Username  string `json:"username" validate:"required,min=1,max=30"`
	FullName  string `json:"fullName" validate:"max=80"`
	Email     string `json:"email" validate:"omitempty,email"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url"`
	Bio       string `json:"bio" validate:"max=200"`
}

// HandleCreate registers the authenticated account's profile.
//
// HTTP: POST /api/profiles
//
// The uid comes from the session token, never the body — a client cannot
// create a profile for an account it doesn't hold.
func (h *ProfileHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createProfileRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	profile, err := h.identity.CreateProfile(r.Context(), &model.UserProfile{
		UID:       uid,
		Username:  req.Username,
		FullName:  req.FullName,
		Email:     req.Email,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// publicProfileResponse is the unauthenticated view of a profile. Email
// and device tokens never leave the owner surface: push tokens are
// credentials for someone's phone, and the profile page doesn't need
// either.
type publicProfileResponse struct {
	UID       string `json:"uid"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl"`
	Bio       string `json:"bio"`
	CreatedAt int64  `json:"createdAt"`
	Premium   bool   `json:"premiumStatus"`
}

func publicView(p *model.UserProfile) publicProfileResponse {
	return publicProfileResponse{
		UID:       p.UID,
		Username:  p.Username,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Bio:       p.Bio,
		CreatedAt: p.CreatedAt,
		Premium:   p.Premium,
	}
}

// HandleGet returns the public view of a profile by uid.
//
// HTTP: GET /api/profiles/{uid}
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	profile, err := h.identity.GetProfile(r.Context(), r.PathValue("uid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicView(profile))
}

// HandleGetByUsername resolves a public profile page's handle.
//
// HTTP: GET /api/profiles/username/{username}
//
// Lookup is case-insensitive: the service normalizes before hitting the
// username index.
func (h *ProfileHandler) HandleGetByUsername(w http.ResponseWriter, r *http.Request) {
	profile, err := h.identity.GetProfileByUsername(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, publicView(profile))
}

// HandleMe returns the caller's full profile document, private fields
// included.
//
// HTTP: GET /api/me/profile
func (h *ProfileHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	profile, err := h.identity.GetProfile(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleCheckUsername reports availability for the signup form's
// live check.
//
// HTTP: GET /api/usernames/{username}
//
// "Available" here is advisory only — the authoritative answer is the
// claim at creation time, which can still lose the race.
func (h *ProfileHandler) HandleCheckUsername(w http.ResponseWriter, r *http.Request) {
	taken, err := h.identity.IsUsernameTaken(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": !taken})
}

type updateProfileRequest struct {
	FullName  string `json:"fullName" validate:"max=80"`
	AvatarURL string `json:"avatarUrl" validate:"omitempty,url"`
	Bio       string `json:"bio" validate:"max=200"`
}

// HandleUpdate edits the caller's mutable display fields.
//
// HTTP: PUT /api/me/profile
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req updateProfileRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	profile, err := h.identity.UpdateProfile(r.Context(), uid, req.FullName, req.AvatarURL, req.Bio)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type changeUsernameRequest struct {
	Username string `json:"username" validate:"required,min=1,max=30"`
}

// HandleChangeUsername renames the caller, subject to the 7-day
// cooldown. A cooldown rejection comes back 429 with the remaining wait.
//
// HTTP: PUT /api/me/username
func (h *ProfileHandler) HandleChangeUsername(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req changeUsernameRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	profile, err := h.identity.ChangeUsername(r.Context(), uid, req.Username, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleTouchActivity records a session heartbeat. Always 204: the write
// is fire-and-forget and failures are swallowed server-side.
//
// HTTP: POST /api/me/activity
func (h *ProfileHandler) HandleTouchActivity(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	h.identity.TouchActivity(r.Context(), uid)
	w.WriteHeader(http.StatusNoContent)
}

type deviceTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// HandleRegisterDeviceToken stores a push token for the caller's device.
// Same fire-and-forget contract as the activity heartbeat.
//
// HTTP: POST /api/me/device-tokens
func (h *ProfileHandler) HandleRegisterDeviceToken(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req deviceTokenRequest
	if !decodeValid(w, r, h.validate, &req) {
		return
	}

	h.identity.RegisterDeviceToken(r.Context(), uid, req.Token)
	w.WriteHeader(http.StatusNoContent)
}
