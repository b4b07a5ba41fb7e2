// Package service contains the business logic layer: validation, the
// multi-step write protocols, and the in-memory filtering/sorting that
// keeps the store free of composite-index requirements.
//
// Services accept plain data (ids, strings, numbers) and return models or
// typed apperror failures — no HTTP types cross this boundary. Each
// service takes its repository INTERFACES, so tests inject in-memory
// mocks and the sqlite package stays unimported here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/model"
	"github.com/sakif/askwall/internal/repository"
)

// UsernameCooldown is the minimum gap between successful username
// changes, measured from the LAST successful change.
const UsernameCooldown = 7 * 24 * time.Hour

const (
	MaxUsernameLength = 30
	MaxFullNameLength = 80
	MaxBioLength      = 200
)

// IdentityService owns profile records and the username-uniqueness
// invariant.
type IdentityService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

func NewIdentityService(users repository.UserRepository, logger *slog.Logger) *IdentityService {
	return &IdentityService{users: users, logger: logger}
}

// IsUsernameTaken reports whether the normalized form of name is claimed.
func (s *IdentityService) IsUsernameTaken(ctx context.Context, name string) (bool, error) {
	normalized := model.NormalizeUsername(name)
	if normalized == "" {
		return false, apperror.ValidationFailed("username", "username is required")
	}
	return s.users.UsernameExists(ctx, normalized)
}

// CreateProfile registers a new profile at signup.
//
// THE CLAIM-FIRST PROTOCOL:
// The normalized username is claimed in the index collection BEFORE the
// profile document is written. The claim is a conditional insert, so two
// concurrent signups picking the same name cannot both succeed — there is
// no check-then-insert window to race through. If the profile write then
// fails, the claim is rolled back so the name isn't stranded.
func (s *IdentityService) CreateProfile(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	if err := validateUsername(p.Username); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.UID) == "" {
		return nil, apperror.ValidationFailed("uid", "uid is required")
	}

	normalized := model.NormalizeUsername(p.Username)
	now := time.Now().UnixMilli()
	p.CreatedAt = now
	p.LastActive = now
	p.LastUsernameChange = 0

	if err := s.users.ClaimUsername(ctx, normalized, p.UID); err != nil {
		return nil, err
	}

	if err := s.users.InsertProfile(ctx, p); err != nil {
		// Roll back the claim; a failed release only strands the name
		// until manual cleanup, so log it loudly.
		if relErr := s.users.ReleaseUsername(ctx, normalized); relErr != nil {
			s.logger.Error("failed to release username after profile insert failure",
				slog.String("username", normalized),
				slog.String("error", relErr.Error()),
			)
		}
		return nil, err
	}

	s.logger.Info("profile created",
		slog.String("uid", p.UID),
		slog.String("username", p.Username),
	)
	return p, nil
}

// GetProfile looks up a profile by uid.
func (s *IdentityService) GetProfile(ctx context.Context, uid string) (*model.UserProfile, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, apperror.ValidationFailed("uid", "uid is required")
	}
	return s.users.GetByUID(ctx, uid)
}

// GetProfileByUsername looks up a profile via the username index.
func (s *IdentityService) GetProfileByUsername(ctx context.Context, name string) (*model.UserProfile, error) {
	normalized := model.NormalizeUsername(name)
	if normalized == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	return s.users.GetByUsername(ctx, normalized)
}

// ChangeUsername renames a profile, subject to the 7-day cooldown.
//
// now is a parameter, not time.Now(), so the cooldown arithmetic is
// testable without a clock; callers outside tests pass time.Now().
//
// Order of operations: claim the new name, rewrite the profile document
// (username + lastUsernameChange together, one atomic write), then
// release the old name. A failure after the claim rolls the claim back;
// a failure releasing the OLD name leaves it harmlessly claimed by the
// same uid and is only logged.
func (s *IdentityService) ChangeUsername(ctx context.Context, uid, newName string, now time.Time) (*model.UserProfile, error) {
	if err := validateUsername(newName); err != nil {
		return nil, err
	}

	u, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if remaining := CooldownRemaining(now.UnixMilli(), u.LastUsernameChange); remaining > 0 {
		return nil, apperror.Cooldown("username change", remaining)
	}

	oldNorm := model.NormalizeUsername(u.Username)
	newNorm := model.NormalizeUsername(newName)
	if oldNorm == newNorm {
		// Same uniqueness key: only the display casing changes, no claim
		// needed and no cooldown consumed.
		u.Username = strings.TrimSpace(newName)
		if err := s.users.UpdateProfile(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	}

	if err := s.users.ClaimUsername(ctx, newNorm, uid); err != nil {
		return nil, err
	}

	u.Username = strings.TrimSpace(newName)
	u.LastUsernameChange = now.UnixMilli()
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		if relErr := s.users.ReleaseUsername(ctx, newNorm); relErr != nil {
			s.logger.Error("failed to release username after rename failure",
				slog.String("username", newNorm),
				slog.String("error", relErr.Error()),
			)
		}
		return nil, err
	}

	if err := s.users.ReleaseUsername(ctx, oldNorm); err != nil {
		s.logger.Error("failed to release old username after rename",
			slog.String("username", oldNorm),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("username changed",
		slog.String("uid", uid),
		slog.String("username", u.Username),
	)
	return u, nil
}

// UpdateProfile applies owner edits to the mutable display fields. It
// never touches username, email, or createdAt, and published answers keep
// their author snapshots as they were.
func (s *IdentityService) UpdateProfile(ctx context.Context, uid, fullName, avatarURL, bio string) (*model.UserProfile, error) {
	fullName = strings.TrimSpace(fullName)
	bio = strings.TrimSpace(bio)
	if len(fullName) > MaxFullNameLength {
		return nil, apperror.ValidationFailed("fullName",
			fmt.Sprintf("full name must be %d characters or less", MaxFullNameLength))
	}
	if len(bio) > MaxBioLength {
		return nil, apperror.ValidationFailed("bio",
			fmt.Sprintf("bio must be %d characters or less", MaxBioLength))
	}

	u, err := s.users.GetByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	u.FullName = fullName
	u.AvatarURL = strings.TrimSpace(avatarURL)
	u.Bio = bio
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// TouchActivity records session activity. Fire-and-forget: activity
// tracking is advisory, so every failure is swallowed after logging —
// callers get no error to handle.
func (s *IdentityService) TouchActivity(ctx context.Context, uid string) {
	if err := s.users.TouchActivity(ctx, uid, time.Now().UnixMilli()); err != nil {
		s.logger.Warn("failed to touch activity",
			slog.String("uid", uid),
			slog.String("error", err.Error()),
		)
	}
}

// RegisterDeviceToken records an opaque push token for the user. Best
// effort, same contract as TouchActivity.
func (s *IdentityService) RegisterDeviceToken(ctx context.Context, uid, token string) {
	if strings.TrimSpace(token) == "" {
		return
	}
	if err := s.users.AddDeviceToken(ctx, uid, token); err != nil {
		s.logger.Warn("failed to register device token",
			slog.String("uid", uid),
			slog.String("error", err.Error()),
		)
	}
}

// CooldownRemaining computes how long a profile must still wait before
// its next username change. Pure function of two timestamps (epoch ms):
// no store, no clock, trivially unit-testable. A profile that never
// changed its name (lastChange == 0) has no cooldown.
func CooldownRemaining(nowMs, lastChangeMs int64) time.Duration {
	if lastChangeMs == 0 {
		return 0
	}
	elapsed := time.Duration(nowMs-lastChangeMs) * time.Millisecond
	if elapsed >= UsernameCooldown {
		return 0
	}
	return UsernameCooldown - elapsed
}

func validateUsername(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return apperror.ValidationFailed("username", "username is required")
	}
	if len(trimmed) > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	return nil
}
