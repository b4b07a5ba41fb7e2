package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/model"
)

func newTestIdentity(t *testing.T) (*IdentityService, *mockUserRepo) {
	t.Helper()
	repo := newMockUserRepo()
	return NewIdentityService(repo, testLogger()), repo
}

// =========================================================================
// PROFILE CREATION
// =========================================================================

func TestCreateProfile(t *testing.T) {
	svc, _ := newTestIdentity(t)

	u := seedProfile(t, svc, "u1", "Jane")

	if u.CreatedAt == 0 || u.LastActive == 0 {
		t.Error("CreateProfile() did not stamp createdAt/lastActive")
	}
	if u.LastUsernameChange != 0 {
		t.Error("new profile should have no username-change history")
	}

	taken, err := svc.IsUsernameTaken(context.Background(), "JANE")
	if err != nil {
		t.Fatalf("IsUsernameTaken() error = %v", err)
	}
	if !taken {
		t.Error("IsUsernameTaken should be case-insensitive")
	}
}

func TestCreateProfileUsernameConflict(t *testing.T) {
	svc, _ := newTestIdentity(t)

	seedProfile(t, svc, "u1", "jane")

	_, err := svc.CreateProfile(context.Background(), &model.UserProfile{
		UID:      "u2",
		Username: " Jane ", // different casing and padding, same normalized key
	})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateProfile() error = %v, want ErrConflict", err)
	}
}

func TestCreateProfileRollsBackClaimOnInsertFailure(t *testing.T) {
	svc, repo := newTestIdentity(t)
	repo.failInsert = true

	_, err := svc.CreateProfile(context.Background(), &model.UserProfile{
		UID: "u1", Username: "jane",
	})
	if err == nil {
		t.Fatal("CreateProfile() should fail when the profile insert fails")
	}

	// The claim must have been released so the name is usable again.
	if _, claimed := repo.names["jane"]; claimed {
		t.Error("username claim was not rolled back")
	}
}

func TestCreateProfileValidation(t *testing.T) {
	svc, _ := newTestIdentity(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		profile model.UserProfile
	}{
		{"empty username", model.UserProfile{UID: "u1", Username: "   "}},
		{"username too long", model.UserProfile{UID: "u1", Username: strings.Repeat("x", MaxUsernameLength+1)}},
		{"empty uid", model.UserProfile{UID: " ", Username: "jane"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateProfile(ctx, &tt.profile); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

// =========================================================================
// USERNAME CHANGE & COOLDOWN
// =========================================================================

func TestChangeUsername(t *testing.T) {
	svc, repo := newTestIdentity(t)
	ctx := context.Background()

	seedProfile(t, svc, "u1", "jane")

	now := time.Now()
	u, err := svc.ChangeUsername(ctx, "u1", "janet", now)
	if err != nil {
		t.Fatalf("ChangeUsername() error = %v", err)
	}
	if u.Username != "janet" {
		t.Errorf("Username = %q, want %q", u.Username, "janet")
	}
	if u.LastUsernameChange != now.UnixMilli() {
		t.Error("LastUsernameChange was not stamped")
	}

	// Old name released, new name claimed.
	if _, held := repo.names["jane"]; held {
		t.Error("old username was not released")
	}
	if repo.names["janet"] != "u1" {
		t.Error("new username was not claimed")
	}
}

func TestChangeUsernameCooldown(t *testing.T) {
	svc, _ := newTestIdentity(t)
	ctx := context.Background()

	seedProfile(t, svc, "u1", "jane")

	t0 := time.Now()
	if _, err := svc.ChangeUsername(ctx, "u1", "janet", t0); err != nil {
		t.Fatalf("first change error = %v", err)
	}

	// 6 days later: still inside the 7-day window, ~1 day remaining.
	_, err := svc.ChangeUsername(ctx, "u1", "june", t0.Add(6*24*time.Hour))
	if !errors.Is(err, apperror.ErrCooldown) {
		t.Fatalf("second change error = %v, want ErrCooldown", err)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatal("cooldown error should be an *AppError")
	}
	if got, want := appErr.Remaining, 24*time.Hour; got != want {
		t.Errorf("Remaining = %v, want %v", got, want)
	}

	// 8 days later: cooldown elapsed.
	if _, err := svc.ChangeUsername(ctx, "u1", "june", t0.Add(8*24*time.Hour)); err != nil {
		t.Errorf("change after cooldown error = %v", err)
	}
}

func TestChangeUsernameConflict(t *testing.T) {
	svc, _ := newTestIdentity(t)
	ctx := context.Background()

	seedProfile(t, svc, "u1", "jane")
	seedProfile(t, svc, "u2", "omar")

	_, err := svc.ChangeUsername(ctx, "u1", "Omar", time.Now())
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("ChangeUsername() error = %v, want ErrConflict", err)
	}
}

func TestChangeUsernameCaseOnlyDoesNotConsumeCooldown(t *testing.T) {
	svc, _ := newTestIdentity(t)
	ctx := context.Background()

	seedProfile(t, svc, "u1", "jane")

	u, err := svc.ChangeUsername(ctx, "u1", "JANE", time.Now())
	if err != nil {
		t.Fatalf("ChangeUsername() error = %v", err)
	}
	if u.Username != "JANE" {
		t.Errorf("Username = %q, want %q", u.Username, "JANE")
	}
	if u.LastUsernameChange != 0 {
		t.Error("a casing-only change must not start the cooldown")
	}
}

func TestCooldownRemaining(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		name       string
		nowOffset  time.Duration
		lastChange int64
		want       time.Duration
	}{
		{"never changed", 0, 0, 0},
		{"just changed", 0, base, UsernameCooldown},
		{"six days in", 6 * 24 * time.Hour, base, 24 * time.Hour},
		{"exactly elapsed", 7 * 24 * time.Hour, base, 0},
		{"long elapsed", 30 * 24 * time.Hour, base, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := base + tt.nowOffset.Milliseconds()
			if got := CooldownRemaining(now, tt.lastChange); got != tt.want {
				t.Errorf("CooldownRemaining() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =========================================================================
// BEST-EFFORT OPERATIONS
// =========================================================================

func TestTouchActivitySwallowsFailures(t *testing.T) {
	svc, repo := newTestIdentity(t)
	ctx := context.Background()

	seedProfile(t, svc, "u1", "jane")

	repo.failTouch = true
	// Must not panic, must not return anything to handle.
	svc.TouchActivity(ctx, "u1")
	svc.TouchActivity(ctx, "ghost")
}

func TestRegisterDeviceToken(t *testing.T) {
	svc, repo := newTestIdentity(t)
	ctx := context.Background()

	seedProfile(t, svc, "u1", "jane")

	svc.RegisterDeviceToken(ctx, "u1", "tok-a")
	svc.RegisterDeviceToken(ctx, "u1", "tok-a")
	svc.RegisterDeviceToken(ctx, "u1", "  ")      // ignored
	svc.RegisterDeviceToken(ctx, "ghost", "tok") // swallowed

	if got := len(repo.users["u1"].DeviceTokens); got != 1 {
		t.Errorf("DeviceTokens count = %d, want 1", got)
	}
}

// =========================================================================
// PROFILE EDITS
// =========================================================================

func TestUpdateProfileLeavesIdentityFieldsAlone(t *testing.T) {
	svc, _ := newTestIdentity(t)
	ctx := context.Background()

	created := seedProfile(t, svc, "u1", "jane")

	u, err := svc.UpdateProfile(ctx, "u1", "New Name", "https://cdn/img.png", "new bio")
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if u.FullName != "New Name" || u.Bio != "new bio" {
		t.Errorf("edit not applied: %+v", u)
	}
	if u.Username != created.Username || u.CreatedAt != created.CreatedAt {
		t.Error("UpdateProfile must not touch username or createdAt")
	}
}
