// Package model defines the data structures used throughout the application.
//
// All records are stored as JSON documents, so every struct here doubles as
// the wire format of its document. Timestamps are epoch milliseconds
// (int64) rather than time.Time — that is what the documents carry, and it
// keeps window/bucket arithmetic in the analytics code exact and
// timezone-free.
package model

import "strings"

// UserProfile represents a registered profile owner.
//
// WHY TWO NAME FIELDS?
// Username is what the user typed (display casing preserved). The
// uniqueness key is the NORMALIZED form — lowercase, trimmed — which is
// what the username index collection is keyed by. NormalizeUsername is the
// single place that rule lives.
//
// LastUsernameChange is zero until the first successful change; the
// username-change cooldown is measured from it, so a never-changed profile
// has no cooldown.
type UserProfile struct {
	UID                string   `json:"uid"`
	Username           string   `json:"username"`
	FullName           string   `json:"fullName"`
	AvatarURL          string   `json:"avatarUrl"`
	Bio                string   `json:"bio"`
	Email              string   `json:"email"`
	CreatedAt          int64    `json:"createdAt"`          // epoch ms, immutable
	LastActive         int64    `json:"lastActive"`         // epoch ms, touched on session start
	LastUsernameChange int64    `json:"lastUsernameChange"` // epoch ms, 0 = never changed
	Premium            bool     `json:"premiumStatus"`
	DeviceTokens       []string `json:"deviceTokens"` // opaque push tokens, set semantics; always an array in the doc
}

// NormalizeUsername returns the uniqueness key for a username:
// lowercased and trimmed. Two usernames are "the same" exactly when their
// normalized forms are equal.
func NormalizeUsername(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
