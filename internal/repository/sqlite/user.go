package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/model"
	"github.com/sakif/askwall/internal/repository"
)

// Compile-time check that *DB satisfies the interface.
var _ repository.UserRepository = (*DB)(nil)

// InsertProfile stores a new profile document keyed by uid.
//
// The insert is conditional (ON CONFLICT DO NOTHING + RowsAffected) so a
// duplicate uid is reported as a conflict instead of silently clobbering
// an existing profile. Uniqueness of the USERNAME is not this method's
// job — the caller must have claimed it via ClaimUsername first.
func (db *DB) InsertProfile(ctx context.Context, u *model.UserProfile) error {
	if u.DeviceTokens == nil {
		// json_each / json_set '[#]' need an array to exist in the doc.
		u.DeviceTokens = []string{}
	}
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("sqlite: encoding profile %s: %w", u.UID, err)
	}

	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (uid, doc) VALUES (?, ?)
		 ON CONFLICT(uid) DO NOTHING`,
		u.UID, string(doc),
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting profile %s: %w", u.UID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("profile", u.UID)
	}
	return nil
}

// GetByUID is a point lookup of the profile document.
func (db *DB) GetByUID(ctx context.Context, uid string) (*model.UserProfile, error) {
	var doc string
	err := db.conn.QueryRowContext(ctx,
		`SELECT doc FROM users WHERE uid = ?`, uid,
	).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("profile", uid)
		}
		return nil, fmt.Errorf("sqlite: getting profile %s: %w", uid, err)
	}

	var u model.UserProfile
	if err := json.Unmarshal([]byte(doc), &u); err != nil {
		return nil, fmt.Errorf("sqlite: decoding profile %s: %w", uid, err)
	}
	return &u, nil
}

// GetByUsername resolves a normalized name through the index collection:
// one point lookup for the claim, one for the profile. Two lookups, not a
// join — the store contract only offers point reads.
func (db *DB) GetByUsername(ctx context.Context, normalized string) (*model.UserProfile, error) {
	var uid string
	err := db.conn.QueryRowContext(ctx,
		`SELECT uid FROM usernames WHERE name = ?`, normalized,
	).Scan(&uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("username", normalized)
		}
		return nil, fmt.Errorf("sqlite: looking up username %s: %w", normalized, err)
	}
	return db.GetByUID(ctx, uid)
}

// UsernameExists checks the index collection for a claim on the name.
func (db *DB) UsernameExists(ctx context.Context, normalized string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM usernames WHERE name = ?)`, normalized,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking username %s: %w", normalized, err)
	}
	return exists, nil
}

// ClaimUsername conditionally inserts an index entry for the name.
//
// This is the whole uniqueness story: the PRIMARY KEY on usernames.name
// means that of any number of concurrent claimants, exactly one INSERT
// lands and the rest observe RowsAffected == 0. No check-then-insert
// window exists because the check IS the insert.
func (db *DB) ClaimUsername(ctx context.Context, normalized, uid string) error {
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO usernames (name, uid) VALUES (?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		normalized, uid,
	)
	if err != nil {
		return fmt.Errorf("sqlite: claiming username %s: %w", normalized, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.Conflict("username", normalized)
	}
	return nil
}

// ReleaseUsername deletes an index entry. Releasing an unclaimed name is
// not an error — the caller may be rolling back a claim that never stuck.
func (db *DB) ReleaseUsername(ctx context.Context, normalized string) error {
	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM usernames WHERE name = ?`, normalized,
	); err != nil {
		return fmt.Errorf("sqlite: releasing username %s: %w", normalized, err)
	}
	return nil
}

// UpdateProfile rewrites the whole profile document in one statement.
func (db *DB) UpdateProfile(ctx context.Context, u *model.UserProfile) error {
	if u.DeviceTokens == nil {
		u.DeviceTokens = []string{}
	}
	doc, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("sqlite: encoding profile %s: %w", u.UID, err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET doc = ? WHERE uid = ?`,
		string(doc), u.UID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile %s: %w", u.UID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("profile", u.UID)
	}
	return nil
}

// TouchActivity sets only lastActive inside the document — a targeted
// json_set rather than a read-modify-write of the whole profile, so it
// can never clobber a concurrent profile edit.
func (db *DB) TouchActivity(ctx context.Context, uid string, at int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET doc = json_set(doc, '$.lastActive', ?) WHERE uid = ?`,
		at, uid,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching activity for %s: %w", uid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("profile", uid)
	}
	return nil
}

// AddDeviceToken appends a push token to the document's deviceTokens
// array, guarded so an already-registered token is a no-op. Append and
// membership test happen in one statement — set semantics without a
// read-modify-write.
func (db *DB) AddDeviceToken(ctx context.Context, uid, token string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET doc = json_set(doc, '$.deviceTokens[#]', ?2)
		 WHERE uid = ?1
		   AND NOT EXISTS (
		       SELECT 1 FROM json_each(doc, '$.deviceTokens') WHERE value = ?2
		   )`,
		uid, token,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding device token for %s: %w", uid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		// Either the token was already registered (fine) or the profile
		// doesn't exist (report it).
		var exists bool
		if err := db.conn.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE uid = ?)`, uid,
		).Scan(&exists); err != nil {
			return fmt.Errorf("sqlite: checking profile %s: %w", uid, err)
		}
		if !exists {
			return apperror.NotFound("profile", uid)
		}
	}
	return nil
}

// ListProfiles returns every profile document. The analytics aggregator reduces
// these in memory instead of issuing store-side counts.
func (db *DB) ListProfiles(ctx context.Context) ([]model.UserProfile, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT doc FROM users`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing profiles: %w", err)
	}
	defer rows.Close()

	var users []model.UserProfile
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite: scanning profile row: %w", err)
		}
		var u model.UserProfile
		if err := json.Unmarshal([]byte(doc), &u); err != nil {
			return nil, fmt.Errorf("sqlite: decoding profile row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating profiles: %w", err)
	}
	return users, nil
}
