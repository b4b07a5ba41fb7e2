package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/askwall/internal/apperror"
	"github.com/sakif/askwall/internal/model"
	"github.com/sakif/askwall/internal/repository"
)

var _ repository.AnswerRepository = (*DB)(nil)

// InsertAnswer stores a new answer document. Id and server timestamp are
// stamped here; the caller provides everything else, including the
// denormalized question text and author snapshot taken at publish time.
func (db *DB) InsertAnswer(ctx context.Context, a *model.Answer) error {
	a.ID = xid.New().String()
	a.Timestamp = time.Now().UnixMilli()
	if a.LikedBy == nil {
		// json_each needs the array to exist in the stored doc.
		a.LikedBy = []string{}
	}

	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("sqlite: encoding answer: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO answers (id, user_id, doc) VALUES (?, ?, ?)`,
		a.ID, a.UserID, string(doc),
	); err != nil {
		return fmt.Errorf("sqlite: inserting answer: %w", err)
	}
	return nil
}

// GetAnswer is a point lookup of an answer document.
func (db *DB) GetAnswer(ctx context.Context, id string) (*model.Answer, error) {
	var doc string
	err := db.conn.QueryRowContext(ctx,
		`SELECT doc FROM answers WHERE id = ?`, id,
	).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("answer", id)
		}
		return nil, fmt.Errorf("sqlite: getting answer %s: %w", id, err)
	}

	var a model.Answer
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("sqlite: decoding answer %s: %w", id, err)
	}
	return &a, nil
}

// ListByUser fetches every answer authored by the user — equality
// predicate only, no ordering. The feed service sorts in memory.
func (db *DB) ListByUser(ctx context.Context, userID string) ([]model.Answer, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT doc FROM answers WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers for %s: %w", userID, err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// ListOrderedByTime is the indexed global-feed path: newest first, capped.
//
// The capability is OPTIONAL. When the store was opened without the
// ordered feed (see WithOrderedFeed) this returns
// repository.ErrOrderedUnsupported and the caller takes its documented
// fallback; a runtime failure of the query itself must be handled the
// same way by the caller.
func (db *DB) ListOrderedByTime(ctx context.Context, limit int) ([]model.Answer, error) {
	if !db.orderedFeed {
		return nil, repository.ErrOrderedUnsupported
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT doc FROM answers
		 ORDER BY json_extract(doc, '$.timestamp') DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ordered answer listing: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// ListUnordered is the fallback path: a bounded fetch with no ordering
// guarantee at all. Callers sort what they get.
func (db *DB) ListUnordered(ctx context.Context, limit int) ([]model.Answer, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT doc FROM answers LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: unordered answer listing: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

// AddLike appends the viewer to likedBy AND bumps the likes counter in
// ONE guarded statement.
//
// WHY ONE STATEMENT?
// A read-modify-write of the counter loses updates when two distinct
// viewers toggle concurrently: both read likes=5, both write likes=6.
// Here the delta is applied to the stored value inside the atomic
// document update, and the NOT EXISTS guard makes an already-present
// viewer a no-op — so likes == |likedBy| survives any interleaving.
func (db *DB) AddLike(ctx context.Context, answerID, viewerID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE answers
		 SET doc = json_set(doc,
		     '$.likes', json_extract(doc, '$.likes') + 1,
		     '$.likedBy[#]', ?2)
		 WHERE id = ?1
		   AND NOT EXISTS (
		       SELECT 1 FROM json_each(doc, '$.likedBy') WHERE value = ?2
		   )`,
		answerID, viewerID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: adding like on %s: %w", answerID, err)
	}
	return db.likeOutcome(ctx, res, answerID)
}

// RemoveLike is the inverse guarded update: drop the viewer's array entry
// and decrement the counter, only if the viewer is present.
func (db *DB) RemoveLike(ctx context.Context, answerID, viewerID string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE answers
		 SET doc = json_set(
		     json_remove(doc, '$.likedBy[' || (
		         SELECT key FROM json_each(doc, '$.likedBy')
		         WHERE value = ?2 LIMIT 1
		     ) || ']'),
		     '$.likes', json_extract(doc, '$.likes') - 1)
		 WHERE id = ?1
		   AND EXISTS (
		       SELECT 1 FROM json_each(doc, '$.likedBy') WHERE value = ?2
		   )`,
		answerID, viewerID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing like on %s: %w", answerID, err)
	}
	return db.likeOutcome(ctx, res, answerID)
}

// likeOutcome interprets a guarded like update: one row means the toggle
// applied, zero rows means either the guard held (no-op) or the answer is
// missing entirely.
func (db *DB) likeOutcome(ctx context.Context, res sql.Result, answerID string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists bool
	if err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM answers WHERE id = ?)`, answerID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("sqlite: checking answer %s: %w", answerID, err)
	}
	if !exists {
		return false, apperror.NotFound("answer", answerID)
	}
	return false, nil
}

// ListAnswers returns every answer document; used by the reconciler.
func (db *DB) ListAnswers(ctx context.Context) ([]model.Answer, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT doc FROM answers`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing answers: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

func scanAnswers(rows *sql.Rows) ([]model.Answer, error) {
	var answers []model.Answer
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite: scanning answer row: %w", err)
		}
		var a model.Answer
		if err := json.Unmarshal([]byte(doc), &a); err != nil {
			return nil, fmt.Errorf("sqlite: decoding answer row: %w", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating answers: %w", err)
	}
	return answers, nil
}
