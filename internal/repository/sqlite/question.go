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

var _ repository.QuestionRepository = (*DB)(nil)

// InsertQuestion stores a new question document. The repository stamps the id and
// the server timestamp — callers never supply either.
func (db *DB) InsertQuestion(ctx context.Context, q *model.Question) error {
	q.ID = xid.New().String()
	q.Timestamp = time.Now().UnixMilli()

	doc, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("sqlite: encoding question: %w", err)
	}

	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO questions (id, receiver_id, doc) VALUES (?, ?, ?)`,
		q.ID, q.ReceiverID, string(doc),
	); err != nil {
		return fmt.Errorf("sqlite: inserting question: %w", err)
	}
	return nil
}

// GetQuestion is a point lookup of a question document.
func (db *DB) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	var doc string
	err := db.conn.QueryRowContext(ctx,
		`SELECT doc FROM questions WHERE id = ?`, id,
	).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("question", id)
		}
		return nil, fmt.Errorf("sqlite: getting question %s: %w", id, err)
	}

	var q model.Question
	if err := json.Unmarshal([]byte(doc), &q); err != nil {
		return nil, fmt.Errorf("sqlite: decoding question %s: %w", id, err)
	}
	return &q, nil
}

// ListByReceiver fetches every question addressed to the receiver — the
// single equality predicate the store offers. No answered filter and no
// ordering here: there is no (receiver_id, isAnswered) composite
// capability to lean on, so the service layer filters and sorts the
// returned set in memory.
func (db *DB) ListByReceiver(ctx context.Context, receiverID string) ([]model.Question, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT doc FROM questions WHERE receiver_id = ?`, receiverID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing questions for %s: %w", receiverID, err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("sqlite: scanning question row: %w", err)
		}
		var q model.Question
		if err := json.Unmarshal([]byte(doc), &q); err != nil {
			return nil, fmt.Errorf("sqlite: decoding question row: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating questions: %w", err)
	}
	return questions, nil
}

// MarkAnswered flips isAnswered false→true inside the document.
//
// The WHERE clause guards the transition: a question that is already
// answered matches zero rows and is left untouched, which is what makes
// the flag monotonic and this call safe to repeat (the reconciler repeats
// it freely). The returned bool reports whether THIS call did the flip.
func (db *DB) MarkAnswered(ctx context.Context, id string) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE questions
		 SET doc = json_set(doc, '$.isAnswered', json('true'))
		 WHERE id = ? AND json_extract(doc, '$.isAnswered') = 0`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: marking question %s answered: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// Zero rows: either already answered (fine) or no such question.
	var exists bool
	if err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM questions WHERE id = ?)`, id,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("sqlite: checking question %s: %w", id, err)
	}
	if !exists {
		return false, apperror.NotFound("question", id)
	}
	return false, nil
}
