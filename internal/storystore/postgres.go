package storystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/xid"

	"github.com/readalong/readalong/pkg/story"
)

// Schema is the SQL DDL for the stories and learners tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS stories (
    id               TEXT PRIMARY KEY,
    owner_id         TEXT NOT NULL,
    title            TEXT NOT NULL,
    body             TEXT NOT NULL,
    illustration_url TEXT NOT NULL DEFAULT '',
    quiz             JSONB NOT NULL DEFAULT '[]',
    report           TEXT NOT NULL DEFAULT '',
    quiz_result      JSONB,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_stories_owner ON stories(owner_id);

CREATE TABLE IF NOT EXISTS learners (
    id      TEXT PRIMARY KEY,
    credits INT NOT NULL DEFAULT 0 CHECK (credits >= 0)
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. The quiz and
// quiz-result sub-documents are serialised as JSONB.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] over the given connection or
// pool. The caller is responsible for calling [PostgresStore.Migrate] before
// issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the tables and indexes if they
// do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("storystore: migrate: %w", err)
	}
	return nil
}

// CreateStory implements [Store.CreateStory].
func (s *PostgresStore) CreateStory(ctx context.Context, st *story.Story) error {
	if err := st.Validate(); err != nil {
		return err
	}
	quizJSON, err := json.Marshal(emptyQuiz(st.Quiz))
	if err != nil {
		return fmt.Errorf("storystore: marshal quiz: %w", err)
	}

	const query = `
		INSERT INTO stories (id, owner_id, title, body, illustration_url, quiz)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`

	err = s.db.QueryRow(ctx, query,
		st.ID.String(), st.OwnerID, st.Title, st.Text, st.IllustrationURL, quizJSON,
	).Scan(&st.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("storystore: story with id %q already exists", st.ID)
		}
		return fmt.Errorf("storystore: create: %w", err)
	}
	return nil
}

// GetStory implements [Store.GetStory].
func (s *PostgresStore) GetStory(ctx context.Context, id string) (*story.Story, error) {
	const query = `
		SELECT id, owner_id, title, body, illustration_url, quiz, created_at
		FROM stories
		WHERE id = $1`

	st, err := scanStory(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("storystore: get %q: %w", id, err)
	}
	return st, nil
}

// ListStories implements [Store.ListStories].
func (s *PostgresStore) ListStories(ctx context.Context, ownerID string) ([]story.Story, error) {
	const query = `
		SELECT id, owner_id, title, body, illustration_url, quiz, created_at
		FROM stories
		WHERE owner_id = $1
		ORDER BY id DESC`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("storystore: list: %w", err)
	}
	defer rows.Close()

	var stories []story.Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, fmt.Errorf("storystore: list scan: %w", err)
		}
		stories = append(stories, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storystore: list: %w", err)
	}
	return stories, nil
}

// DeleteStory implements [Store.DeleteStory].
func (s *PostgresStore) DeleteStory(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("storystore: delete %q: %w", id, err)
	}
	return nil
}

// SaveReport implements [Store.SaveReport].
func (s *PostgresStore) SaveReport(ctx context.Context, storyID, report string) error {
	tag, err := s.db.Exec(ctx, `UPDATE stories SET report = $2 WHERE id = $1`, storyID, report)
	if err != nil {
		return fmt.Errorf("storystore: save report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storystore: story with id %q not found", storyID)
	}
	return nil
}

// GetReport implements [Store.GetReport].
func (s *PostgresStore) GetReport(ctx context.Context, storyID string) (string, error) {
	var report string
	err := s.db.QueryRow(ctx, `SELECT report FROM stories WHERE id = $1`, storyID).Scan(&report)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("storystore: get report: %w", err)
	}
	return report, nil
}

// SaveQuizResult implements [Store.SaveQuizResult].
func (s *PostgresStore) SaveQuizResult(ctx context.Context, storyID string, res QuizResult) error {
	resJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("storystore: marshal quiz result: %w", err)
	}
	tag, err := s.db.Exec(ctx, `UPDATE stories SET quiz_result = $2 WHERE id = $1`, storyID, resJSON)
	if err != nil {
		return fmt.Errorf("storystore: save quiz result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storystore: story with id %q not found", storyID)
	}
	return nil
}

// GetQuizResult implements [Store.GetQuizResult].
func (s *PostgresStore) GetQuizResult(ctx context.Context, storyID string) (*QuizResult, error) {
	var resJSON []byte
	err := s.db.QueryRow(ctx, `SELECT quiz_result FROM stories WHERE id = $1`, storyID).Scan(&resJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("storystore: get quiz result: %w", err)
	}
	if resJSON == nil {
		return nil, nil
	}
	var res QuizResult
	if err := json.Unmarshal(resJSON, &res); err != nil {
		return nil, fmt.Errorf("storystore: unmarshal quiz result: %w", err)
	}
	return &res, nil
}

// EnsureLearner implements [Store.EnsureLearner].
func (s *PostgresStore) EnsureLearner(ctx context.Context, learnerID string, initialCredits int) error {
	const query = `
		INSERT INTO learners (id, credits) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`
	if _, err := s.db.Exec(ctx, query, learnerID, initialCredits); err != nil {
		return fmt.Errorf("storystore: ensure learner: %w", err)
	}
	return nil
}

// Credits implements [Store.Credits].
func (s *PostgresStore) Credits(ctx context.Context, learnerID string) (int, error) {
	var credits int
	err := s.db.QueryRow(ctx, `SELECT credits FROM learners WHERE id = $1`, learnerID).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("storystore: credits: %w", err)
	}
	return credits, nil
}

// DebitCredit implements [Store.DebitCredit]. The decrement and the balance
// check happen in one statement so concurrent debits cannot overspend.
func (s *PostgresStore) DebitCredit(ctx context.Context, learnerID string) (int, error) {
	const query = `
		UPDATE learners SET credits = credits - 1
		WHERE id = $1 AND credits > 0
		RETURNING credits`

	var credits int
	err := s.db.QueryRow(ctx, query, learnerID).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoCredits
		}
		return 0, fmt.Errorf("storystore: debit: %w", err)
	}
	return credits, nil
}

// GrantCredits implements [Store.GrantCredits].
func (s *PostgresStore) GrantCredits(ctx context.Context, learnerID string, n int) (int, error) {
	const query = `
		UPDATE learners SET credits = credits + $2
		WHERE id = $1
		RETURNING credits`

	var credits int
	err := s.db.QueryRow(ctx, query, learnerID, n).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("storystore: learner %q not found", learnerID)
		}
		return 0, fmt.Errorf("storystore: grant: %w", err)
	}
	return credits, nil
}

// scanStory reads one stories row. The row must carry the standard column
// order used by every SELECT in this file.
func scanStory(row pgx.Row) (*story.Story, error) {
	var (
		st       story.Story
		idStr    string
		quizJSON []byte
	)
	err := row.Scan(&idStr, &st.OwnerID, &st.Title, &st.Text,
		&st.IllustrationURL, &quizJSON, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := xid.FromString(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse story id %q: %w", idStr, err)
	}
	st.ID = id
	if err := json.Unmarshal(quizJSON, &st.Quiz); err != nil {
		return nil, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return &st, nil
}

// emptyQuiz returns q if non-nil, otherwise an empty non-nil slice so JSON
// marshalling produces "[]" instead of "null".
func emptyQuiz(q []story.QuizQuestion) []story.QuizQuestion {
	if q == nil {
		return []story.QuizQuestion{}
	}
	return q
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
