package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"gradesync/internal/match"

	_ "github.com/mattn/go-sqlite3"
)

var _ Store = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			path TEXT PRIMARY KEY,
			owner TEXT,
			total REAL,
			unmatched_exercises INTEGER,
			unmatched_comments INTEGER,
			invalid_scores INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS exercises (
			path TEXT,
			exercise_id TEXT,
			name TEXT,
			position INTEGER,
			total_points REAL,
			achieved_atomic_points REAL,
			achieved_total_points REAL,
			present INTEGER,
			graded INTEGER,
			PRIMARY KEY (path, exercise_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// nullable stores NaN as NULL.
func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func writeDocument(ctx context.Context, ex execer, doc *match.Document) error {
	if _, err := ex.ExecContext(ctx, `
		INSERT INTO documents (path, owner, total, unmatched_exercises, unmatched_comments, invalid_scores)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			owner=excluded.owner,
			total=excluded.total,
			unmatched_exercises=excluded.unmatched_exercises,
			unmatched_comments=excluded.unmatched_comments,
			invalid_scores=excluded.invalid_scores
	`, doc.Path, doc.Owner, nullable(doc.TotalPoints()),
		len(doc.UnmatchedExercises),
		len(doc.UnmatchedComments)+len(doc.UnmatchedPointsComments),
		len(doc.InvalidScores())); err != nil {
		return err
	}

	if _, err := ex.ExecContext(ctx, "DELETE FROM exercises WHERE path = ?", doc.Path); err != nil {
		return err
	}
	for i, e := range doc.Flat() {
		if _, err := ex.ExecContext(ctx, `
			INSERT INTO exercises (path, exercise_id, name, position, total_points, achieved_atomic_points, achieved_total_points, present, graded)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, doc.Path, e.ID, e.Name, i, nullable(e.TotalPoints),
			nullable(e.AchievedAtomicPoints), nullable(e.AchievedTotalPoints),
			match.IsPresent(e), match.IsGraded(e)); err != nil {
			return err
		}
	}
	return nil
}

// --- ScoreStore Implementation ---

func (s *SQLiteStore) SaveDocument(ctx context.Context, doc *match.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := writeDocument(ctx, tx, doc); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, docs []*match.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Snapshot sync: rows of documents that are gone must not survive.
	for _, q := range []string{"DELETE FROM exercises", "DELETE FROM documents"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return err
		}
	}

	for _, doc := range docs {
		if err := writeDocument(ctx, tx, doc); err != nil {
			return fmt.Errorf("failed to save %s: %w", doc.Path, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, path string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{"DELETE FROM exercises WHERE path = ?", "DELETE FROM documents WHERE path = ?"} {
		if _, err := tx.ExecContext(ctx, q, path); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadDocuments(ctx context.Context) ([]DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, owner, total, unmatched_exercises, unmatched_comments, invalid_scores
		FROM documents ORDER BY owner, path`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentRecord
	for rows.Next() {
		var d DocumentRecord
		var total sql.NullFloat64
		if err := rows.Scan(&d.Path, &d.Owner, &total, &d.UnmatchedExercises, &d.UnmatchedComments, &d.InvalidScores); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		d.Total = fromNullable(total)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) FindExercisesByDocument(ctx context.Context, path string) ([]ExerciseRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, exercise_id, name, position, total_points, achieved_atomic_points, achieved_total_points, present, graded
		FROM exercises WHERE path = ? ORDER BY position`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExerciseRecord
	for rows.Next() {
		var e ExerciseRecord
		var total, atomic, achieved sql.NullFloat64
		if err := rows.Scan(&e.Path, &e.ExerciseID, &e.Name, &e.Position, &total, &atomic, &achieved, &e.Present, &e.Graded); err != nil {
			return nil, err
		}
		e.TotalPoints = fromNullable(total)
		e.AchievedAtomicPoints = fromNullable(atomic)
		e.AchievedTotalPoints = fromNullable(achieved)
		out = append(out, e)
	}
	return out, rows.Err()
}
