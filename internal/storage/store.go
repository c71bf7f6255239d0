package storage

import (
	"context"

	"gradesync/internal/match"
)

// Store persists scored documents.
type Store interface {
	ScoreStore
	Close() error
}

// ScoreStore defines operations for persisting per-document scores.
type ScoreStore interface {
	// SaveDocument upserts one document and replaces its exercise rows.
	SaveDocument(ctx context.Context, doc *match.Document) error

	// SaveSnapshot replaces the stored state with exactly docs.
	SaveSnapshot(ctx context.Context, docs []*match.Document) error

	// DeleteDocument removes a document and its exercise rows.
	DeleteDocument(ctx context.Context, path string) error

	// LoadDocuments returns every stored document ordered by owner and path.
	LoadDocuments(ctx context.Context) ([]DocumentRecord, error)

	// FindExercisesByDocument returns the exercise rows of one document in
	// pre-order.
	FindExercisesByDocument(ctx context.Context, path string) ([]ExerciseRecord, error)
}

// DocumentRecord is the stored summary of one document.
type DocumentRecord struct {
	Path               string
	Owner              string
	Total              float64 // NaN when a score did not parse
	UnmatchedExercises int
	UnmatchedComments  int
	InvalidScores      int
}

// ExerciseRecord is the stored score of one exercise in one document.
type ExerciseRecord struct {
	Path                 string
	ExerciseID           string
	Name                 string
	Position             int
	TotalPoints          float64
	AchievedAtomicPoints float64
	AchievedTotalPoints  float64
	Present              bool
	Graded               bool
}
