package pipeline

import (
	"context"
	"fmt"
	"time"

	"gradesync/internal/config"
	"gradesync/internal/crawler"
	"gradesync/internal/match"
	"gradesync/internal/storage"
	"gradesync/internal/tracker"

	"github.com/rs/zerolog"
)

// Scan parses every exam document under the project root once.
type Scan struct {
	Config          *config.Config
	ConfigPath      string
	DBPath          string // empty disables persistence
	IncludeSolution bool
	Logger          zerolog.Logger
}

// ScanResult holds the grouped documents of a scan.
type ScanResult struct {
	Grouped   map[string][]*match.Document
	Solution  []*match.Document
	Documents int
}

// All returns every document in owner then path order, solution included.
func (r *ScanResult) All() []*match.Document {
	var out []*match.Document
	for _, owner := range match.Owners(r.Grouped) {
		out = append(out, r.Grouped[owner]...)
	}
	if _, ok := r.Grouped[tracker.SolutionID]; !ok {
		out = append(out, r.Solution...)
	}
	return out
}

func NewScan(cfg *config.Config, logger zerolog.Logger) *Scan {
	return &Scan{Config: cfg, Logger: logger}
}

func (s *Scan) Run(ctx context.Context) (*ScanResult, error) {
	start := time.Now()

	tr, err := s.trackerStage()
	if err != nil {
		return nil, err
	}
	defer tr.Stop()

	result, err := s.crawlStage(tr)
	if err != nil {
		return nil, err
	}
	fmt.Printf("📊 Scanned %d documents of %d owners in %v.\n", result.Documents, len(result.Grouped), time.Since(start).Round(time.Millisecond))

	s.invalidScoresStage(result)

	if s.DBPath != "" {
		if err := s.persistStage(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *Scan) trackerStage() (*tracker.Tracker, error) {
	src := tracker.FileSource{Root: s.Config.Project.Root}
	tr, err := tracker.New(s.Config, src, tracker.Hooks{}, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracker: %w", err)
	}
	return tr, nil
}

func (s *Scan) crawlStage(tr *tracker.Tracker) (*ScanResult, error) {
	filter, err := crawler.ProjectFilter(s.Config, s.ConfigPath, s.DBPath)
	if err != nil {
		return nil, err
	}
	c := crawler.NewCrawler(tr, s.Config.ExamFiles.Ignore, filter, s.Logger)
	grouped, err := c.Collect(s.Config.Project.Root, true)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.Config.Project.Root, err)
	}

	result := &ScanResult{Grouped: grouped}
	for _, docs := range grouped {
		result.Documents += len(docs)
	}
	if !s.IncludeSolution {
		result.Solution = grouped[tracker.SolutionID]
		delete(grouped, tracker.SolutionID)
	}
	return result, nil
}

func (s *Scan) invalidScoresStage(result *ScanResult) {
	invalid := 0
	for _, doc := range result.All() {
		for _, pc := range doc.InvalidScores() {
			s.Logger.Warn().
				Str("path", doc.Path).
				Int("line", pc.Range.Start.Line+1).
				Str("score", pc.PointsText.Text).
				Msg("score is not a number")
			invalid++
		}
	}
	if invalid > 0 {
		fmt.Printf("⚠️ %d points-comments with invalid scores.\n", invalid)
	}
}

func (s *Scan) persistStage(ctx context.Context, result *ScanResult) error {
	store, err := storage.NewSQLiteStore(s.DBPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	docs := result.All()
	if err := store.SaveSnapshot(ctx, docs); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	fmt.Printf("💾 Saved %d documents to %s.\n", len(docs), s.DBPath)
	return nil
}
