package crawler

import (
	"io/fs"
	"path/filepath"
	"sort"

	"gradesync/internal/match"
	"gradesync/internal/tracker"

	"github.com/rs/zerolog"
)

// Crawler scans a project directory for exam documents.
type Crawler struct {
	tracker *tracker.Tracker
	ignored []string
	filter  *Filter
	logger  zerolog.Logger
}

// NewCrawler creates a crawler that parses documents through tr. Directories
// named in ignored are skipped, and so are files the filter rejects. A nil
// filter admits every file.
func NewCrawler(tr *tracker.Tracker, ignored []string, filter *Filter, logger zerolog.Logger) *Crawler {
	return &Crawler{
		tracker: tr,
		ignored: ignored,
		filter:  filter,
		logger:  logger.With().Str("component", "crawler").Logger(),
	}
}

// ScanProject walks the root directory and hands every in-scope document to
// onDoc. Documents that fail to parse are logged and skipped.
func (c *Crawler) ScanProject(root string, onDoc func(*match.Document)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, ign := range c.ignored {
				if d.Name() == ign {
					return filepath.SkipDir
				}
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if !c.filter.Allow(root, rel) {
			return nil
		}

		doc, err := c.tracker.Handle(rel)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", rel).Msg("skipping document")
			return nil
		}
		if doc != nil {
			onDoc(doc)
		}
		return nil
	})
}

// Collect scans root and groups the documents by owner, each group sorted by
// path. The solution owner is left out unless includeSolution is set.
func (c *Crawler) Collect(root string, includeSolution bool) (map[string][]*match.Document, error) {
	grouped := make(map[string][]*match.Document)
	err := c.ScanProject(root, func(doc *match.Document) {
		if doc.Owner == tracker.SolutionID && !includeSolution {
			return
		}
		grouped[doc.Owner] = append(grouped[doc.Owner], doc)
	})
	if err != nil {
		return nil, err
	}
	for _, docs := range grouped {
		sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	}
	c.logger.Debug().Int("owners", len(grouped)).Msg("scan finished")
	return grouped, nil
}
