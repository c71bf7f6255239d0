package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gradesync/internal/config"
	"gradesync/internal/crawler"
	"gradesync/internal/tracker"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// IncrementalSync keeps a tracker in step with the files under the project
// root. Writes become change notifications, removals untrack documents and
// edits to the configuration file reconfigure the tracker. Files rejected by
// the filter are not reported to the tracker.
type IncrementalSync struct {
	// Removed is called with the relative path of every removed file.
	Removed func(path string)
	// Reloaded is called after a new configuration was applied.
	Reloaded func(cfg *config.Config)

	configPath string
	root       string
	ignored    map[string]bool
	filter     *crawler.Filter
	tracker    *tracker.Tracker
	watcher    *fsnotify.Watcher
	logger     zerolog.Logger
}

func NewIncrementalSync(configPath string, cfg *config.Config, tr *tracker.Tracker, filter *crawler.Filter, logger zerolog.Logger) (*IncrementalSync, error) {
	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil {
		return nil, err
	}
	cfgPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	s := &IncrementalSync{
		configPath: cfgPath,
		root:       root,
		filter:     filter,
		tracker:    tr,
		watcher:    watcher,
		logger:     logger.With().Str("component", "watch").Logger(),
	}
	s.setIgnored(cfg.ExamFiles.Ignore)

	if err := s.addTree(root); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(cfgPath)); err != nil {
		watcher.Close()
		return nil, err
	}
	return s, nil
}

func (s *IncrementalSync) setIgnored(names []string) {
	s.ignored = make(map[string]bool, len(names))
	for _, n := range names {
		s.ignored[n] = true
	}
}

// addTree watches dir and every directory below it that is not ignored.
func (s *IncrementalSync) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && s.ignored[d.Name()] {
			return filepath.SkipDir
		}
		return s.watcher.Add(path)
	})
}

// Run processes filesystem events until ctx is done or the watcher closes.
func (s *IncrementalSync) Run(ctx context.Context) error {
	s.logger.Info().Str("root", s.root).Msg("watching for changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.handle(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

func (s *IncrementalSync) handle(event fsnotify.Event) {
	name, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	if name == s.configPath {
		if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
			s.reload()
		}
		return
	}

	rel, err := filepath.Rel(s.root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if !s.ignored[info.Name()] {
				if err := s.addTree(name); err != nil {
					s.logger.Warn().Err(err).Str("path", rel).Msg("failed to watch directory")
				}
			}
			return
		}
		if s.filter.Allow(s.root, rel) {
			s.tracker.NotifyChange(rel)
		}
	case event.Has(fsnotify.Write):
		if s.filter.Allow(s.root, rel) {
			s.tracker.NotifyChange(rel)
		}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !s.filter.Allow(s.root, rel) {
			return
		}
		s.tracker.Close(rel)
		if s.Removed != nil {
			s.Removed(tracker.NormalizePath(rel))
		}
	}
}

func (s *IncrementalSync) reload() {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		s.logger.Error().Err(err).Msg("keeping previous configuration")
		return
	}
	// The watched tree is fixed for the lifetime of the sync.
	root, err := filepath.Abs(cfg.Project.Root)
	if err != nil || root != s.root {
		s.logger.Error().Str("root", cfg.Project.Root).Msg("project root cannot change while watching, keeping previous configuration")
		return
	}
	filter := s.filter
	if filter != nil {
		if filter, err = filter.WithGlob(cfg.ExamFiles.GlobPattern); err != nil {
			s.logger.Error().Err(err).Msg("keeping previous configuration")
			return
		}
	}
	if err := s.tracker.Reconfigure(cfg); err != nil {
		s.logger.Error().Err(err).Msg("keeping previous configuration")
		return
	}
	s.filter = filter
	s.setIgnored(cfg.ExamFiles.Ignore)
	if s.Reloaded != nil {
		s.Reloaded(cfg)
	}
}

// Close stops watching.
func (s *IncrementalSync) Close() error {
	return s.watcher.Close()
}
