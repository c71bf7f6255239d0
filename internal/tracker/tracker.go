// Package tracker keeps one matched snapshot per open document and refreshes
// it when the document content changes.
package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gradesync/internal/config"
	"gradesync/internal/extractor"
	"gradesync/internal/match"

	"github.com/rs/zerolog"
)

// Hooks are notified about snapshot lifecycle events. They run after the
// tracker lock is released, so they may call back into the tracker.
type Hooks struct {
	// Published receives every new snapshot. prev is nil on the first parse.
	Published func(prev, next *match.Document)
	// Released receives snapshots that were replaced or dropped.
	Released func(doc *match.Document)
	// Shown and Hidden follow visibility changes of tracked documents.
	Shown  func(doc *match.Document)
	Hidden func(doc *match.Document)
}

type trackedDoc struct {
	path    string
	owner   string
	hash    string
	doc     *match.Document
	lastErr error
}

// stages holds everything derived from a configuration.
type stages struct {
	extractor *extractor.Extractor
	matcher   *match.Matcher
	owners    *OwnerResolver
	delay     time.Duration
}

func newStages(cfg *config.Config) (*stages, error) {
	patterns, err := cfg.Patterns()
	if err != nil {
		return nil, err
	}
	ext, err := extractor.NewExtractor(patterns)
	if err != nil {
		return nil, err
	}
	owners, err := NewOwnerResolver(cfg.ExamFiles.Pattern, cfg.ExamFiles.SolutionFiles)
	if err != nil {
		return nil, err
	}
	return &stages{
		extractor: ext,
		matcher: match.NewMatcher(cfg.Schema(), match.Options{
			Policy:      cfg.Policy(),
			Patterns:    patterns,
			Placeholder: cfg.Comment.PointsPlaceHolder,
		}),
		owners: owners,
		delay:  cfg.Delay(),
	}, nil
}

// Tracker is the document cache. All work runs under one lock, so a parse
// always completes before the next one starts.
type Tracker struct {
	mu      sync.Mutex
	stages  *stages
	source  Source
	docs    map[string]*trackedDoc
	visible map[string]bool

	pending string
	timer   *time.Timer
	seq     uint64

	hooks  Hooks
	events []func()
	logger zerolog.Logger
}

// New creates a tracker for cfg reading documents from source.
func New(cfg *config.Config, source Source, hooks Hooks, logger zerolog.Logger) (*Tracker, error) {
	st, err := newStages(cfg)
	if err != nil {
		return nil, err
	}
	return &Tracker{
		stages:  st,
		source:  source,
		docs:    make(map[string]*trackedDoc),
		visible: make(map[string]bool),
		hooks:   hooks,
		logger:  logger.With().Str("component", "tracker").Logger(),
	}, nil
}

// Hash returns the content fingerprint used for dirty checking.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func (t *Tracker) lock() { t.mu.Lock() }

// unlock releases the lock and then runs the queued hook calls.
func (t *Tracker) unlock() {
	events := t.events
	t.events = nil
	t.mu.Unlock()
	for _, ev := range events {
		ev()
	}
}

func (t *Tracker) emitPublished(prev, next *match.Document) {
	if t.hooks.Published != nil {
		t.events = append(t.events, func() { t.hooks.Published(prev, next) })
	}
}

func (t *Tracker) emitReleased(doc *match.Document) {
	if t.hooks.Released != nil && doc != nil {
		t.events = append(t.events, func() { t.hooks.Released(doc) })
	}
}

func (t *Tracker) emitShown(doc *match.Document) {
	if t.hooks.Shown != nil && doc != nil {
		t.events = append(t.events, func() { t.hooks.Shown(doc) })
	}
}

func (t *Tracker) emitHidden(doc *match.Document) {
	if t.hooks.Hidden != nil && doc != nil {
		t.events = append(t.events, func() { t.hooks.Hidden(doc) })
	}
}

// Handle parses the document at path unless its content is unchanged since
// the last parse. It returns (nil, nil) for documents that are out of scope.
// On failure the previous snapshot, if any, is returned with the error.
func (t *Tracker) Handle(path string) (*match.Document, error) {
	t.lock()
	defer t.unlock()
	return t.handle(NormalizePath(path))
}

func (t *Tracker) handle(key string) (*match.Document, error) {
	owner, ok := t.stages.owners.Resolve(key)
	if !ok {
		return nil, nil
	}

	td := t.docs[key]
	var prev *match.Document
	if td != nil {
		prev = td.doc
	}
	fail := func(err error) (*match.Document, error) {
		if td == nil {
			td = &trackedDoc{path: key, owner: owner}
			t.docs[key] = td
		}
		td.lastErr = err
		t.logger.Warn().Err(err).Str("path", key).Msg("keeping previous snapshot")
		return prev, err
	}

	content, err := t.source.Read(key)
	if err != nil {
		return fail(err)
	}
	hash := Hash(content)
	if td != nil && td.hash == hash && td.owner == owner {
		return td.doc, nil
	}

	pd, err := t.stages.extractor.Extract(key, content)
	if err != nil {
		return fail(err)
	}
	doc, err := t.stages.matcher.Match(pd, owner)
	if err != nil {
		return fail(err)
	}

	if td == nil {
		td = &trackedDoc{path: key}
		t.docs[key] = td
	}
	td.owner = owner
	td.hash = hash
	td.doc = doc
	td.lastErr = nil

	t.logger.Debug().
		Str("path", key).
		Str("owner", owner).
		Int("exercises", len(pd.Exercises)).
		Int("comments", len(pd.Comments)).
		Msg("document parsed")

	t.emitReleased(prev)
	t.emitPublished(prev, doc)
	return doc, nil
}

// handleLogged is used where no caller is waiting for the result.
func (t *Tracker) handleLogged(key string) {
	if _, err := t.handle(key); err != nil {
		t.logger.Error().Err(err).Str("path", key).Msg("failed to refresh document")
	}
}

// NotifyChange schedules a reparse of path after the configured delay. A
// pending refresh of a different document is carried out right away. With a
// zero delay the document is reparsed before NotifyChange returns.
func (t *Tracker) NotifyChange(path string) {
	t.lock()
	defer t.unlock()

	key := NormalizePath(path)
	if _, ok := t.stages.owners.Resolve(key); !ok {
		return
	}
	if t.pending != "" && t.pending != key {
		other := t.pending
		t.cancelPending()
		t.handleLogged(other)
	}
	t.cancelPending()

	if t.stages.delay <= 0 {
		t.handleLogged(key)
		return
	}
	t.pending = key
	t.seq++
	seq := t.seq
	t.timer = time.AfterFunc(t.stages.delay, func() { t.fire(seq) })
}

func (t *Tracker) fire(seq uint64) {
	t.lock()
	defer t.unlock()
	if seq != t.seq || t.pending == "" {
		return
	}
	key := t.pending
	t.pending = ""
	t.timer = nil
	t.handleLogged(key)
}

// cancelPending drops the pending refresh without running it.
func (t *Tracker) cancelPending() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.pending = ""
	t.seq++
}

// Flush runs a pending refresh immediately.
func (t *Tracker) Flush() {
	t.lock()
	defer t.unlock()
	t.flush()
}

func (t *Tracker) flush() {
	if t.pending == "" {
		return
	}
	key := t.pending
	t.cancelPending()
	t.handleLogged(key)
}

// Pending reports the document waiting for a refresh, if any.
func (t *Tracker) Pending() (string, bool) {
	t.lock()
	defer t.unlock()
	return t.pending, t.pending != ""
}

// Close stops tracking path and releases its snapshot.
func (t *Tracker) Close(path string) {
	t.lock()
	defer t.unlock()

	key := NormalizePath(path)
	if t.pending == key {
		t.cancelPending()
	}
	if td, ok := t.docs[key]; ok {
		delete(t.docs, key)
		t.emitReleased(td.doc)
	}
	delete(t.visible, key)
}

// SetVisible replaces the set of visible documents. Newly visible documents
// are parsed if needed and announced; documents that left the set are
// announced as hidden but stay cached.
func (t *Tracker) SetVisible(paths []string) []*match.Document {
	t.lock()
	defer t.unlock()

	next := make(map[string]bool, len(paths))
	for _, p := range paths {
		next[NormalizePath(p)] = true
	}
	for key := range t.visible {
		if !next[key] {
			if td, ok := t.docs[key]; ok {
				t.emitHidden(td.doc)
			}
		}
	}
	t.visible = next
	return t.showVisible()
}

func (t *Tracker) showVisible() []*match.Document {
	keys := make([]string, 0, len(t.visible))
	for key := range t.visible {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var out []*match.Document
	for _, key := range keys {
		doc, err := t.handle(key)
		if err != nil {
			t.logger.Error().Err(err).Str("path", key).Msg("failed to parse visible document")
		}
		if doc != nil {
			t.emitShown(doc)
			out = append(out, doc)
		}
	}
	return out
}

// Document returns the snapshot of path after forcing any pending refresh.
func (t *Tracker) Document(path string) (*match.Document, bool) {
	t.lock()
	defer t.unlock()
	t.flush()
	td, ok := t.docs[NormalizePath(path)]
	if !ok || td.doc == nil {
		return nil, false
	}
	return td.doc, true
}

// LastError returns the error of the most recent failed refresh of path.
func (t *Tracker) LastError(path string) error {
	t.lock()
	defer t.unlock()
	if td, ok := t.docs[NormalizePath(path)]; ok {
		return td.lastErr
	}
	return nil
}

// ForOwner returns the snapshots of owner sorted by path.
func (t *Tracker) ForOwner(owner string) []*match.Document {
	t.lock()
	defer t.unlock()
	t.flush()

	var out []*match.Document
	for _, td := range t.docs {
		if td.owner == owner && td.doc != nil {
			out = append(out, td.doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Owners lists every owner with at least one tracked document.
func (t *Tracker) Owners() []string {
	t.lock()
	defer t.unlock()
	t.flush()

	seen := make(map[string]bool)
	var out []string
	for _, td := range t.docs {
		if td.doc != nil && !seen[td.owner] {
			seen[td.owner] = true
			out = append(out, td.owner)
		}
	}
	sort.Strings(out)
	return out
}

// Open parses every path and groups the snapshots by owner. Failures are
// logged and joined into the returned error; the other documents still load.
func (t *Tracker) Open(paths []string) (map[string][]*match.Document, error) {
	t.lock()
	defer t.unlock()

	var errs []error
	for _, p := range paths {
		key := NormalizePath(p)
		if _, err := t.handle(key); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	grouped := make(map[string][]*match.Document)
	for _, td := range t.docs {
		if td.doc != nil {
			grouped[td.owner] = append(grouped[td.owner], td.doc)
		}
	}
	for owner := range grouped {
		docs := grouped[owner]
		sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	}
	return grouped, errors.Join(errs...)
}

// Reconfigure swaps in a new configuration. Every snapshot is dropped and
// the visible documents are parsed again. An invalid configuration is
// rejected and the tracker keeps its current one.
func (t *Tracker) Reconfigure(cfg *config.Config) error {
	st, err := newStages(cfg)
	if err != nil {
		return err
	}

	t.lock()
	defer t.unlock()

	t.stages = st
	for key, td := range t.docs {
		delete(t.docs, key)
		t.emitReleased(td.doc)
	}
	t.logger.Info().Int("visible", len(t.visible)).Msg("configuration reloaded")
	t.showVisible()
	return nil
}

// Stop cancels any pending refresh.
func (t *Tracker) Stop() {
	t.lock()
	defer t.unlock()
	t.cancelPending()
}
