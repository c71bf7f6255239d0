package tracker

import (
	"sync"
	"testing"
	"time"

	"gradesync/internal/config"
	"gradesync/internal/extractor"
	"gradesync/internal/match"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackerConfig = `
exercise:
  startRegex: '^Exercise\s+(\S+)'
exercises:
  Q1: 5
  Q2:
    atomicPoints: 0
    subExercises:
      Q2a: 3
      Q2b: 2
examFiles:
  pattern: '^exams/(\w+)\.txt$'
  solutionFiles: [solution.txt]
`

const exam = `Exercise Q1
some work
// POINTS: 4/5 (good)
Exercise Q2a
// POINTS: 3/3
Exercise Q2b
// POINTS: ???/2
`

type recorder struct {
	mu        sync.Mutex
	published []string
	released  int
	shown     []string
	hidden    []string
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		Published: func(_, next *match.Document) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.published = append(r.published, next.Path)
		},
		Released: func(*match.Document) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.released++
		},
		Shown: func(doc *match.Document) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.shown = append(r.shown, doc.Path)
		},
		Hidden: func(doc *match.Document) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.hidden = append(r.hidden, doc.Path)
		},
	}
}

func (r *recorder) publishedPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.published...)
}

func newTracker(t *testing.T, delayMs int) (*Tracker, *MemorySource, *recorder) {
	t.Helper()
	cfg, err := config.Parse([]byte(trackerConfig))
	require.NoError(t, err)
	cfg.TypeDelay = &delayMs

	src := NewMemorySource(nil)
	rec := &recorder{}
	tr, err := New(cfg, src, rec.hooks(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(tr.Stop)
	return tr, src, rec
}

func TestTracker_HandleScoresDocument(t *testing.T) {
	tr, src, _ := newTracker(t, 1000)
	src.Set("exams/s123.txt", exam)

	doc, err := tr.Handle("exams/s123.txt")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "s123", doc.Owner)
	assert.Equal(t, 7.0, doc.TotalPoints())
}

func TestTracker_SameContentKeepsSnapshot(t *testing.T) {
	tr, src, rec := newTracker(t, 1000)
	src.Set("exams/s123.txt", exam)

	first, err := tr.Handle("exams/s123.txt")
	require.NoError(t, err)
	second, err := tr.Handle("exams/s123.txt")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, rec.publishedPaths(), 1)
}

func TestTracker_ChangeOutsideExercisesGivesEqualTree(t *testing.T) {
	tr, src, rec := newTracker(t, 1000)
	src.Set("exams/s123.txt", "header\n"+exam)
	first, err := tr.Handle("exams/s123.txt")
	require.NoError(t, err)

	src.Set("exams/s123.txt", "headex\n"+exam)
	second, err := tr.Handle("exams/s123.txt")
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, first, second)
	assert.Len(t, rec.publishedPaths(), 2)
	assert.Equal(t, 1, rec.released)
}

func TestTracker_OutOfScopeDocument(t *testing.T) {
	tr, src, _ := newTracker(t, 1000)
	src.Set("notes/todo.txt", exam)

	doc, err := tr.Handle("notes/todo.txt")
	require.NoError(t, err)
	assert.Nil(t, doc)

	tr.NotifyChange("notes/todo.txt")
	_, pending := tr.Pending()
	assert.False(t, pending)
	assert.Empty(t, tr.Owners())
}

func TestTracker_SolutionOwner(t *testing.T) {
	tr, src, _ := newTracker(t, 1000)
	src.Set("solution.txt", exam)
	src.Set("exams/s1.txt", exam)
	src.Set("exams/s2.txt", exam)

	grouped, err := tr.Open([]string{"solution.txt", "exams/s2.txt", "exams/s1.txt"})
	require.NoError(t, err)
	assert.Len(t, grouped[SolutionID], 1)
	assert.Equal(t, []string{SolutionID, "s1", "s2"}, tr.Owners())
	require.Len(t, tr.ForOwner("s1"), 1)
	assert.Equal(t, "exams/s1.txt", tr.ForOwner("s1")[0].Path)
}

func TestTracker_DebouncedRefresh(t *testing.T) {
	tr, src, _ := newTracker(t, 20)
	src.Set("exams/s123.txt", exam)
	_, err := tr.Handle("exams/s123.txt")
	require.NoError(t, err)

	src.Set("exams/s123.txt", "Exercise Q1\n// POINTS: 5/5\n")
	tr.NotifyChange("exams/s123.txt")

	require.Eventually(t, func() bool {
		_, pending := tr.Pending()
		return !pending
	}, time.Second, 5*time.Millisecond)

	docs := tr.ForOwner("s123")
	require.Len(t, docs, 1)
	assert.Equal(t, 5.0, docs[0].TotalPoints())
}

func TestTracker_EditOfOtherDocumentFlushesPending(t *testing.T) {
	tr, src, rec := newTracker(t, 60_000)
	src.Set("exams/a.txt", exam)
	src.Set("exams/b.txt", exam)

	tr.NotifyChange("exams/a.txt")
	assert.Empty(t, rec.publishedPaths())

	tr.NotifyChange("exams/b.txt")
	assert.Equal(t, []string{"exams/a.txt"}, rec.publishedPaths())
	pending, ok := tr.Pending()
	require.True(t, ok)
	assert.Equal(t, "exams/b.txt", pending)

	tr.Flush()
	assert.Equal(t, []string{"exams/a.txt", "exams/b.txt"}, rec.publishedPaths())
}

func TestTracker_DocumentForcesRefresh(t *testing.T) {
	tr, src, _ := newTracker(t, 60_000)
	src.Set("exams/a.txt", exam)

	tr.NotifyChange("exams/a.txt")
	doc, ok := tr.Document("exams/a.txt")
	require.True(t, ok)
	assert.Equal(t, 7.0, doc.TotalPoints())

	_, ok = tr.Document("exams/unknown.txt")
	assert.False(t, ok)
}

func TestTracker_ReadFailureKeepsSnapshot(t *testing.T) {
	tr, src, _ := newTracker(t, 1000)
	src.Set("exams/a.txt", exam)
	before, err := tr.Handle("exams/a.txt")
	require.NoError(t, err)

	src.Delete("exams/a.txt")
	after, err := tr.Handle("exams/a.txt")
	assert.Error(t, err)
	assert.Same(t, before, after)
	assert.Error(t, tr.LastError("exams/a.txt"))

	src.Set("exams/a.txt", exam+"// late\n")
	_, err = tr.Handle("exams/a.txt")
	require.NoError(t, err)
	assert.NoError(t, tr.LastError("exams/a.txt"))
}

func TestTracker_CloseReleases(t *testing.T) {
	tr, src, rec := newTracker(t, 60_000)
	src.Set("exams/a.txt", exam)
	_, err := tr.Handle("exams/a.txt")
	require.NoError(t, err)

	tr.NotifyChange("exams/a.txt")
	tr.Close("exams/a.txt")

	_, pending := tr.Pending()
	assert.False(t, pending)
	_, ok := tr.Document("exams/a.txt")
	assert.False(t, ok)
	assert.Equal(t, 1, rec.released)
}

func TestTracker_Visibility(t *testing.T) {
	tr, src, rec := newTracker(t, 1000)
	src.Set("exams/a.txt", exam)
	src.Set("exams/b.txt", exam)

	docs := tr.SetVisible([]string{"exams/b.txt", "exams/a.txt", "notes.md"})
	assert.Len(t, docs, 2)
	assert.Equal(t, []string{"exams/a.txt", "exams/b.txt"}, rec.shown)

	tr.SetVisible([]string{"exams/a.txt"})
	assert.Equal(t, []string{"exams/b.txt"}, rec.hidden)
	_, ok := tr.Document("exams/b.txt")
	assert.True(t, ok, "hidden documents stay cached")
}

func TestTracker_Reconfigure(t *testing.T) {
	tr, src, rec := newTracker(t, 1000)
	src.Set("exams/a.txt", exam)
	src.Set("exams/b.txt", exam)
	tr.SetVisible([]string{"exams/a.txt"})
	_, err := tr.Handle("exams/b.txt")
	require.NoError(t, err)

	bad := config.Default()
	bad.Exercise.StartRegex = "("
	assert.ErrorIs(t, tr.Reconfigure(bad), extractor.ErrInvalidPattern)
	_, ok := tr.Document("exams/b.txt")
	assert.True(t, ok)

	cfg, err := config.Parse([]byte(trackerConfig + "\n" + `allowMultiplePointsComments: true`))
	require.NoError(t, err)
	cfg.Exercises = config.Default().Exercises
	require.NoError(t, tr.Reconfigure(cfg))

	_, ok = tr.Document("exams/b.txt")
	assert.False(t, ok, "only visible documents are parsed again")
	doc, ok := tr.Document("exams/a.txt")
	require.True(t, ok)
	assert.Empty(t, doc.Exercises)
	assert.Len(t, doc.UnmatchedExercises, 3)
	assert.Equal(t, 2, rec.released)
}

func TestTracker_FirstParseFailureIsRecorded(t *testing.T) {
	cfg, err := config.Parse([]byte(trackerConfig))
	require.NoError(t, err)
	cfg.Exercise.StartRegex = `^Exercise(?:\s+(\S+))?`

	src := NewMemorySource(nil)
	tr, err := New(cfg, src, Hooks{}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(tr.Stop)

	src.Set("exams/s1.txt", "Exercise\n")
	doc, err := tr.Handle("exams/s1.txt")
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, extractor.ErrInvalidPattern)
	assert.ErrorIs(t, tr.LastError("exams/s1.txt"), extractor.ErrInvalidPattern)

	assert.Empty(t, tr.Owners())
	assert.Empty(t, tr.ForOwner("s1"))
	_, ok := tr.Document("exams/s1.txt")
	assert.False(t, ok)

	src.Set("exams/s1.txt", "Exercise Q1\n// POINTS: 2/5\n")
	doc, err = tr.Handle("exams/s1.txt")
	require.NoError(t, err)
	assert.Equal(t, 2.0, doc.TotalPoints())
	assert.NoError(t, tr.LastError("exams/s1.txt"))
	assert.Equal(t, []string{"s1"}, tr.Owners())
}

func TestTracker_ZeroDelayRefreshesImmediately(t *testing.T) {
	tr, src, rec := newTracker(t, 0)
	src.Set("exams/a.txt", exam)

	tr.NotifyChange("exams/a.txt")
	_, pending := tr.Pending()
	assert.False(t, pending)
	assert.Equal(t, []string{"exams/a.txt"}, rec.publishedPaths())
}
