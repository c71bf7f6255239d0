package tracker

import (
	"testing"

	"gradesync/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerResolver(t *testing.T) {
	r, err := NewOwnerResolver(`^exams/(\w+)\.txt$`, []string{"./exams/../solution.txt"})
	require.NoError(t, err)

	tests := []struct {
		path  string
		owner string
		ok    bool
	}{
		{"exams/s123.txt", "s123", true},
		{"exams/./s456.txt", "s456", true},
		{"solution.txt", SolutionID, true},
		{"exams/readme.md", "", false},
		{"other/s123.txt", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			owner, ok := r.Resolve(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.owner, owner)
		})
	}
}

func TestOwnerResolver_EmptyCapture(t *testing.T) {
	r, err := NewOwnerResolver(`^exams/(\w*)\.txt$`, nil)
	require.NoError(t, err)
	_, ok := r.Resolve("exams/.txt")
	assert.False(t, ok)
}

func TestOwnerResolver_InvalidPattern(t *testing.T) {
	_, err := NewOwnerResolver(`exams/.*`, nil)
	assert.ErrorIs(t, err, extractor.ErrInvalidPattern)

	_, err = NewOwnerResolver(`(`, nil)
	assert.ErrorIs(t, err, extractor.ErrInvalidPattern)
}

func TestMemorySource_Fallback(t *testing.T) {
	dir := t.TempDir()
	fs := FileSource{Root: dir}
	mem := NewMemorySource(fs)

	_, err := mem.Read("missing.txt")
	assert.Error(t, err)

	mem.Set("a/b.txt", "buffer")
	got, err := mem.Read("a/./b.txt")
	require.NoError(t, err)
	assert.Equal(t, "buffer", got)

	mem.Delete("a/b.txt")
	_, err = mem.Read("a/b.txt")
	assert.Error(t, err)
}
