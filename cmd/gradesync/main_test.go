package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"gradesync/internal/extractor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	pos, err := parsePosition("3")
	require.NoError(t, err)
	assert.Equal(t, extractor.Position{Line: 2, Column: 0}, pos)

	pos, err = parsePosition("10:4")
	require.NoError(t, err)
	assert.Equal(t, extractor.Position{Line: 9, Column: 3}, pos)

	for _, bad := range []string{"", "0", "x", "2:0", "2:y"} {
		_, err := parsePosition(bad)
		assert.Error(t, err, bad)
	}
}

const projectConfig = `
project:
  root: %q
exercises: {A: 2, B: {atomicPoints: 0, subExercises: {B1: 1}}}
examFiles:
  pattern: '^exams/(\w+)\.txt$'
  solutionFiles: [exams/solution.txt]
`

// runCommand executes the CLI against a fresh project and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"grading.yaml":       fmt.Sprintf(projectConfig, root),
		"exams/solution.txt": "Exercise A\nuse a loop\nExercise B1\nrecursion",
		"exams/s1.txt":       "Exercise A\nfor x in xs\n// POINTS: 2/2\nExercise B1\nnothing",
		"exams/s2.txt":       "Exercise A\nwhile true\n// POINTS: 1/2",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}

	prevConfig, prevDB := configPath, dbPath
	configPath, dbPath = filepath.Join(root, "grading.yaml"), ""
	t.Cleanup(func() { configPath, dbPath = prevConfig, prevDB })

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()
	os.Stdout = stdout
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out), runErr
}

func TestSolutionCommand(t *testing.T) {
	out, err := runCommand(t, "solution", "A")
	require.NoError(t, err)
	assert.Contains(t, out, "Exercise A\nuse a loop\n")
	assert.NotContains(t, out, "recursion")

	out, err = runCommand(t, "solution", "B_B1")
	require.NoError(t, err)
	assert.Contains(t, out, "Exercise B1\nrecursion")

	_, err = runCommand(t, "solution", "C")
	assert.Error(t, err)
}

func TestExerciseCommand(t *testing.T) {
	out, err := runCommand(t, "exercise", "A")
	require.NoError(t, err)
	assert.Contains(t, out, "# exams/s1.txt\nExercise A\nfor x in xs\n// POINTS: 2/2\n")
	assert.Contains(t, out, "# exams/s2.txt\nExercise A\nwhile true\n// POINTS: 1/2\n")
	assert.Contains(t, out, "# exams/solution.txt\nExercise A\nuse a loop\n")

	_, err = runCommand(t, "exercise", "C")
	assert.Error(t, err)
}
