package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"gradesync/internal/extractor"
	"gradesync/internal/match"
	"gradesync/internal/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exercises = `{"Q1": 5, "Q2": {"atomicPoints": 0, "subExercises": {"Q2a": 3, "Q2b": 2}}}`

func score(t *testing.T, exs []*schema.Exercise, path, owner, text string) *match.Document {
	t.Helper()
	patterns, err := extractor.Compile(extractor.Sources{
		ExerciseStart: `^Exercise\s+(\S+)`,
		Comment:       `//\s*(.*)$`,
		Points:        `^\s*(([^\s/]+)\s*/\s*[\d.]+)\s*(?:\((.*)\))?\s*$`,
		FullPoints:    `^\s*(FULL)\s*(?:\((.*)\))?\s*$`,
	})
	require.NoError(t, err)
	ext, err := extractor.NewExtractor(patterns)
	require.NoError(t, err)
	pd, err := ext.Extract(path, text)
	require.NoError(t, err)
	doc, err := match.NewMatcher(exs, match.Options{Patterns: patterns}).Match(pd, owner)
	require.NoError(t, err)
	return doc
}

func fixture(t *testing.T) ([]*schema.Exercise, map[string][]*match.Document) {
	t.Helper()
	exs, err := schema.Parse([]byte(exercises))
	require.NoError(t, err)
	return exs, map[string][]*match.Document{
		"s2": {score(t, exs, "exams/s2.txt", "s2", "Exercise Q1\n// FULL\n")},
		"s1": {
			score(t, exs, "exams/s1_a.txt", "s1", "Exercise Q1\n// 2.5/5\n"),
			score(t, exs, "exams/s1_b.txt", "s1", "Exercise Q2a\n// 3/3\nExercise Q2b\n// 1/2\n"),
		},
	}
}

func TestCSV(t *testing.T) {
	exs, grouped := fixture(t)

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, exs, grouped))

	assert.Equal(t,
		"id,Q1,Q2,Q2a,Q2b,Total\n"+
			"s1,2.5,4,3,1,6.5\n"+
			"s2,5,0,0,0,5\n",
		buf.String())
}

func TestCSV_InvalidScore(t *testing.T) {
	exs, err := schema.Parse([]byte(`{A: 1}`))
	require.NoError(t, err)
	grouped := map[string][]*match.Document{
		"s1": {score(t, exs, "a.txt", "s1", "Exercise A\n// x/1\n")},
	}

	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, exs, grouped))
	assert.Equal(t, "id,A,Total\ns1,NaN,NaN\n", buf.String())
}

func TestJSON(t *testing.T) {
	_, grouped := fixture(t)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, grouped))

	var got map[string][]struct {
		Filename  string `json:"filename"`
		ID        string `json:"id"`
		Exercises []struct {
			Name                string   `json:"name"`
			TotalPoints         float64  `json:"totalPoints"`
			AchievedTotalPoints *float64 `json:"achievedTotalPoints"`
			SubExercises        []struct {
				Name                 string  `json:"name"`
				AchievedAtomicPoints float64 `json:"achievedAtomicPoints"`
			} `json:"subExercises"`
		} `json:"exercises"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	require.Len(t, got["s1"], 2)
	assert.Equal(t, "exams/s1_a.txt", got["s1"][0].Filename)
	assert.Equal(t, "s1", got["s1"][0].ID)
	require.Len(t, got["s1"][1].Exercises, 2)
	q2 := got["s1"][1].Exercises[1]
	assert.Equal(t, "Q2", q2.Name)
	assert.Equal(t, 5.0, q2.TotalPoints)
	assert.Equal(t, 4.0, *q2.AchievedTotalPoints)
	require.Len(t, q2.SubExercises, 2)
	assert.Equal(t, 1.0, q2.SubExercises[1].AchievedAtomicPoints)
}

func TestJSON_NaNIsNull(t *testing.T) {
	exs, err := schema.Parse([]byte(`{A: 1}`))
	require.NoError(t, err)
	grouped := map[string][]*match.Document{
		"s1": {score(t, exs, "a.txt", "s1", "Exercise A\n// x/1\n")},
	}

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, grouped))
	assert.Contains(t, buf.String(), `"achievedTotalPoints": null`)
}
