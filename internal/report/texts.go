package report

import (
	"errors"
	"fmt"
	"strings"

	"gradesync/internal/extractor"
	"gradesync/internal/match"
	"gradesync/internal/schema"
)

// ErrUnknownExercise is returned for an exercise id that is not in the schema.
var ErrUnknownExercise = errors.New("unknown exercise")

// occurrences merges docs and returns every parsed occurrence of id.
func occurrences(docs []*match.Document, id string) ([]*extractor.ParsedExercise, error) {
	merged, err := match.Merge(docs)
	if err != nil {
		return nil, err
	}
	for _, ex := range schema.Flatten(merged) {
		if ex.ID == id {
			return ex.ParsedExercises, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownExercise, id)
}

// SolutionText returns the text of exercise id in the solution documents.
func SolutionText(solution []*match.Document, id string) (string, error) {
	if len(solution) == 0 {
		return "", errors.New("no solution documents")
	}
	pexs, err := occurrences(solution, id)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(pexs))
	for i, pex := range pexs {
		texts[i] = pex.Text
	}
	return strings.Join(texts, "\n"), nil
}

// ExerciseTexts collects the text of exercise id from every owner. Each
// occurrence is labelled with `# <path>`.
func ExerciseTexts(grouped map[string][]*match.Document, id string) (string, error) {
	var b strings.Builder
	found := false
	for _, owner := range match.Owners(grouped) {
		pexs, err := occurrences(grouped[owner], id)
		if err != nil {
			return "", fmt.Errorf("%s: %w", owner, err)
		}
		found = true
		for _, pex := range pexs {
			fmt.Fprintf(&b, "# %s\n%s\n\n", pex.Document, pex.Text)
		}
	}
	if !found {
		return "", fmt.Errorf("%w: %s", ErrUnknownExercise, id)
	}
	return b.String(), nil
}
