// Package match aligns the flat list of parsed exercises and comments of a
// document with the expected exercise tree and scores the result.
package match

import (
	"gradesync/internal/extractor"
	"gradesync/internal/schema"
)

// Policy controls how repeated occurrences are treated.
type Policy struct {
	AllowMultiplePointsComments  bool
	AllowMultipleParsedExercises bool
}

// Options configures a Matcher.
type Options struct {
	Policy      Policy
	Patterns    *extractor.Patterns
	Placeholder string
}

// Matcher matches parsed documents against a fixed schema.
type Matcher struct {
	schema []*schema.Exercise
	policy Policy
	reader pointsReader
}

// NewMatcher creates a matcher. The schema is never modified; every match
// works on a fresh tree of the same shape.
func NewMatcher(exs []*schema.Exercise, opts Options) *Matcher {
	placeholder := opts.Placeholder
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	m := &Matcher{
		schema: schema.CloneAll(exs),
		policy: opts.Policy,
		reader: pointsReader{placeholder: placeholder},
	}
	if opts.Patterns != nil {
		m.reader.points = opts.Patterns.Points
		m.reader.fullPoints = opts.Patterns.FullPoints
	}
	return m
}

// Schema returns the exercise tree the matcher works against.
func (m *Matcher) Schema() []*schema.Exercise {
	return m.schema
}

// Match aligns a parsed document with the schema, interprets points-comments
// and aggregates the achieved points.
func (m *Matcher) Match(pd *extractor.ParsedDocument, owner string) (*Document, error) {
	doc := &Document{
		Path:      pd.Path,
		Owner:     owner,
		Exercises: NewTree(m.schema),
	}

	var path Path
	for _, pex := range pd.Exercises {
		var target *Exercise
		target, path = placeExercise(doc.Exercises, pex, path, m.policy)
		if target == nil {
			doc.UnmatchedExercises = append(doc.UnmatchedExercises, pex)
			continue
		}
		target.ParsedExercises = append(target.ParsedExercises, pex)
	}

	for _, c := range pd.Comments {
		if err := m.placeComment(doc, c); err != nil {
			return nil, err
		}
	}

	Aggregate(doc.Exercises)
	return doc, nil
}

func (m *Matcher) placeComment(doc *Document, c *extractor.ParsedComment) error {
	ex, _ := FindContaining(doc.Exercises, c.Range)
	pc, err := m.reader.read(c, ex)
	if err != nil {
		return err
	}

	if ex == nil {
		if pc != nil {
			pc.IsUnmatched = true
			doc.UnmatchedPointsComments = append(doc.UnmatchedPointsComments, pc)
		} else {
			doc.UnmatchedComments = append(doc.UnmatchedComments, c)
		}
		return nil
	}

	if pc == nil {
		ex.ParsedComments = append(ex.ParsedComments, c)
		return nil
	}
	if len(ex.PointsComments) > 0 && !m.policy.AllowMultiplePointsComments {
		pc.IsDuplicate = true
		doc.UnmatchedPointsComments = append(doc.UnmatchedPointsComments, pc)
		return nil
	}
	ex.PointsComments = append(ex.PointsComments, pc)
	return nil
}

// FindContaining returns the first matched exercise, depth-first, that has
// a parsed occurrence enclosing rng, together with that occurrence.
func FindContaining(exs []*Exercise, rng extractor.Range) (*Exercise, *extractor.ParsedExercise) {
	for _, ex := range exs {
		for _, pex := range ex.ParsedExercises {
			if pex.Range.Contains(rng) {
				return ex, pex
			}
		}
		if sub, pex := FindContaining(ex.SubExercises, rng); sub != nil {
			return sub, pex
		}
	}
	return nil, nil
}

// ExerciseAt returns the exercise whose occurrence contains pos.
func ExerciseAt(doc *Document, pos extractor.Position) (*Exercise, *extractor.ParsedExercise) {
	return FindContaining(doc.Exercises, extractor.Range{Start: pos, End: pos})
}
