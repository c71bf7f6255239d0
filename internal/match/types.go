package match

import (
	"gradesync/internal/extractor"
	"gradesync/internal/schema"
)

// PointsComment is a comment that encodes an awarded score.
type PointsComment struct {
	extractor.ParsedComment
	PointsOfTotal extractor.Fragment `json:"points_of_total"`
	PointsText    extractor.Fragment `json:"points_text"`
	Remark        extractor.Fragment `json:"remark"`
	Score         float64            `json:"score"`

	// ScoreErr wraps ErrInvalidScore when the score text is not a number.
	// Score is NaN in that case.
	ScoreErr error `json:"-"`

	IsPlaceholder bool `json:"is_placeholder,omitempty"`
	IsFullPoints  bool `json:"is_full_points,omitempty"`
	IsDuplicate   bool `json:"is_duplicate,omitempty"`
	IsUnmatched   bool `json:"is_unmatched,omitempty"`
}

// Exercise is a schema exercise enriched with what one document contains for it.
type Exercise struct {
	Name         string  `json:"name"`
	ID           string  `json:"id"`
	AtomicPoints float64 `json:"atomicPoints"`
	TotalPoints  float64 `json:"totalPoints"`

	AchievedAtomicPoints float64 `json:"achievedAtomicPoints"`
	AchievedTotalPoints  float64 `json:"achievedTotalPoints"`

	SubExercises    []*Exercise                 `json:"subExercises,omitempty"`
	ParsedExercises []*extractor.ParsedExercise `json:"-"`
	ParsedComments  []*extractor.ParsedComment  `json:"-"`
	PointsComments  []*PointsComment            `json:"-"`
}

// Children implements schema.Node.
func (e *Exercise) Children() []*Exercise {
	return e.SubExercises
}

// NewTree creates an empty matched tree with exactly the shape of the schema.
func NewTree(exs []*schema.Exercise) []*Exercise {
	out := make([]*Exercise, len(exs))
	for i, ex := range exs {
		out[i] = &Exercise{
			Name:         ex.Name,
			ID:           ex.ID,
			AtomicPoints: ex.AtomicPoints,
			TotalPoints:  ex.TotalPoints,
			SubExercises: NewTree(ex.SubExercises),
		}
	}
	return out
}

// Document is the matched, scored view of one source document. Published
// documents are read-only snapshots.
type Document struct {
	Path  string `json:"filename"`
	Owner string `json:"id"`

	Exercises []*Exercise `json:"exercises"`

	UnmatchedExercises      []*extractor.ParsedExercise `json:"-"`
	UnmatchedComments       []*extractor.ParsedComment  `json:"-"`
	UnmatchedPointsComments []*PointsComment            `json:"-"`
}

// TotalPoints is the document's achieved total over all root exercises.
func (d *Document) TotalPoints() float64 {
	var total float64
	for _, ex := range d.Exercises {
		total += ex.AchievedTotalPoints
	}
	return total
}

// Flat returns all matched exercises in pre-order.
func (d *Document) Flat() []*Exercise {
	return schema.Flatten(d.Exercises)
}

// Find returns the matched exercise with the given ID.
func (d *Document) Find(id string) (*Exercise, bool) {
	for _, ex := range d.Flat() {
		if ex.ID == id {
			return ex, true
		}
	}
	return nil, false
}

// InvalidScores lists every points-comment whose score text did not parse.
func (d *Document) InvalidScores() []*PointsComment {
	var out []*PointsComment
	collect := func(pcs []*PointsComment) {
		for _, pc := range pcs {
			if pc.ScoreErr != nil {
				out = append(out, pc)
			}
		}
	}
	for _, ex := range d.Flat() {
		collect(ex.PointsComments)
	}
	collect(d.UnmatchedPointsComments)
	return out
}
