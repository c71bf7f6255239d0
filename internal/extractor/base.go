package extractor

// Position is a zero-based line/column location in a document.
// Columns are byte offsets within the line.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p comes strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// Range is a half-open span [Start, End) in a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether r fully encloses other.
func (r Range) Contains(other Range) bool {
	return !other.Start.Before(r.Start) && !r.End.Before(other.End)
}

// ContainsPosition reports whether pos lies within r, end inclusive.
func (r Range) ContainsPosition(pos Position) bool {
	return r.Contains(Range{Start: pos, End: pos})
}

// IsEmpty reports whether the range spans no characters.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// Fragment is a piece of document text together with its location.
type Fragment struct {
	Text  string `json:"text"`
	Range Range  `json:"range"`
}

// ParsedComment is a match of the comment pattern. Content holds the
// captured part without the comment delimiters.
type ParsedComment struct {
	Fragment
	Document string   `json:"document"`
	Content  Fragment `json:"content"`
}

// ParsedExercise is one located occurrence of an exercise header and the
// text that belongs to it.
type ParsedExercise struct {
	Fragment
	Document    string `json:"document"`
	Name        string `json:"name"`
	NameRange   Range  `json:"name_range"`
	IsDuplicate bool   `json:"is_duplicate,omitempty"`
}

// ParsedDocument is the flat extraction result for a single document.
// Entities refer back to the document by path only.
type ParsedDocument struct {
	Path      string
	Exercises []*ParsedExercise
	Comments  []*ParsedComment
	LineCount int
}
