package extractor

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidPattern is returned when a configured regular expression does not
// compile or lacks the capture groups its role requires.
var ErrInvalidPattern = errors.New("invalid pattern")

// Minimum number of capture groups per pattern role.
const (
	exerciseStartGroups = 1
	commentGroups       = 1
	pointsGroups        = 3
	fullPointsGroups    = 2
)

// Sources holds the raw regular expressions as they appear in configuration.
type Sources struct {
	ExerciseStart string
	ExerciseEnd   string // empty means no explicit end marker
	Comment       string
	Points        string
	FullPoints    string
}

// Patterns is the compiled, validated form of Sources.
type Patterns struct {
	ExerciseStart *regexp.Regexp
	ExerciseEnd   *regexp.Regexp
	Comment       *regexp.Regexp
	Points        *regexp.Regexp
	FullPoints    *regexp.Regexp
}

// Compile compiles all patterns and checks their capture group counts.
func Compile(src Sources) (*Patterns, error) {
	p := &Patterns{}
	var err error
	if p.ExerciseStart, err = compileRole("exercise start", src.ExerciseStart, exerciseStartGroups); err != nil {
		return nil, err
	}
	if src.ExerciseEnd != "" {
		if p.ExerciseEnd, err = compileRole("exercise end", src.ExerciseEnd, 0); err != nil {
			return nil, err
		}
	}
	if p.Comment, err = compileRole("comment", src.Comment, commentGroups); err != nil {
		return nil, err
	}
	if p.Points, err = compileRole("points", src.Points, pointsGroups); err != nil {
		return nil, err
	}
	if p.FullPoints, err = compileRole("full points", src.FullPoints, fullPointsGroups); err != nil {
		return nil, err
	}
	return p, nil
}

func compileRole(role, expr string, minGroups int) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: %s regex is empty", ErrInvalidPattern, role)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s regex %q: %v", ErrInvalidPattern, role, expr, err)
	}
	if re.NumSubexp() < minGroups {
		return nil, fmt.Errorf("%w: %s regex %q needs %d capture group(s), has %d",
			ErrInvalidPattern, role, expr, minGroups, re.NumSubexp())
	}
	return re, nil
}

// Match is one regex match mapped back to document coordinates. Groups[0] is
// the whole match; a group that did not participate is an empty fragment at
// the start of the whole match and is reported as missing.
type Match struct {
	Groups  []Fragment
	missing []bool
}

// Missing reports whether capture group i did not take part in the match.
func (m Match) Missing(i int) bool {
	return i >= len(m.missing) || m.missing[i]
}

// FindAll applies re to a single-line fragment and returns every match with
// its capture groups positioned relative to the fragment's start.
func FindAll(re *regexp.Regexp, txt Fragment) []Match {
	locs := re.FindAllStringSubmatchIndex(txt.Text, -1)
	if len(locs) == 0 {
		return nil
	}
	base := txt.Range.Start
	at := func(col int) Position {
		return Position{Line: base.Line, Column: base.Column + col}
	}
	matches := make([]Match, 0, len(locs))
	for _, loc := range locs {
		n := len(loc) / 2
		m := Match{Groups: make([]Fragment, n), missing: make([]bool, n)}
		for g := 0; g < n; g++ {
			start, end := loc[2*g], loc[2*g+1]
			if start < 0 {
				m.missing[g] = true
				pos := at(loc[0])
				m.Groups[g] = Fragment{Range: Range{Start: pos, End: pos}}
				continue
			}
			m.Groups[g] = Fragment{
				Text:  txt.Text[start:end],
				Range: Range{Start: at(start), End: at(end)},
			}
		}
		matches = append(matches, m)
	}
	return matches
}

// First returns the first match of re in txt.
func First(re *regexp.Regexp, txt Fragment) (Match, bool) {
	ms := FindAll(re, txt)
	if len(ms) == 0 {
		return Match{}, false
	}
	return ms[0], true
}

// Require checks that the given capture groups took part in m.
func (m Match) Require(role string, groups ...int) error {
	for _, g := range groups {
		if m.Missing(g) {
			return fmt.Errorf("%w: %s regex matched without capture group %d", ErrInvalidPattern, role, g)
		}
	}
	return nil
}
