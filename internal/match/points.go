package match

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gradesync/internal/extractor"
)

// ErrInvalidScore marks a points-comment whose score text is not a number.
var ErrInvalidScore = errors.New("invalid score")

// DefaultPlaceholder stands for a score that has not been entered yet.
const DefaultPlaceholder = "???"

// pointsReader turns plain comments into points-comments.
type pointsReader struct {
	points      *regexp.Regexp
	fullPoints  *regexp.Regexp
	placeholder string
}

// read tries the explicit points form first, then the full-points shorthand.
// It returns nil for a plain comment. ex may be nil when the comment lies
// outside every exercise.
func (r pointsReader) read(c *extractor.ParsedComment, ex *Exercise) (*PointsComment, error) {
	if r.points != nil {
		if m, ok := extractor.First(r.points, c.Content); ok {
			if err := m.Require("points", 2); err != nil {
				return nil, err
			}
			pc := &PointsComment{
				ParsedComment: *c,
				PointsOfTotal: m.Groups[1],
				PointsText:    m.Groups[2],
				Remark:        m.Groups[3],
			}
			if pc.PointsText.Text == r.placeholder {
				pc.IsPlaceholder = true
				return pc, nil
			}
			score, err := parseScore(pc.PointsText.Text)
			if err != nil {
				pc.Score = math.NaN()
				pc.ScoreErr = err
				return pc, nil
			}
			pc.Score = score
			return pc, nil
		}
	}

	if r.fullPoints != nil {
		if m, ok := extractor.First(r.fullPoints, c.Content); ok {
			pc := &PointsComment{
				ParsedComment: *c,
				PointsOfTotal: m.Groups[1],
				PointsText:    m.Groups[1],
				Remark:        m.Groups[2],
				IsFullPoints:  true,
			}
			if ex != nil {
				pc.Score = ex.TotalPoints
			}
			return pc, nil
		}
	}

	return nil, nil
}

func parseScore(text string) (float64, error) {
	s := strings.TrimSpace(text)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return math.NaN(), fmt.Errorf("%w: %q", ErrInvalidScore, text)
	}
	return v, nil
}
