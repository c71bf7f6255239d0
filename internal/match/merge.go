package match

import (
	"errors"
	"fmt"
	"sort"
)

// ErrShapeMismatch is returned when documents were matched against different schemas.
var ErrShapeMismatch = errors.New("exercise trees differ")

// Merge combines the trees of several documents of one owner into a new
// tree: achieved points are added and occurrence lists concatenated per node.
// The input documents are not modified.
func Merge(docs []*Document) ([]*Exercise, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	out := cloneTree(docs[0].Exercises)
	for _, d := range docs[1:] {
		if err := mergeInto(out, d.Exercises); err != nil {
			return nil, fmt.Errorf("merge %s: %w", d.Path, err)
		}
	}
	return out, nil
}

func cloneTree(exs []*Exercise) []*Exercise {
	out := make([]*Exercise, len(exs))
	for i, ex := range exs {
		c := *ex
		c.ParsedExercises = append(c.ParsedExercises[:0:0], ex.ParsedExercises...)
		c.ParsedComments = append(c.ParsedComments[:0:0], ex.ParsedComments...)
		c.PointsComments = append(c.PointsComments[:0:0], ex.PointsComments...)
		c.SubExercises = cloneTree(ex.SubExercises)
		out[i] = &c
	}
	return out
}

func mergeInto(dst, src []*Exercise) error {
	if len(dst) != len(src) {
		return fmt.Errorf("%w: %d vs %d exercises", ErrShapeMismatch, len(dst), len(src))
	}
	for i, s := range src {
		d := dst[i]
		if d.Name != s.Name {
			return fmt.Errorf("%w: %q vs %q", ErrShapeMismatch, d.Name, s.Name)
		}
		d.AchievedAtomicPoints += s.AchievedAtomicPoints
		d.AchievedTotalPoints += s.AchievedTotalPoints
		d.ParsedExercises = append(d.ParsedExercises, s.ParsedExercises...)
		d.ParsedComments = append(d.ParsedComments, s.ParsedComments...)
		d.PointsComments = append(d.PointsComments, s.PointsComments...)
		if err := mergeInto(d.SubExercises, s.SubExercises); err != nil {
			return err
		}
	}
	return nil
}

// SameShape reports whether two trees have identical names, IDs, order and
// child counts.
func SameShape(a, b []*Exercise) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].ID != b[i].ID {
			return false
		}
		if !SameShape(a[i].SubExercises, b[i].SubExercises) {
			return false
		}
	}
	return true
}

// Owners returns the owners of a grouped document set in sorted order.
func Owners(grouped map[string][]*Document) []string {
	out := make([]string, 0, len(grouped))
	for owner := range grouped {
		out = append(out, owner)
	}
	sort.Strings(out)
	return out
}
