package match

import (
	"gradesync/internal/extractor"
	"gradesync/internal/schema"
)

// Path addresses a node in the exercise tree by sibling indices from the roots.
type Path []int

func (p Path) child(i int) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = i
	return out
}

func (p Path) equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// Candidates lists the nodes named name in search order. Along the current
// path it looks at the children of the current node first, then at the
// children of each ancestor, ending with the roots; only the first match per
// sibling list counts. Any remaining nodes with that name follow in
// depth-first pre-order.
func Candidates(roots []*Exercise, name string, current Path) []Path {
	var out []Path
	seen := func(p Path) bool {
		for _, q := range out {
			if q.equal(p) {
				return true
			}
		}
		return false
	}

	for depth := len(current); depth >= 0; depth-- {
		prefix := current[:depth]
		siblings := roots
		if depth > 0 {
			parent, ok := schema.At(roots, prefix)
			if !ok {
				continue
			}
			siblings = parent.SubExercises
		}
		for i, ex := range siblings {
			if ex.Name == name {
				out = append(out, Path(prefix).child(i))
				break
			}
		}
	}

	var walk func(nodes []*Exercise, prefix Path)
	walk = func(nodes []*Exercise, prefix Path) {
		for i, ex := range nodes {
			p := prefix.child(i)
			if ex.Name == name && !seen(p) {
				out = append(out, p)
			}
			walk(ex.SubExercises, p)
		}
	}
	walk(roots, nil)

	return out
}

// placeExercise picks the node a parsed exercise belongs to. It returns the
// node (nil if unmatched or a disallowed duplicate) and the path to continue
// from. A duplicate is flagged on pex.
func placeExercise(roots []*Exercise, pex *extractor.ParsedExercise, current Path, policy Policy) (*Exercise, Path) {
	cands := Candidates(roots, pex.Name, current)
	if len(cands) == 0 {
		return nil, current
	}

	chosen := -1
	for i, p := range cands {
		ex, _ := schema.At(roots, p)
		if len(ex.ParsedExercises) == 0 {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		if !policy.AllowMultipleParsedExercises {
			pex.IsDuplicate = true
			return nil, current
		}
		chosen = 0
	}

	ex, _ := schema.At(roots, cands[chosen])
	return ex, cands[chosen]
}
