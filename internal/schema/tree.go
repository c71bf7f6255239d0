package schema

// Node is anything shaped like the exercise tree.
type Node[T any] interface {
	Children() []T
}

// Flatten lists the tree in pre-order: each node before its children.
func Flatten[T Node[T]](roots []T) []T {
	var out []T
	var walk func(nodes []T)
	walk = func(nodes []T) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Children())
		}
	}
	walk(roots)
	return out
}

// At resolves a path of sibling indices. It returns false if the path leaves the tree.
func At[T Node[T]](roots []T, path []int) (T, bool) {
	var zero T
	if len(path) == 0 {
		return zero, false
	}
	nodes := roots
	var cur T
	for _, i := range path {
		if i < 0 || i >= len(nodes) {
			return zero, false
		}
		cur = nodes[i]
		nodes = cur.Children()
	}
	return cur, true
}

// Names returns the pre-order exercise names, the column order of exports.
func Names(roots []*Exercise) []string {
	flat := Flatten(roots)
	names := make([]string, len(flat))
	for i, ex := range flat {
		names[i] = ex.Name
	}
	return names
}
