package tracker

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"

	"gradesync/internal/extractor"
)

// SolutionID is the owner of documents listed as solution files.
const SolutionID = "/SOLUTION/"

// OwnerResolver decides whether a document is in scope and who it belongs to.
type OwnerResolver struct {
	pattern   *regexp.Regexp
	solutions map[string]bool
}

// NewOwnerResolver compiles the exam file pattern. Its first capture group
// yields the owner ID.
func NewOwnerResolver(pattern string, solutionFiles []string) (*OwnerResolver, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: exam file pattern %q: %v", extractor.ErrInvalidPattern, pattern, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: exam file pattern %q needs one capture group", extractor.ErrInvalidPattern, pattern)
	}
	r := &OwnerResolver{pattern: re, solutions: make(map[string]bool, len(solutionFiles))}
	for _, f := range solutionFiles {
		r.solutions[NormalizePath(f)] = true
	}
	return r, nil
}

// Resolve returns the owner of a document given its path relative to the
// project root. Solution files win over the exam pattern.
func (r *OwnerResolver) Resolve(relPath string) (string, bool) {
	p := NormalizePath(relPath)
	if r.solutions[p] {
		return SolutionID, true
	}
	m := r.pattern.FindStringSubmatch(p)
	if m == nil || m[1] == "" {
		return "", false
	}
	return m[1], true
}

// NormalizePath cleans a relative path and uses forward slashes.
func NormalizePath(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
