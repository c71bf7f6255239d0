package extractor

import (
	"fmt"
	"os"
	"strings"
)

// Extractor scans document text into parsed exercises and comments.
type Extractor struct {
	patterns *Patterns
}

// NewExtractor creates an extractor for the given compiled patterns.
func NewExtractor(p *Patterns) (*Extractor, error) {
	if p == nil || p.ExerciseStart == nil || p.Comment == nil {
		return nil, fmt.Errorf("%w: exercise start and comment patterns are required", ErrInvalidPattern)
	}
	return &Extractor{patterns: p}, nil
}

// Patterns returns the patterns the extractor was built with.
func (e *Extractor) Patterns() *Patterns {
	return e.patterns
}

// ExtractFromFile reads a file and extracts it under the given document path.
func (e *Extractor) ExtractFromFile(filepath string) (*ParsedDocument, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filepath, err)
	}
	return e.Extract(filepath, string(content))
}

// SplitLines splits text into lines, dropping the line terminators.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Extract walks the document line by line. An exercise start opens a span
// that grows until the next start, an end marker or the end of the document.
// Comments are collected on every line independent of exercise spans.
func (e *Extractor) Extract(path, text string) (*ParsedDocument, error) {
	lines := SplitLines(text)
	doc := &ParsedDocument{Path: path, LineCount: len(lines)}

	var open *ParsedExercise
	openLine := 0
	closeOpen := func() {
		if open == nil {
			return
		}
		if !open.Range.IsEmpty() {
			open.Text = strings.Join(lines[openLine:open.Range.End.Line+1], "\n")
		}
		open = nil
	}

	for i, raw := range lines {
		line := Fragment{
			Text:  raw,
			Range: Range{Start: Position{Line: i}, End: Position{Line: i, Column: len(raw)}},
		}

		if m, ok := First(e.patterns.ExerciseStart, line); ok {
			if err := m.Require("exercise start", 1); err != nil {
				return nil, err
			}
			closeOpen()
			start := Position{Line: i}
			open = &ParsedExercise{
				Fragment:  Fragment{Range: Range{Start: start, End: start}},
				Document:  path,
				Name:      m.Groups[1].Text,
				NameRange: m.Groups[1].Range,
			}
			openLine = i
			doc.Exercises = append(doc.Exercises, open)
		}

		if e.patterns.ExerciseEnd != nil {
			if _, ok := First(e.patterns.ExerciseEnd, line); ok {
				closeOpen()
			}
		}

		if open != nil {
			open.Range.End = line.Range.End
		}

		for _, m := range FindAll(e.patterns.Comment, line) {
			if err := m.Require("comment", 1); err != nil {
				return nil, err
			}
			doc.Comments = append(doc.Comments, &ParsedComment{
				Fragment: m.Groups[0],
				Document: path,
				Content:  m.Groups[1],
			})
		}
	}
	closeOpen()

	return doc, nil
}
