// Package report renders per-owner overview tables in the terminal.
package report

import (
	"fmt"

	"gradesync/internal/export"
	"gradesync/internal/match"
	"gradesync/internal/schema"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Kind selects what the table shows per exercise.
type Kind string

const (
	KindPoints  Kind = "points"
	KindPresent Kind = "present"
	KindGraded  Kind = "graded"
)

// ParseKind validates a table kind given on the command line.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindPoints, KindPresent, KindGraded:
		return k, nil
	}
	return "", fmt.Errorf("unknown table %q (want points, present or graded)", s)
}

// Cell is one rendered value.
type Cell struct {
	Text string
	// Flagged cells are drawn in the warning style: overshooting points, or
	// a missing or ungraded exercise.
	Flagged bool
}

// Table is the content of an overview before styling.
type Table struct {
	Headers []string
	Owners  []string
	Rows    [][]Cell
}

const (
	yes = "✓"
	no  = "✗"
)

// Build merges the documents of every owner and fills one row per owner
// with a cell per exercise in pre-order and a summary cell.
func Build(kind Kind, exs []*schema.Exercise, grouped map[string][]*match.Document) (*Table, error) {
	t := &Table{Headers: append([]string{"id"}, schema.Names(exs)...)}
	switch kind {
	case KindPoints:
		t.Headers = append(t.Headers, "Total")
	case KindPresent:
		t.Headers = append(t.Headers, "All present")
	case KindGraded:
		t.Headers = append(t.Headers, "All graded")
	default:
		return nil, fmt.Errorf("unknown table %q", kind)
	}

	for _, owner := range match.Owners(grouped) {
		merged, err := match.Merge(grouped[owner])
		if err != nil {
			return nil, fmt.Errorf("owner %s: %w", owner, err)
		}
		flat := schema.Flatten(merged)

		row := make([]Cell, 0, len(flat)+1)
		for _, ex := range flat {
			row = append(row, cellFor(kind, ex))
		}
		row = append(row, summaryFor(kind, merged, flat))

		t.Owners = append(t.Owners, owner)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func cellFor(kind Kind, ex *match.Exercise) Cell {
	switch kind {
	case KindPresent:
		return flag(match.IsPresent(ex))
	case KindGraded:
		return flag(match.IsGraded(ex))
	}
	return Cell{Text: export.FormatPoints(ex.AchievedTotalPoints), Flagged: match.Overshoots(ex)}
}

func summaryFor(kind Kind, roots, flat []*match.Exercise) Cell {
	switch kind {
	case KindPresent:
		return flag(match.AllPresent(flat))
	case KindGraded:
		return flag(match.AllGraded(roots))
	}
	var total, possible float64
	for _, ex := range roots {
		total += ex.AchievedTotalPoints
		possible += ex.TotalPoints
	}
	return Cell{Text: export.FormatPoints(total), Flagged: total > possible}
}

func flag(ok bool) Cell {
	if ok {
		return Cell{Text: yes}
	}
	return Cell{Text: no, Flagged: true}
}

// Render draws the table with a rounded border.
func (t *Table) Render() string {
	rows := make([][]string, len(t.Rows))
	for i, cells := range t.Rows {
		row := make([]string, 0, len(cells)+1)
		row = append(row, t.Owners[i])
		for _, c := range cells {
			row = append(row, c.Text)
		}
		rows[i] = row
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers(t.Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return HeaderStyle
			case col == 0:
				return OwnerStyle
			}
			c := t.Rows[row][col-1]
			switch {
			case c.Text == yes:
				return YesStyle
			case c.Text == no:
				return NoStyle
			case c.Flagged:
				return OvershootStyle
			}
			return CellStyle
		}).
		String()
}
