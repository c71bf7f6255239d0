// Package export writes the scored exercise trees of all owners as CSV or
// JSON.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gradesync/internal/match"
	"gradesync/internal/schema"
)

// FormatPoints renders a score the shortest way that round-trips.
func FormatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CSV writes one row per owner: the achieved total of every exercise in
// pre-order followed by the owner's total. The documents of an owner are
// merged first.
func CSV(w io.Writer, exs []*schema.Exercise, grouped map[string][]*match.Document) error {
	cw := csv.NewWriter(w)

	header := append([]string{"id"}, schema.Names(exs)...)
	header = append(header, "Total")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, owner := range match.Owners(grouped) {
		merged, err := match.Merge(grouped[owner])
		if err != nil {
			return fmt.Errorf("owner %s: %w", owner, err)
		}
		flat := schema.Flatten(merged)
		if len(flat) != len(header)-2 {
			return fmt.Errorf("owner %s: %w", owner, match.ErrShapeMismatch)
		}

		row := make([]string, 0, len(header))
		row = append(row, owner)
		var total float64
		for _, ex := range flat {
			row = append(row, FormatPoints(ex.AchievedTotalPoints))
		}
		for _, ex := range merged {
			total += ex.AchievedTotalPoints
		}
		row = append(row, FormatPoints(total))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
