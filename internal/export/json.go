package export

import (
	"encoding/json"
	"io"
	"math"

	"gradesync/internal/match"
)

// points marshals NaN and infinities as null.
type points float64

func (p points) MarshalJSON() ([]byte, error) {
	v := float64(p)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(FormatPoints(v)), nil
}

type exerciseJSON struct {
	Name                 string         `json:"name"`
	AtomicPoints         points         `json:"atomicPoints"`
	AchievedAtomicPoints points         `json:"achievedAtomicPoints"`
	TotalPoints          points         `json:"totalPoints"`
	AchievedTotalPoints  points         `json:"achievedTotalPoints"`
	SubExercises         []exerciseJSON `json:"subExercises"`
}

type documentJSON struct {
	Filename  string         `json:"filename"`
	ID        string         `json:"id"`
	Exercises []exerciseJSON `json:"exercises"`
}

func toExercisesJSON(exs []*match.Exercise) []exerciseJSON {
	out := make([]exerciseJSON, len(exs))
	for i, ex := range exs {
		out[i] = exerciseJSON{
			Name:                 ex.Name,
			AtomicPoints:         points(ex.AtomicPoints),
			AchievedAtomicPoints: points(ex.AchievedAtomicPoints),
			TotalPoints:          points(ex.TotalPoints),
			AchievedTotalPoints:  points(ex.AchievedTotalPoints),
			SubExercises:         toExercisesJSON(ex.SubExercises),
		}
	}
	return out
}

// JSON writes every document keyed by owner, unmerged.
func JSON(w io.Writer, grouped map[string][]*match.Document) error {
	out := make(map[string][]documentJSON, len(grouped))
	for owner, docs := range grouped {
		list := make([]documentJSON, len(docs))
		for i, doc := range docs {
			list[i] = documentJSON{
				Filename:  doc.Path,
				ID:        doc.Owner,
				Exercises: toExercisesJSON(doc.Exercises),
			}
		}
		out[owner] = list
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
