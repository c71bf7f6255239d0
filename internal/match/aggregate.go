package match

// Aggregate recomputes achieved points bottom-up. Scores are summed as they
// are: totals may exceed the configured maximum and a NaN score propagates.
func Aggregate(exs []*Exercise) {
	for _, ex := range exs {
		aggregate(ex)
	}
}

func aggregate(ex *Exercise) {
	ex.AchievedAtomicPoints = 0
	for _, pc := range ex.PointsComments {
		ex.AchievedAtomicPoints += pc.Score
	}
	total := ex.AchievedAtomicPoints
	for _, sub := range ex.SubExercises {
		aggregate(sub)
		total += sub.AchievedTotalPoints
	}
	ex.AchievedTotalPoints = total
}
