package match

// IsPresent reports whether the document contains the exercise at least once.
func IsPresent(ex *Exercise) bool {
	return len(ex.ParsedExercises) > 0
}

// IsGraded reports whether every point-carrying node in the subtree has a
// points-comment with an actual score.
func IsGraded(ex *Exercise) bool {
	if ex.AtomicPoints > 0 && !hasScore(ex) {
		return false
	}
	for _, sub := range ex.SubExercises {
		if !IsGraded(sub) {
			return false
		}
	}
	return true
}

func hasScore(ex *Exercise) bool {
	for _, pc := range ex.PointsComments {
		if !pc.IsPlaceholder {
			return true
		}
	}
	return false
}

// AllPresent reports whether every root exercise is present.
func AllPresent(exs []*Exercise) bool {
	for _, ex := range exs {
		if !IsPresent(ex) {
			return false
		}
	}
	return true
}

// AllGraded reports whether every root exercise is graded.
func AllGraded(exs []*Exercise) bool {
	for _, ex := range exs {
		if !IsGraded(ex) {
			return false
		}
	}
	return true
}

// Overshoots reports whether more points were awarded than configured.
func Overshoots(ex *Exercise) bool {
	return ex.AchievedTotalPoints > ex.TotalPoints
}
