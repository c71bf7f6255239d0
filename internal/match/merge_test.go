package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_SumsPerNode(t *testing.T) {
	f := newFixture(t, scenarioSchema, Policy{})
	part1 := f.run(t, "Exercise Q1\n// POINTS: 4/5\n")
	part2 := f.run(t, "Exercise Q2a\n// POINTS: 2/3\nExercise Q2b\n// POINTS: 2/2\n")

	merged, err := Merge([]*Document{part1, part2})
	require.NoError(t, err)
	require.Len(t, merged, 2)

	assert.Equal(t, 4.0, merged[0].AchievedTotalPoints)
	assert.Equal(t, 4.0, merged[1].AchievedTotalPoints)
	assert.Equal(t, 2.0, merged[1].SubExercises[0].AchievedAtomicPoints)
	assert.True(t, AllPresent([]*Exercise{merged[0], merged[1].SubExercises[0], merged[1].SubExercises[1]}))
	assert.True(t, AllGraded(merged))

	// inputs are untouched
	assert.Equal(t, 0.0, part1.Exercises[1].AchievedTotalPoints)
	assert.Empty(t, part1.Exercises[1].SubExercises[0].PointsComments)
}

func TestMerge_Empty(t *testing.T) {
	merged, err := Merge(nil)
	require.NoError(t, err)
	assert.Nil(t, merged)
}

func TestMerge_ShapeMismatch(t *testing.T) {
	a := newFixture(t, scenarioSchema, Policy{}).run(t, "")
	b := newFixture(t, `{Q1: 5}`, Policy{}).run(t, "")

	_, err := Merge([]*Document{a, b})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestAggregate_Recomputes(t *testing.T) {
	tree := []*Exercise{{
		Name:           "A",
		PointsComments: []*PointsComment{{Score: 1}, {Score: 0.5}},
		SubExercises: []*Exercise{
			{Name: "B", PointsComments: []*PointsComment{{Score: 2}}},
			{Name: "C", AchievedTotalPoints: 99},
		},
	}}

	Aggregate(tree)

	assert.Equal(t, 1.5, tree[0].AchievedAtomicPoints)
	assert.Equal(t, 3.5, tree[0].AchievedTotalPoints)
	assert.Equal(t, 0.0, tree[0].SubExercises[1].AchievedTotalPoints)
}
