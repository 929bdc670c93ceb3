package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoringSuite(t *testing.T) {
	t.Run("ReferenceScenario", testRankReferenceScenario)
	t.Run("CriteriaValidation", testCriteriaValidation)
	t.Run("HobbyOverlap", testHobbyOverlap)
	t.Run("TieBreaks", testRankTieBreaks)
	t.Run("EdgeCases", testRankEdgeCases)
}

// The worked example: requester compares hometown and hobbies, weighting
// hometown. X shares the hometown and one of two hobbies (1*2 + 0.5*1 =
// 2.5); Y shares only both hobbies (0*2 + 1*1 = 1). Ranking is [X, Y].
func testRankReferenceScenario(t *testing.T) {
	requester := &UserProfile{
		UserID:   1,
		Hometown: "東京都",
		Hobbies:  []string{"読書", "旅行"},
	}
	candidateX := &UserProfile{
		UserID:   2,
		Hometown: "東京都",
		Hobbies:  []string{"読書", "映画鑑賞"},
	}
	candidateY := &UserProfile{
		UserID:   3,
		Hometown: "大阪府",
		Hobbies:  []string{"読書", "旅行"},
	}
	criteria := MatchCriteria{
		Selected: []Attribute{AttrHometown, AttrHobbies},
		Weighted: []Attribute{AttrHometown},
	}

	scores, err := Rank(criteria, requester, []*UserProfile{candidateY, candidateX})
	require.NoError(t, err)
	require.Len(t, scores, 2)

	assert.Equal(t, 2, scores[0].UserID)
	assert.InDelta(t, 2.5, scores[0].Score, 1e-9)
	assert.InDelta(t, 1.0, scores[0].Degrees[AttrHometown], 1e-9)
	assert.InDelta(t, 0.5, scores[0].Degrees[AttrHobbies], 1e-9)

	assert.Equal(t, 3, scores[1].UserID)
	assert.InDelta(t, 1.0, scores[1].Score, 1e-9)
	assert.InDelta(t, 0.0, scores[1].Degrees[AttrHometown], 1e-9)
	assert.InDelta(t, 1.0, scores[1].Degrees[AttrHobbies], 1e-9)
}

func testCriteriaValidation(t *testing.T) {
	requester := completeProfile(1)

	t.Run("NoAttributeSelected", func(t *testing.T) {
		_, err := Rank(MatchCriteria{}, requester, nil)
		var ce *CriteriaError
		require.ErrorAs(t, err, &ce)
	})

	t.Run("UnknownAttribute", func(t *testing.T) {
		criteria := MatchCriteria{Selected: []Attribute{"shoe_size"}}
		_, err := Rank(criteria, requester, nil)
		var ce *CriteriaError
		require.ErrorAs(t, err, &ce)
	})

	t.Run("WeightedOutsideSelection", func(t *testing.T) {
		criteria := MatchCriteria{
			Selected: []Attribute{AttrHometown},
			Weighted: []Attribute{AttrField},
		}
		_, err := Rank(criteria, requester, nil)
		var ce *CriteriaError
		require.ErrorAs(t, err, &ce)
	})

	t.Run("SelectedWithoutRequesterValue", func(t *testing.T) {
		sparse := &UserProfile{UserID: 1, Hometown: "東京都"}
		criteria := MatchCriteria{Selected: []Attribute{AttrHometown, AttrField}}
		_, err := Rank(criteria, sparse, nil)
		var ce *CriteriaError
		require.ErrorAs(t, err, &ce)
	})
}

func testHobbyOverlap(t *testing.T) {
	t.Run("DisjointSetsScoreZero", func(t *testing.T) {
		degree := hobbyOverlap([]string{"読書", "旅行"}, []string{"料理", "登山"})
		assert.Equal(t, 0.0, degree)
	})

	t.Run("IdenticalSetsScoreOne", func(t *testing.T) {
		degree := hobbyOverlap([]string{"読書", "旅行", "映画鑑賞"}, []string{"映画鑑賞", "読書", "旅行"})
		assert.Equal(t, 1.0, degree)
	})

	t.Run("NormalizedByRequesterSetSize", func(t *testing.T) {
		degree := hobbyOverlap([]string{"読書", "旅行", "映画鑑賞"}, []string{"読書"})
		assert.InDelta(t, 1.0/3.0, degree, 1e-9)
	})

	t.Run("DuplicateTagsCountOnce", func(t *testing.T) {
		degree := hobbyOverlap([]string{"読書", "読書"}, []string{"読書"})
		assert.Equal(t, 1.0, degree)
	})

	t.Run("CaseSensitive", func(t *testing.T) {
		degree := hobbyOverlap([]string{"Reading"}, []string{"reading"})
		assert.Equal(t, 0.0, degree)
	})
}

func testRankTieBreaks(t *testing.T) {
	requester := &UserProfile{
		UserID:   1,
		Hometown: "東京都",
		Field:    "IT",
		Hobbies:  []string{"読書", "旅行"},
	}
	criteria := MatchCriteria{
		Selected: []Attribute{AttrHometown, AttrField, AttrHobbies},
	}

	t.Run("IdenticalCandidatesOrderedByID", func(t *testing.T) {
		// Same values on every selected attribute: both get the maximum
		// score and only the id tie-break separates them.
		twinA := &UserProfile{UserID: 9, Hometown: "東京都", Field: "IT", Hobbies: []string{"読書", "旅行"}}
		twinB := &UserProfile{UserID: 4, Hometown: "東京都", Field: "IT", Hobbies: []string{"読書", "旅行"}}

		scores, err := Rank(criteria, requester, []*UserProfile{twinA, twinB})
		require.NoError(t, err)
		require.Len(t, scores, 2)

		assert.Equal(t, scores[0].Score, scores[1].Score)
		assert.InDelta(t, 3.0, scores[0].Score, 1e-9) // max for this selection
		assert.Equal(t, 4, scores[0].UserID)
		assert.Equal(t, 9, scores[1].UserID)
	})

	t.Run("MoreMatchedAttributesWinEqualScore", func(t *testing.T) {
		// Equal aggregate score, different spread: two matched attributes
		// outrank one weighted match of the same total, regardless of id.
		weightedCriteria := MatchCriteria{
			Selected: []Attribute{AttrHometown, AttrField, AttrHobbies},
			Weighted: []Attribute{AttrHobbies},
		}
		focused := &UserProfile{UserID: 9, Hometown: "大阪府", Field: "経済", Hobbies: []string{"読書", "旅行"}} // 0 + 0 + 1*2 = 2, matched 1
		spread := &UserProfile{UserID: 10, Hometown: "東京都", Field: "IT", Hobbies: []string{"料理", "登山"}}   // 1 + 1 + 0*2 = 2, matched 2

		scores, err := Rank(weightedCriteria, requester, []*UserProfile{focused, spread})
		require.NoError(t, err)
		require.Len(t, scores, 2)

		assert.Equal(t, scores[0].Score, scores[1].Score)
		assert.Equal(t, 10, scores[0].UserID)
		assert.Equal(t, 2, scores[0].MatchedCount)
		assert.Equal(t, 9, scores[1].UserID)
		assert.Equal(t, 1, scores[1].MatchedCount)
	})
}

func testRankEdgeCases(t *testing.T) {
	requester := completeProfile(1)
	criteria := MatchCriteria{Selected: []Attribute{AttrHometown}}

	t.Run("EmptyPool", func(t *testing.T) {
		scores, err := Rank(criteria, requester, nil)
		require.NoError(t, err)
		assert.Empty(t, scores)
	})

	t.Run("RequesterExcludedFromPool", func(t *testing.T) {
		scores, err := Rank(criteria, requester, []*UserProfile{requester})
		require.NoError(t, err)
		assert.Empty(t, scores)
	})

	t.Run("NilCandidateSkipped", func(t *testing.T) {
		other := completeProfile(2)
		scores, err := Rank(criteria, requester, []*UserProfile{nil, other})
		require.NoError(t, err)
		require.Len(t, scores, 1)
		assert.Equal(t, 2, scores[0].UserID)
	})

	t.Run("FullListReturnedWithTies", func(t *testing.T) {
		pool := []*UserProfile{}
		for id := 2; id <= 12; id++ {
			p := completeProfile(id)
			pool = append(pool, p)
		}
		scores, err := Rank(criteria, requester, pool)
		require.NoError(t, err)
		// The engine never caps; all tied candidates come back.
		assert.Len(t, scores, 11)
	})
}

func TestDefaultCriteria(t *testing.T) {
	t.Run("SelectsAllFilledAttributes", func(t *testing.T) {
		p := completeProfile(1)
		c := defaultCriteria(p)
		assert.ElementsMatch(t, allAttributes, c.Selected)
		assert.Equal(t, []Attribute{AttrHometown}, c.Weighted)
	})

	t.Run("SkipsEmptyAttributes", func(t *testing.T) {
		p := &UserProfile{UserID: 1, Hometown: "東京都", Preferences: []Attribute{AttrField}}
		c := defaultCriteria(p)
		assert.Equal(t, []Attribute{AttrHometown}, c.Selected)
		// Preference for an unselected attribute is dropped, keeping the
		// weighted-subset invariant.
		assert.Empty(t, c.Weighted)
	})
}
