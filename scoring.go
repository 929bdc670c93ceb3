package main

import "sort"

// Pure scoring engine: ranks a candidate pool against the requester's
// criteria selection. No I/O, no side effects; callers fetch profiles
// through the attribute store and pass them in.

const (
	// Attributes the requester flagged as preferences count double.
	preferredWeight = 2.0
	defaultWeight   = 1.0
)

// validateCriteria enforces the scoring preconditions: at least one
// selected attribute, all names known, weighted subset of selected, and
// a usable requester value for every selected attribute.
func validateCriteria(criteria MatchCriteria, requester *UserProfile) error {
	if len(criteria.Selected) == 0 {
		return &CriteriaError{Reason: "no attributes selected"}
	}
	selected := make(map[Attribute]bool, len(criteria.Selected))
	for _, a := range criteria.Selected {
		if !a.Valid() {
			return &CriteriaError{Reason: "unknown attribute " + string(a)}
		}
		selected[a] = true
	}
	for _, a := range criteria.Weighted {
		if !selected[a] {
			return &CriteriaError{Reason: "weighted attribute " + string(a) + " is not selected"}
		}
	}
	for _, a := range criteria.Selected {
		if !requester.HasValue(a) {
			return &CriteriaError{Reason: "requester has no value for " + string(a)}
		}
	}
	return nil
}

// hobbyOverlap is the size of the intersection between the requester's
// and the candidate's hobby sets, normalized by the requester's set size
// so the degree stays in [0,1]. Sharing 1 of 3 hobbies yields 0.33.
func hobbyOverlap(requesterHobbies, candidateHobbies []string) float64 {
	if len(requesterHobbies) == 0 {
		return 0
	}
	candidateSet := make(map[string]bool, len(candidateHobbies))
	for _, h := range candidateHobbies {
		candidateSet[h] = true
	}
	shared := 0
	seen := make(map[string]bool, len(requesterHobbies))
	for _, h := range requesterHobbies {
		if seen[h] {
			continue
		}
		seen[h] = true
		if candidateSet[h] {
			shared++
		}
	}
	return float64(shared) / float64(len(seen))
}

// matchDegree computes a single attribute's degree in [0,1]: set overlap
// for hobbies, exact case-sensitive equality for everything else.
func matchDegree(a Attribute, requester, candidate *UserProfile) float64 {
	if a.IsSetValued() {
		return hobbyOverlap(requester.Hobbies, candidate.Hobbies)
	}
	if requester.Value(a) == candidate.Value(a) {
		return 1
	}
	return 0
}

// Rank scores every candidate in the pool against the requester's
// criteria and returns the full ordered list: aggregate score
// descending, then count of matched attributes descending, then
// candidate id ascending so results are fully deterministic. The
// requester is excluded from the pool; an empty pool yields an empty
// list, not an error.
func Rank(criteria MatchCriteria, requester *UserProfile, pool []*UserProfile) ([]CandidateScore, error) {
	if err := validateCriteria(criteria, requester); err != nil {
		return nil, err
	}

	weighted := make(map[Attribute]bool, len(criteria.Weighted))
	for _, a := range criteria.Weighted {
		weighted[a] = true
	}

	scores := make([]CandidateScore, 0, len(pool))
	for _, candidate := range pool {
		if candidate == nil || candidate.UserID == requester.UserID {
			continue
		}
		cs := CandidateScore{
			UserID:  candidate.UserID,
			Degrees: make(map[Attribute]float64, len(criteria.Selected)),
		}
		for _, a := range criteria.Selected {
			degree := matchDegree(a, requester, candidate)
			cs.Degrees[a] = degree
			if degree > 0 {
				cs.MatchedCount++
			}
			weight := defaultWeight
			if weighted[a] {
				weight = preferredWeight
			}
			cs.Score += degree * weight
		}
		scores = append(scores, cs)
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if scores[i].MatchedCount != scores[j].MatchedCount {
			return scores[i].MatchedCount > scores[j].MatchedCount
		}
		return scores[i].UserID < scores[j].UserID
	})
	return scores, nil
}

// defaultCriteria selects every attribute the requester has a value for,
// weighting the ones flagged as preferences. Used when the request does
// not carry an explicit selection.
func defaultCriteria(requester *UserProfile) MatchCriteria {
	var c MatchCriteria
	for _, a := range allAttributes {
		if requester.HasValue(a) {
			c.Selected = append(c.Selected, a)
		}
	}
	selected := make(map[Attribute]bool, len(c.Selected))
	for _, a := range c.Selected {
		selected[a] = true
	}
	for _, a := range requester.Preferences {
		if selected[a] {
			c.Weighted = append(c.Weighted, a)
		}
	}
	return c
}
