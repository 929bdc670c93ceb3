package main

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
)

// Exposed result cap: the ranked list is computed in full, then the top
// N are returned the way the original matching flow surfaced five.
const defaultMatchLimit = 5
const maxMatchLimit = 50

// MatchResult pairs a candidate's score with the display profile.
type MatchResult struct {
	CandidateScore
	Profile *UserProfile `json:"profile,omitempty"`
}

// parseCriteria builds the criteria selection from query parameters
// (?attrs=hometown,hobbies&weights=hometown). With no attrs parameter
// the requester's whole profile is compared, weighting the attributes
// they flagged as preferences.
func parseCriteria(r *http.Request, requester *UserProfile) MatchCriteria {
	var weighted []Attribute
	for _, raw := range strings.Split(r.URL.Query().Get("weights"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			weighted = append(weighted, Attribute(raw))
		}
	}

	attrsParam := strings.TrimSpace(r.URL.Query().Get("attrs"))
	if attrsParam == "" {
		c := defaultCriteria(requester)
		// Explicit weights override the profile's stored preferences.
		if len(weighted) > 0 {
			c.Weighted = weighted
		}
		return c
	}

	c := MatchCriteria{Weighted: weighted}
	for _, raw := range strings.Split(attrsParam, ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			c.Selected = append(c.Selected, Attribute(raw))
		}
	}
	return c
}

// GET /matching/result
// Ranks the candidate pool against the requester's criteria selection
// and returns the top matches hydrated with display profiles.
func matchingResultHandler(store AttributeStore, loader *ProfileLoader) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		me := r.Context().Value(userIDKey).(int)

		// Gate by profile completion before any scoring happens.
		requester, err := store.GetProfile(r.Context(), me)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusForbidden, "incomplete_profile")
				return
			}
			log.Println("matchingResultHandler profile error:", err)
			writeError(w, http.StatusBadGateway, "store_error")
			return
		}
		if !requester.IsComplete() {
			writeError(w, http.StatusForbidden, "incomplete_profile")
			return
		}

		criteria := parseCriteria(r, requester)

		pool, err := store.CandidatePool(r.Context(), me)
		if err != nil {
			log.Println("matchingResultHandler pool error:", err)
			writeError(w, http.StatusBadGateway, "store_error")
			return
		}

		scores, err := Rank(criteria, requester, pool)
		if err != nil {
			var ce *CriteriaError
			if errors.As(err, &ce) {
				writeError(w, http.StatusBadRequest, "invalid_criteria")
				return
			}
			log.Println("matchingResultHandler rank error:", err)
			writeError(w, http.StatusInternalServerError, "ranking_error")
			return
		}

		limit := defaultMatchLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		if limit > maxMatchLimit {
			limit = maxMatchLimit
		}
		if len(scores) > limit {
			scores = scores[:limit]
		}

		// Hydrate the exposed slice through the batched loader so the
		// profile fetch is one query regardless of result size.
		results := make([]MatchResult, 0, len(scores))
		profiles := loader.LoadMany(r.Context(), scoreIDs(scores))
		for i, s := range scores {
			results = append(results, MatchResult{CandidateScore: s, Profile: profiles[i]})
		}
		writeJSON(w, http.StatusOK, map[string][]MatchResult{"matches": results})
	})
}

func scoreIDs(scores []CandidateScore) []int {
	ids := make([]int, len(scores))
	for i, s := range scores {
		ids[i] = s.UserID
	}
	return ids
}
