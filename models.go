package main

import "time"

// Attribute names form a closed enumeration shared by the scoring engine,
// the store adapters and the clustering step. Keeping it in one place
// prevents drift between stored column names and compared attribute names.
type Attribute string

const (
	AttrHobbies     Attribute = "hobbies"
	AttrHometown    Attribute = "hometown"
	AttrField       Attribute = "field"
	AttrRole        Attribute = "role"
	AttrPersonality Attribute = "personality_type"
	AttrAlmaMater   Attribute = "alma_mater"
)

// allAttributes is the canonical ordering, used for default criteria and
// for building deterministic feature vectors in clustering.
var allAttributes = []Attribute{
	AttrHobbies,
	AttrHometown,
	AttrField,
	AttrRole,
	AttrPersonality,
	AttrAlmaMater,
}

// MaxHobbies caps the hobby tag set a profile may carry.
const MaxHobbies = 3

func (a Attribute) Valid() bool {
	for _, known := range allAttributes {
		if a == known {
			return true
		}
	}
	return false
}

// IsSetValued reports whether the attribute holds a tag set rather than a
// single categorical value. Only hobbies is set-valued.
func (a Attribute) IsSetValued() bool {
	return a == AttrHobbies
}

// UserProfile holds one user's matching attributes.
type UserProfile struct {
	UserID      int         `json:"user_id"`
	Hobbies     []string    `json:"hobbies"`
	Hometown    string      `json:"hometown"`
	Field       string      `json:"field"`
	Role        string      `json:"role"`
	Personality string      `json:"personality_type"`
	AlmaMater   string      `json:"alma_mater"`
	SelfIntro   string      `json:"self_intro,omitempty"`
	Preferences []Attribute `json:"preferences"`
	// Cluster is the k-means group assignment, -1 while unassigned.
	Cluster int `json:"cluster"`
}

// Value returns the single categorical value for a non-set attribute.
// Hobbies has no single value and always returns "".
func (p *UserProfile) Value(a Attribute) string {
	switch a {
	case AttrHometown:
		return p.Hometown
	case AttrField:
		return p.Field
	case AttrRole:
		return p.Role
	case AttrPersonality:
		return p.Personality
	case AttrAlmaMater:
		return p.AlmaMater
	}
	return ""
}

// HasValue reports whether the profile carries a usable value for the
// attribute: a non-empty hobby set, or a non-empty categorical value.
func (p *UserProfile) HasValue(a Attribute) bool {
	if a == AttrHobbies {
		return len(p.Hobbies) > 0
	}
	return p.Value(a) != ""
}

// IsComplete mirrors the profile-completion gate: matching is only
// offered once every attribute has been filled in.
func (p *UserProfile) IsComplete() bool {
	for _, a := range allAttributes {
		if !p.HasValue(a) {
			return false
		}
	}
	return true
}

// MatchCriteria is the requester's ephemeral criteria selection: which
// attributes to compare, and which of those count double. The concrete
// values always come from the requester's own profile at scoring time.
type MatchCriteria struct {
	Selected []Attribute `json:"selected"`
	Weighted []Attribute `json:"weighted"`
}

// CandidateScore is one scored candidate, recomputed on demand and never
// persisted. Per-attribute degrees are retained for display.
type CandidateScore struct {
	UserID int     `json:"user_id"`
	Score  float64 `json:"match_score"`
	// Degrees maps each selected attribute to its match degree in [0,1].
	Degrees map[Attribute]float64 `json:"degrees"`
	// MatchedCount is the number of selected attributes with a nonzero
	// degree; it is the first tie-break after the aggregate score.
	MatchedCount int `json:"matched_count"`
}

// LikeEvent is one directional "actor is interested in target" record.
// Rows are append-only; re-liking the same target is a no-op upsert.
type LikeEvent struct {
	ActorID   int       `json:"actor_id"`
	TargetID  int       `json:"target_id"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PairState classifies directional interest between two users.
//
// STATE MACHINE (per pair; a like insertion is the only trigger)
// no_interest -> one_way: first like in either direction.
// one_way -> mutual: the reciprocal like appears.
// mutual is terminal; there is no unlike path.
type PairState string

const (
	PairNoInterest PairState = "no_interest"
	PairOneWay     PairState = "one_way"
	PairMutual     PairState = "mutual"
)
