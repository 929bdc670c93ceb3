package main

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"
)

// The core logic never touches *sql.DB directly: handlers receive these
// adapter contracts so the scoring engine and match resolver stay pure
// and tests can run against in-memory fakes.

// AttributeStore is the read/write contract over per-user profile
// attributes and the user directory bits the matching flow needs.
type AttributeStore interface {
	// GetProfile returns ErrNotFound when the user has no attribute row.
	GetProfile(ctx context.Context, userID int) (*UserProfile, error)
	// GetProfiles batch-loads profiles; users without an attribute row
	// are simply absent from the result.
	GetProfiles(ctx context.Context, userIDs []int) ([]*UserProfile, error)
	// CandidatePool returns every complete profile except excludeID's.
	CandidatePool(ctx context.Context, excludeID int) ([]*UserProfile, error)
	// UpsertProfile replaces the user's attribute mapping wholesale.
	UpsertProfile(ctx context.Context, p *UserProfile) error
	// SlackID resolves the chat-platform identity stored at registration.
	SlackID(ctx context.Context, userID int) (string, error)
	// SetCluster persists a k-means group assignment.
	SetCluster(ctx context.Context, userID, cluster int) error
}

// InterestLedger is the append-only record of directional like events.
type InterestLedger interface {
	// RecordLike is an idempotent upsert: re-liking the same target is
	// accepted and changes nothing.
	RecordLike(ctx context.Context, actorID, targetID int, reason string) error
	// LikesBy returns every event with the given actor.
	LikesBy(ctx context.Context, actorID int) ([]LikeEvent, error)
	// LikesOf returns every event with the given target.
	LikesOf(ctx context.Context, targetID int) ([]LikeEvent, error)
	// EventsTouching returns a snapshot of all events where the user is
	// actor or target, for the match resolver to classify.
	EventsTouching(ctx context.Context, userID int) ([]LikeEvent, error)
}

// --- Postgres implementations ---

type pgAttributeStore struct {
	db *sql.DB
}

func NewPgAttributeStore(db *sql.DB) AttributeStore {
	return &pgAttributeStore{db: db}
}

const profileColumns = `
	a.user_id, a.hobbies, a.hometown, a.field, a.role,
	a.personality_type, a.alma_mater, COALESCE(a.self_intro, ''),
	a.preferences, COALESCE(u.cluster, -1)
`

func scanProfile(scan func(dest ...interface{}) error) (*UserProfile, error) {
	var p UserProfile
	var hobbiesRaw, prefsRaw []byte
	err := scan(
		&p.UserID, &hobbiesRaw, &p.Hometown, &p.Field, &p.Role,
		&p.Personality, &p.AlmaMater, &p.SelfIntro,
		&prefsRaw, &p.Cluster,
	)
	if err != nil {
		return nil, err
	}
	if len(hobbiesRaw) > 0 {
		_ = json.Unmarshal(hobbiesRaw, &p.Hobbies)
	}
	if len(prefsRaw) > 0 {
		_ = json.Unmarshal(prefsRaw, &p.Preferences)
	}
	return &p, nil
}

func (s *pgAttributeStore) GetProfile(ctx context.Context, userID int) (*UserProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM user_attributes a
		JOIN users u ON u.id = a.user_id
		WHERE a.user_id = $1
	`, userID)
	p, err := scanProfile(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, adapterErr("store.get_profile", err)
	}
	return p, nil
}

func (s *pgAttributeStore) GetProfiles(ctx context.Context, userIDs []int) ([]*UserProfile, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM user_attributes a
		JOIN users u ON u.id = a.user_id
		WHERE a.user_id = ANY($1)
	`, pq.Array(userIDs))
	if err != nil {
		return nil, adapterErr("store.get_profiles", err)
	}
	defer rows.Close()

	var profiles []*UserProfile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, adapterErr("store.get_profiles", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *pgAttributeStore) CandidatePool(ctx context.Context, excludeID int) ([]*UserProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM user_attributes a
		JOIN users u ON u.id = a.user_id
		WHERE a.user_id <> $1
		  AND a.hometown <> '' AND a.field <> '' AND a.role <> ''
		  AND a.personality_type <> '' AND a.alma_mater <> ''
		ORDER BY a.user_id
	`, excludeID)
	if err != nil {
		return nil, adapterErr("store.candidate_pool", err)
	}
	defer rows.Close()

	var pool []*UserProfile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, adapterErr("store.candidate_pool", err)
		}
		// Completeness of the hobby set is checked here rather than in
		// SQL so the JSONB encoding stays an implementation detail.
		if p.IsComplete() {
			pool = append(pool, p)
		}
	}
	return pool, rows.Err()
}

func (s *pgAttributeStore) UpsertProfile(ctx context.Context, p *UserProfile) error {
	hobbies, err := json.Marshal(p.Hobbies)
	if err != nil {
		return adapterErr("store.upsert_profile", err)
	}
	prefs, err := json.Marshal(p.Preferences)
	if err != nil {
		return adapterErr("store.upsert_profile", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_attributes
			(user_id, hobbies, hometown, field, role, personality_type, alma_mater, self_intro, preferences)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			hobbies = EXCLUDED.hobbies,
			hometown = EXCLUDED.hometown,
			field = EXCLUDED.field,
			role = EXCLUDED.role,
			personality_type = EXCLUDED.personality_type,
			alma_mater = EXCLUDED.alma_mater,
			self_intro = EXCLUDED.self_intro,
			preferences = EXCLUDED.preferences,
			updated_at = NOW()
	`, p.UserID, hobbies, p.Hometown, p.Field, p.Role, p.Personality, p.AlmaMater, p.SelfIntro, prefs)
	if err != nil {
		return adapterErr("store.upsert_profile", err)
	}
	return nil
}

func (s *pgAttributeStore) SlackID(ctx context.Context, userID int) (string, error) {
	var slackID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT slack_id FROM users WHERE id = $1`, userID).Scan(&slackID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	} else if err != nil {
		return "", adapterErr("store.slack_id", err)
	}
	if !slackID.Valid || slackID.String == "" {
		return "", ErrNotFound
	}
	return slackID.String, nil
}

func (s *pgAttributeStore) SetCluster(ctx context.Context, userID, cluster int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET cluster = $2 WHERE id = $1`, userID, cluster)
	if err != nil {
		return adapterErr("store.set_cluster", err)
	}
	return nil
}

type pgInterestLedger struct {
	db *sql.DB
}

func NewPgInterestLedger(db *sql.DB) InterestLedger {
	return &pgInterestLedger{db: db}
}

func (l *pgInterestLedger) RecordLike(ctx context.Context, actorID, targetID int, reason string) error {
	// Unique (user_id, target_user_id) + DO NOTHING makes re-liking a
	// no-op, same pattern as dismissals elsewhere in the schema.
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO likes (user_id, target_user_id, reason)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, target_user_id) DO NOTHING
	`, actorID, targetID, nullIfEmpty(reason))
	if err != nil {
		return adapterErr("ledger.record_like", err)
	}
	return nil
}

func (l *pgInterestLedger) LikesBy(ctx context.Context, actorID int) ([]LikeEvent, error) {
	return l.query(ctx, `WHERE user_id = $1`, actorID)
}

func (l *pgInterestLedger) LikesOf(ctx context.Context, targetID int) ([]LikeEvent, error) {
	return l.query(ctx, `WHERE target_user_id = $1`, targetID)
}

func (l *pgInterestLedger) EventsTouching(ctx context.Context, userID int) ([]LikeEvent, error) {
	return l.query(ctx, `WHERE user_id = $1 OR target_user_id = $1`, userID)
}

func (l *pgInterestLedger) query(ctx context.Context, where string, arg int) ([]LikeEvent, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT user_id, target_user_id, COALESCE(reason, ''), created_at
		FROM likes `+where+`
		ORDER BY created_at ASC, user_id ASC
	`, arg)
	if err != nil {
		return nil, adapterErr("ledger.query", err)
	}
	defer rows.Close()

	var events []LikeEvent
	for rows.Next() {
		var e LikeEvent
		if err := rows.Scan(&e.ActorID, &e.TargetID, &e.Reason, &e.CreatedAt); err != nil {
			return nil, adapterErr("ledger.query", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
