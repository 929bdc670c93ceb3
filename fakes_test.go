package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"
)

// Initialize JWT secret for handler tests
func init() {
	jwtSecret = []byte("test-secret-key-for-testing")
}

// fakeStore is an in-memory AttributeStore for handler tests.
type fakeStore struct {
	profiles map[int]*UserProfile
	slackIDs map[int]string
	fail     bool
}

func newFakeStore(profiles ...*UserProfile) *fakeStore {
	s := &fakeStore{
		profiles: make(map[int]*UserProfile),
		slackIDs: make(map[int]string),
	}
	for _, p := range profiles {
		s.profiles[p.UserID] = p
	}
	return s
}

var errFakeDown = errors.New("fake adapter down")

func (s *fakeStore) GetProfile(ctx context.Context, userID int) (*UserProfile, error) {
	if s.fail {
		return nil, adapterErr("store.get_profile", errFakeDown)
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) GetProfiles(ctx context.Context, userIDs []int) ([]*UserProfile, error) {
	if s.fail {
		return nil, adapterErr("store.get_profiles", errFakeDown)
	}
	var out []*UserProfile
	for _, id := range userIDs {
		if p, ok := s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *fakeStore) CandidatePool(ctx context.Context, excludeID int) ([]*UserProfile, error) {
	if s.fail {
		return nil, adapterErr("store.candidate_pool", errFakeDown)
	}
	var pool []*UserProfile
	for _, p := range s.profiles {
		if p.UserID != excludeID && p.IsComplete() {
			pool = append(pool, p)
		}
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].UserID < pool[j].UserID })
	return pool, nil
}

func (s *fakeStore) UpsertProfile(ctx context.Context, p *UserProfile) error {
	if s.fail {
		return adapterErr("store.upsert_profile", errFakeDown)
	}
	s.profiles[p.UserID] = p
	return nil
}

func (s *fakeStore) SlackID(ctx context.Context, userID int) (string, error) {
	if s.fail {
		return "", adapterErr("store.slack_id", errFakeDown)
	}
	id, ok := s.slackIDs[userID]
	if !ok || id == "" {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *fakeStore) SetCluster(ctx context.Context, userID, cluster int) error {
	if s.fail {
		return adapterErr("store.set_cluster", errFakeDown)
	}
	if p, ok := s.profiles[userID]; ok {
		p.Cluster = cluster
	}
	return nil
}

// fakeLedger is an in-memory InterestLedger.
type fakeLedger struct {
	events []LikeEvent
	fail   bool
}

func (l *fakeLedger) RecordLike(ctx context.Context, actorID, targetID int, reason string) error {
	if l.fail {
		return adapterErr("ledger.record_like", errFakeDown)
	}
	for _, e := range l.events {
		if e.ActorID == actorID && e.TargetID == targetID {
			return nil // idempotent upsert
		}
	}
	l.events = append(l.events, LikeEvent{
		ActorID:   actorID,
		TargetID:  targetID,
		Reason:    reason,
		CreatedAt: time.Now(),
	})
	return nil
}

func (l *fakeLedger) LikesBy(ctx context.Context, actorID int) ([]LikeEvent, error) {
	if l.fail {
		return nil, adapterErr("ledger.query", errFakeDown)
	}
	var out []LikeEvent
	for _, e := range l.events {
		if e.ActorID == actorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *fakeLedger) LikesOf(ctx context.Context, targetID int) ([]LikeEvent, error) {
	if l.fail {
		return nil, adapterErr("ledger.query", errFakeDown)
	}
	var out []LikeEvent
	for _, e := range l.events {
		if e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *fakeLedger) EventsTouching(ctx context.Context, userID int) ([]LikeEvent, error) {
	if l.fail {
		return nil, adapterErr("ledger.query", errFakeDown)
	}
	var out []LikeEvent
	for _, e := range l.events {
		if e.ActorID == userID || e.TargetID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeBridge is a canned ChannelBridge.
type fakeBridge struct {
	lookup    map[string]string // email -> member id
	dmURL     string
	sharedURL string
	err       error

	openedWith []string // recorded OpenConversation args
	sharedKeys []string // recorded OpenSharedChannel keys
}

func (b *fakeBridge) LookupUserByEmail(ctx context.Context, email string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	id, ok := b.lookup[email]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (b *fakeBridge) OpenConversation(ctx context.Context, idA, idB string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.openedWith = append(b.openedWith, idA, idB)
	return b.dmURL, nil
}

func (b *fakeBridge) OpenSharedChannel(ctx context.Context, clusterKey string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.sharedKeys = append(b.sharedKeys, clusterKey)
	return b.sharedURL, nil
}

// newAuthedRequest builds a request with a valid bearer token for userID.
func newAuthedRequest(t *testing.T, userID int, method, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	token, err := issueToken(userID)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// completeProfile returns a fully filled profile for tests.
func completeProfile(userID int) *UserProfile {
	return &UserProfile{
		UserID:      userID,
		Hobbies:     []string{"読書", "旅行"},
		Hometown:    "東京都",
		Field:       "IT",
		Role:        "SE",
		Personality: "INTJ",
		AlmaMater:   "東京大学",
		Preferences: []Attribute{AttrHometown},
		Cluster:     -1,
	}
}
