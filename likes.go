package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Match resolver: pure functions over a ledger snapshot. The ledger
// itself is owned by the InterestLedger adapter; these only classify.

// isMutual reports whether both directional likes exist in the snapshot.
// Symmetric in u and v, and insensitive to event order or duplicates.
func isMutual(u, v int, events []LikeEvent) bool {
	var uv, vu bool
	for _, e := range events {
		if e.ActorID == u && e.TargetID == v {
			uv = true
		}
		if e.ActorID == v && e.TargetID == u {
			vu = true
		}
	}
	return uv && vu
}

// pairState classifies the (u,v) pair from a ledger snapshot.
func pairState(u, v int, events []LikeEvent) PairState {
	var uv, vu bool
	for _, e := range events {
		if e.ActorID == u && e.TargetID == v {
			uv = true
		}
		if e.ActorID == v && e.TargetID == u {
			vu = true
		}
	}
	switch {
	case uv && vu:
		return PairMutual
	case uv || vu:
		return PairOneWay
	default:
		return PairNoInterest
	}
}

// likedByMe projects the snapshot onto the set of users u has liked.
func likedByMe(u int, events []LikeEvent) map[int]bool {
	targets := make(map[int]bool)
	for _, e := range events {
		if e.ActorID == u {
			targets[e.TargetID] = true
		}
	}
	return targets
}

// likedMe projects the snapshot onto the set of users who liked u.
func likedMe(u int, events []LikeEvent) map[int]bool {
	actors := make(map[int]bool)
	for _, e := range events {
		if e.TargetID == u {
			actors[e.ActorID] = true
		}
	}
	return actors
}

// matchesOf is the intersection of likedByMe and likedMe, sorted
// ascending for stable output.
func matchesOf(u int, events []LikeEvent) []int {
	mine := likedByMe(u, events)
	theirs := likedMe(u, events)
	matches := make([]int, 0, len(mine))
	for id := range mine {
		if theirs[id] {
			matches = append(matches, id)
		}
	}
	sort.Ints(matches)
	return matches
}

// --- HTTP handlers ---

// POST /likes/{id}
// Records a directional like from the authenticated user to {id} and
// reports the resulting pair state. Re-liking is idempotent; entering
// the mutual state makes the pair eligible for a chat channel, but the
// bridge is never called from here.
func recordLikeHandler(store AttributeStore, ledger InterestLedger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 2 || parts[0] != "likes" {
			http.NotFound(w, r)
			return
		}
		targetID, err := strconv.Atoi(parts[1])
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		me := r.Context().Value(userIDKey).(int)
		if targetID == me {
			writeError(w, http.StatusBadRequest, "invalid_target")
			return
		}

		// Optional reason body: {"reason": "..."}
		var body struct {
			Reason string `json:"reason"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}

		// Target must exist with an attribute row.
		if _, err := store.GetProfile(r.Context(), targetID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found")
				return
			}
			log.Println("recordLikeHandler profile lookup error:", err)
			writeError(w, http.StatusBadGateway, "store_error")
			return
		}

		if err := ledger.RecordLike(r.Context(), me, targetID, body.Reason); err != nil {
			log.Println("recordLikeHandler ledger error:", err)
			writeError(w, http.StatusBadGateway, "ledger_error")
			return
		}

		events, err := ledger.EventsTouching(r.Context(), me)
		if err != nil {
			log.Println("recordLikeHandler snapshot error:", err)
			writeError(w, http.StatusBadGateway, "ledger_error")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"state": pairState(me, targetID, events),
		})
	})
}

// LikeEntry is one row of the "users I liked" listing, with the derived
// mutual flag the UI uses to show the match badge and chat button.
type LikeEntry struct {
	UserID   int    `json:"user_id"`
	Reason   string `json:"reason,omitempty"`
	IsMutual bool   `json:"is_mutual"`
}

// GET /likes — users the authenticated user has liked.
func likesHandler(ledger InterestLedger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		me := r.Context().Value(userIDKey).(int)

		mine, err := ledger.LikesBy(r.Context(), me)
		if err != nil {
			log.Println("likesHandler query error:", err)
			writeError(w, http.StatusBadGateway, "ledger_error")
			return
		}
		received, err := ledger.LikesOf(r.Context(), me)
		if err != nil {
			log.Println("likesHandler query error:", err)
			writeError(w, http.StatusBadGateway, "ledger_error")
			return
		}
		reciprocal := likedMe(me, received)

		entries := []LikeEntry{}
		for _, e := range mine {
			entries = append(entries, LikeEntry{
				UserID:   e.TargetID,
				Reason:   e.Reason,
				IsMutual: reciprocal[e.TargetID],
			})
		}
		writeJSON(w, http.StatusOK, map[string][]LikeEntry{"likes": entries})
	})
}

// GET /likes/received — users who liked the authenticated user.
func likesReceivedHandler(ledger InterestLedger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		me := r.Context().Value(userIDKey).(int)

		received, err := ledger.LikesOf(r.Context(), me)
		if err != nil {
			log.Println("likesReceivedHandler query error:", err)
			writeError(w, http.StatusBadGateway, "ledger_error")
			return
		}
		sent, err := ledger.LikesBy(r.Context(), me)
		if err != nil {
			log.Println("likesReceivedHandler query error:", err)
			writeError(w, http.StatusBadGateway, "ledger_error")
			return
		}
		mine := likedByMe(me, sent)

		entries := []LikeEntry{}
		for _, e := range received {
			entries = append(entries, LikeEntry{
				UserID:   e.ActorID,
				Reason:   e.Reason,
				IsMutual: mine[e.ActorID],
			})
		}
		writeJSON(w, http.StatusOK, map[string][]LikeEntry{"likes": entries})
	})
}

// GET /matches — ids of users with confirmed mutual interest.
func matchesHandler(ledger InterestLedger) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		me := r.Context().Value(userIDKey).(int)

		events, err := ledger.EventsTouching(r.Context(), me)
		if err != nil {
			log.Println("matchesHandler snapshot error:", err)
			writeError(w, http.StatusBadGateway, "ledger_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string][]int{"matches": matchesOf(me, events)})
	})
}

// matchesActionsRouter dispatches /matches/{id}/channel.
func matchesActionsRouter(store AttributeStore, ledger InterestLedger, bridge ChannelBridge) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) == 3 && parts[0] == "matches" && parts[2] == "channel" {
			matchChannelHandler(store, ledger, bridge).ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	}
}

// GET /matches/{id}/channel
// Opens (or reopens) the chat-platform conversation for a mutual pair.
// Gated on mutual state: one-directional interest never reaches the
// bridge. Bridge failures surface as retryable, no automatic retry.
func matchChannelHandler(store AttributeStore, ledger InterestLedger, bridge ChannelBridge) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		if bridge == nil {
			writeError(w, http.StatusServiceUnavailable, "channel_unavailable")
			return
		}
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		peerID, err := strconv.Atoi(parts[1])
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}

		me := r.Context().Value(userIDKey).(int)
		if peerID == me {
			writeError(w, http.StatusBadRequest, "invalid_target")
			return
		}

		events, err := ledger.EventsTouching(r.Context(), me)
		if err != nil {
			log.Println("matchChannelHandler snapshot error:", err)
			writeError(w, http.StatusBadGateway, "ledger_error")
			return
		}
		if !isMutual(me, peerID, events) {
			writeError(w, http.StatusConflict, "not_mutual")
			return
		}

		myID, err := store.SlackID(r.Context(), me)
		if err == nil {
			var peerSlackID string
			peerSlackID, err = store.SlackID(r.Context(), peerID)
			if err == nil {
				var url string
				url, err = bridge.OpenConversation(r.Context(), myID, peerSlackID)
				if err == nil {
					writeJSON(w, http.StatusOK, map[string]string{"url": url})
					return
				}
			}
		}

		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "no_chat_identity")
			return
		}
		log.Println("matchChannelHandler bridge error:", err)
		writeError(w, http.StatusBadGateway, "channel_unavailable")
	})
}
