package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

// GET /me/profile  — fetch the caller's attribute mapping.
// POST /me/profile — full replace of the attribute mapping, the same
// semantics as the profile-edit flow in the client.
func meProfileHandler(store AttributeStore) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		me := r.Context().Value(userIDKey).(int)

		switch r.Method {
		case http.MethodGet:
			profile, err := store.GetProfile(r.Context(), me)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					writeError(w, http.StatusNotFound, "not_found")
					return
				}
				log.Println("meProfileHandler fetch error:", err)
				writeError(w, http.StatusBadGateway, "store_error")
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"profile":     profile,
				"is_complete": profile.IsComplete(),
			})

		case http.MethodPost:
			var profile UserProfile
			if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_json")
				return
			}
			profile.UserID = me
			profile.Cluster = -1 // assignments come from the clustering step only

			if err := validateProfile(&profile); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}

			if err := store.UpsertProfile(r.Context(), &profile); err != nil {
				log.Println("meProfileHandler upsert error:", err)
				writeError(w, http.StatusBadGateway, "store_error")
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"is_complete": profile.IsComplete(),
			})

		default:
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
		}
	})
}

// validateProfile normalizes and checks a submitted attribute mapping.
// The returned error text doubles as the response error code.
func validateProfile(p *UserProfile) error {
	cleaned := p.Hobbies[:0]
	seen := make(map[string]bool, len(p.Hobbies))
	for _, h := range p.Hobbies {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		cleaned = append(cleaned, h)
	}
	p.Hobbies = cleaned
	if len(p.Hobbies) > MaxHobbies {
		return errors.New("too_many_hobbies")
	}

	seenPref := make(map[Attribute]bool, len(p.Preferences))
	for _, a := range p.Preferences {
		if !a.Valid() {
			return errors.New("unknown_attribute")
		}
		if seenPref[a] {
			return errors.New("duplicate_preference")
		}
		seenPref[a] = true
	}
	return nil
}
