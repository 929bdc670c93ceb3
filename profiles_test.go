package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateProfile(t *testing.T) {
	t.Run("TrimsAndDedupesHobbies", func(t *testing.T) {
		p := &UserProfile{Hobbies: []string{" 読書 ", "読書", "", "旅行"}}
		require.NoError(t, validateProfile(p))
		assert.Equal(t, []string{"読書", "旅行"}, p.Hobbies)
	})

	t.Run("TooManyHobbies", func(t *testing.T) {
		p := &UserProfile{Hobbies: []string{"a", "b", "c", "d"}}
		err := validateProfile(p)
		require.Error(t, err)
		assert.Equal(t, "too_many_hobbies", err.Error())
	})

	t.Run("UnknownPreference", func(t *testing.T) {
		p := &UserProfile{Preferences: []Attribute{Attribute("shoe_size")}}
		err := validateProfile(p)
		require.Error(t, err)
		assert.Equal(t, "unknown_attribute", err.Error())
	})

	t.Run("DuplicatePreference", func(t *testing.T) {
		p := &UserProfile{Preferences: []Attribute{AttrHometown, AttrHometown}}
		err := validateProfile(p)
		require.Error(t, err)
		assert.Equal(t, "duplicate_preference", err.Error())
	})
}

func TestMeProfileHandler(t *testing.T) {
	store := newFakeStore(completeProfile(1))
	handler := meProfileHandler(store)

	post := func(t *testing.T, me int, body []byte) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/me/profile", bytes.NewReader(body))
		token, err := issueToken(me)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	t.Run("GetReturnsProfileWithCompleteness", func(t *testing.T) {
		req := newAuthedRequest(t, 1, http.MethodGet, "/me/profile")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Profile    UserProfile `json:"profile"`
			IsComplete bool        `json:"is_complete"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, 1, resp.Profile.UserID)
		assert.True(t, resp.IsComplete)
	})

	t.Run("GetMissingProfileIs404", func(t *testing.T) {
		req := newAuthedRequest(t, 42, http.MethodGet, "/me/profile")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("PostReplacesProfile", func(t *testing.T) {
		body, err := json.Marshal(map[string]interface{}{
			"hobbies":          []string{"料理"},
			"hometown":         "大阪府",
			"field":            "IT",
			"role":             "PM",
			"personality_type": "ENFP",
			"alma_mater":       "大阪大学",
			"preferences":      []string{"hobbies"},
			"cluster":          7, // ignored; assignments come from refresh
		})
		require.NoError(t, err)

		w := post(t, 2, body)
		require.Equal(t, http.StatusOK, w.Code)

		saved := store.profiles[2]
		require.NotNil(t, saved)
		assert.Equal(t, "大阪府", saved.Hometown)
		assert.Equal(t, []Attribute{AttrHobbies}, saved.Preferences)
		assert.Equal(t, -1, saved.Cluster)
		assert.True(t, saved.IsComplete())
	})

	t.Run("PostValidationErrorCodeInBody", func(t *testing.T) {
		w := post(t, 2, []byte(`{"hobbies":["a","b","c","d"]}`))
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "too_many_hobbies", resp["error"])
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		w := post(t, 2, []byte("{"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("InvalidMethod", func(t *testing.T) {
		req := newAuthedRequest(t, 1, http.MethodDelete, "/me/profile")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
