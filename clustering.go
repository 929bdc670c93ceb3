package main

import (
	"errors"
	"log"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
)

// Grouping of users into shared channels: profiles are encoded into
// one-hot feature vectors and clustered with k-means, and the cluster
// key doubles as the shared-channel key on the chat platform.

// Fixed seed keeps assignments reproducible across refreshes with an
// unchanged pool.
const clusterSeed = 42

// clusterCount follows the original sizing: roughly three users per
// group, never fewer than one group.
func clusterCount(users int) int {
	k := users / 3
	if k < 1 {
		k = 1
	}
	return k
}

// encodeProfiles turns profiles into flat feature vectors: multi-label
// columns for every hobby tag seen in the pool, then one-hot columns for
// each categorical attribute's observed values. Column order is sorted
// so the encoding is deterministic.
func encodeProfiles(profiles []*UserProfile) [][]float64 {
	hobbySet := make(map[string]bool)
	valueSets := make(map[Attribute]map[string]bool)
	for _, a := range allAttributes {
		if !a.IsSetValued() {
			valueSets[a] = make(map[string]bool)
		}
	}
	for _, p := range profiles {
		for _, h := range p.Hobbies {
			hobbySet[h] = true
		}
		for _, a := range allAttributes {
			if !a.IsSetValued() {
				valueSets[a][p.Value(a)] = true
			}
		}
	}

	hobbies := sortedKeys(hobbySet)
	columns := make(map[Attribute][]string, len(valueSets))
	width := len(hobbies)
	for _, a := range allAttributes {
		if a.IsSetValued() {
			continue
		}
		columns[a] = sortedKeys(valueSets[a])
		width += len(columns[a])
	}

	vectors := make([][]float64, len(profiles))
	for i, p := range profiles {
		vec := make([]float64, 0, width)
		tags := make(map[string]bool, len(p.Hobbies))
		for _, h := range p.Hobbies {
			tags[h] = true
		}
		for _, h := range hobbies {
			if tags[h] {
				vec = append(vec, 1)
			} else {
				vec = append(vec, 0)
			}
		}
		for _, a := range allAttributes {
			if a.IsSetValued() {
				continue
			}
			for _, v := range columns[a] {
				if p.Value(a) == v {
					vec = append(vec, 1)
				} else {
					vec = append(vec, 0)
				}
			}
		}
		vectors[i] = vec
	}
	return vectors
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func fingerprint(vec []float64) string {
	key := make([]byte, len(vec))
	for i, v := range vec {
		if v != 0 {
			key[i] = 1
		}
	}
	return string(key)
}

func squaredDistance(a, b []float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return d
}

// kmeans runs Lloyd's algorithm and returns a cluster index per vector.
func kmeans(vectors [][]float64, k int, seed int64) []int {
	n := len(vectors)
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}

	// Seed centroids from a shuffled order, preferring distinct vectors
	// so duplicate profiles cannot collapse two groups at the start.
	rng := rand.New(rand.NewSource(seed))
	order := rng.Perm(n)
	centroids := make([][]float64, 0, k)
	taken := make(map[string]bool, k)
	for _, idx := range order {
		key := fingerprint(vectors[idx])
		if taken[key] {
			continue
		}
		taken[key] = true
		centroids = append(centroids, append([]float64(nil), vectors[idx]...))
		if len(centroids) == k {
			break
		}
	}
	for _, idx := range order {
		if len(centroids) == k {
			break
		}
		centroids = append(centroids, append([]float64(nil), vectors[idx]...))
	}

	assignments := make([]int, n)
	for iter := 0; iter < 100; iter++ {
		changed := false
		for i, vec := range vectors {
			best, bestDist := 0, squaredDistance(vec, centroids[0])
			for c := 1; c < k; c++ {
				if d := squaredDistance(vec, centroids[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, len(vectors[0]))
		}
		for i, vec := range vectors {
			c := assignments[i]
			counts[c]++
			for j, v := range vec {
				sums[c][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// Empty cluster keeps its previous centroid.
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}
	return assignments
}

// assignClusters clusters the given profiles and returns userID → group.
func assignClusters(profiles []*UserProfile) map[int]int {
	if len(profiles) == 0 {
		return map[int]int{}
	}
	// Sort by id so vector order (and thus seeding) is stable.
	ordered := append([]*UserProfile(nil), profiles...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].UserID < ordered[j].UserID })

	vectors := encodeProfiles(ordered)
	assignments := kmeans(vectors, clusterCount(len(ordered)), clusterSeed)

	result := make(map[int]int, len(ordered))
	for i, p := range ordered {
		result[p.UserID] = assignments[i]
	}
	return result
}

// POST /clustering/refresh
// Recomputes group assignments over every complete profile and persists
// them. Invoked on demand; there is no background scheduling.
func clusteringRefreshHandler(store AttributeStore) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}

		pool, err := store.CandidatePool(r.Context(), 0)
		if err != nil {
			log.Println("clusteringRefreshHandler pool error:", err)
			writeError(w, http.StatusBadGateway, "store_error")
			return
		}
		if len(pool) == 0 {
			writeJSON(w, http.StatusOK, map[string]int{"users": 0, "clusters": 0})
			return
		}

		assignments := assignClusters(pool)
		for userID, cluster := range assignments {
			if err := store.SetCluster(r.Context(), userID, cluster); err != nil {
				log.Println("clusteringRefreshHandler persist error:", err)
				writeError(w, http.StatusBadGateway, "store_error")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]int{
			"users":    len(assignments),
			"clusters": clusterCount(len(pool)),
		})
	})
}

// GET /clusters/channel
// Opens the shared chat channel for the authenticated user's cluster.
func clusterChannelHandler(store AttributeStore, bridge ChannelBridge) http.HandlerFunc {
	return authenticate(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		if bridge == nil {
			writeError(w, http.StatusServiceUnavailable, "channel_unavailable")
			return
		}
		me := r.Context().Value(userIDKey).(int)

		profile, err := store.GetProfile(r.Context(), me)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusForbidden, "incomplete_profile")
				return
			}
			log.Println("clusterChannelHandler profile error:", err)
			writeError(w, http.StatusBadGateway, "store_error")
			return
		}
		if profile.Cluster < 0 {
			writeError(w, http.StatusConflict, "no_cluster")
			return
		}

		url, err := bridge.OpenSharedChannel(r.Context(), strconv.Itoa(profile.Cluster))
		if err != nil {
			log.Println("clusterChannelHandler bridge error:", err)
			writeError(w, http.StatusBadGateway, "channel_unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	})
}
