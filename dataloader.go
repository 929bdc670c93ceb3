package main

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

// ProfileLoader batches profile lookups so hydrating a ranked result
// list or a likes listing costs one store query per request burst.
type ProfileLoader struct {
	loader *dataloader.Loader[int, *UserProfile]
}

// NewProfileLoader wires the loader to the attribute store. Caching is
// disabled: profiles are mutable and the loader outlives requests, so
// only batching is wanted here.
func NewProfileLoader(store AttributeStore) *ProfileLoader {
	return &ProfileLoader{
		loader: dataloader.NewBatchedLoader(
			profileBatchFn(store),
			dataloader.WithWait[int, *UserProfile](16*time.Millisecond),
			dataloader.WithCache[int, *UserProfile](&dataloader.NoCache[int, *UserProfile]{}),
		),
	}
}

// Load fetches a single profile through the batcher.
func (l *ProfileLoader) Load(ctx context.Context, userID int) (*UserProfile, error) {
	return l.loader.Load(ctx, userID)()
}

// LoadMany fetches profiles for all ids, preserving order. Missing or
// failed entries come back as nil so callers can still render the rest.
func (l *ProfileLoader) LoadMany(ctx context.Context, userIDs []int) []*UserProfile {
	thunks := make([]func() (*UserProfile, error), len(userIDs))
	for i, id := range userIDs {
		thunks[i] = l.loader.Load(ctx, id)
	}
	profiles := make([]*UserProfile, len(userIDs))
	for i, thunk := range thunks {
		if p, err := thunk(); err == nil {
			profiles[i] = p
		}
	}
	return profiles
}

// profileBatchFn resolves one batch of profile keys against the store.
func profileBatchFn(store AttributeStore) dataloader.BatchFunc[int, *UserProfile] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[*UserProfile] {
		results := make([]*dataloader.Result[*UserProfile], len(keys))
		for i := range results {
			results[i] = &dataloader.Result[*UserProfile]{}
		}
		if len(keys) == 0 {
			return results
		}

		profiles, err := store.GetProfiles(ctx, keys)
		if err != nil {
			for i := range results {
				results[i].Error = err
			}
			return results
		}

		byID := make(map[int]*UserProfile, len(profiles))
		for _, p := range profiles {
			byID[p.UserID] = p
		}
		for i, key := range keys {
			if p, ok := byID[key]; ok {
				results[i].Data = p
			} else {
				results[i].Error = ErrNotFound
			}
		}
		return results
	}
}
