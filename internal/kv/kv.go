// Package kv defines the key-value persistence contract the stores are
// built on: JSON-serializable values stored under string keys, with
// fallback semantics for anything missing or corrupt.
//
// WHY A KEY-VALUE ADAPTER AND NOT A RELATIONAL SCHEMA?
// The domain model owns its collections whole — the account store reads and
// rewrites the full user table, the task store reads and rewrites one
// user's full task sequence. Every persist is a complete overwrite of one
// key (last write wins, no merge path). A row-per-record schema would buy
// nothing here and would smear the "rewrite the whole collection" contract
// across UPDATE statements. So the storage layer is exactly three kinds of
// key: the user table, the session pointer, and one namespace key per user.
//
// The Store interface speaks raw bytes; Load and Save layer the JSON
// contract on top so every caller serializes the same way.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Store.Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Entry is one key-value pair in a SetAll batch.
type Entry struct {
	Key   string
	Value []byte
}

// Store is the persistence medium. Implementations must give Set overwrite
// semantics and make SetAll atomic: either every entry is written or none
// is. Delete of an absent key is not an error.
//
// There is no concurrency control at this level. Access is synchronous and
// single-process; two stores open over the same key race (last persist
// wins), which is an accepted limitation of the design.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetAll(ctx context.Context, entries []Entry) error
	Delete(ctx context.Context, key string) error
}

// Load reads key and unmarshals its JSON value into dst, which must be a
// pointer. It never fails: an absent key and a malformed value are treated
// identically — dst is left exactly as the caller preset it (the fallback)
// and Load reports false.
//
// Callers therefore express the fallback by initializing dst before the
// call:
//
//	users := []model.User{}
//	kv.Load(ctx, store, usersKey, &users) // empty table if missing/corrupt
//
// Real backend failures (not just a missing key) also resolve to the
// fallback. Degrading to empty is the designed recovery path — there is no
// remote dependency to retry against, and a read that cannot be satisfied
// is indistinguishable from data that was never written.
func Load(ctx context.Context, s Store, key string, dst any) bool {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false
	}
	return true
}

// Save marshals v to JSON and stores it under key, overwriting any previous
// value.
func Save(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: marshaling value for %q: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("kv: storing %q: %w", key, err)
	}
	return nil
}

// Marshal is Save without the write — used to assemble SetAll batches where
// several values must be computed first and committed together.
func Marshal(key string, v any) (Entry, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("kv: marshaling value for %q: %w", key, err)
	}
	return Entry{Key: key, Value: raw}, nil
}
