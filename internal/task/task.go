// Package task implements the per-user task store.
//
// Each Store instance is scoped to exactly one identity (an email). The
// namespace key is derived from the normalized email, the full task
// sequence is loaded into memory at construction, and every mutating
// operation writes the whole updated sequence back before returning
// (write-through). While a Store is alive, its in-memory copy is the source
// of truth for that namespace.
//
// LOST-UPDATE HAZARD:
// Nothing coordinates two Stores opened over the same namespace — each
// holds its own copy and the last one to persist wins. That is an accepted
// limitation inherited from the design (the original medium had the same
// behaviour across browser tabs), not something this package tries to fix.
// The HTTP layer sidesteps the worst of it by constructing a fresh Store
// per request, so a stale copy never outlives one operation.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/tanvir/taskdeck/internal/kv"
	"github.com/tanvir/taskdeck/internal/model"
)

// namespacePrefix + normalized email = the persistence key for one user's
// task sequence. Changing this orphans every existing namespace.
const namespacePrefix = "todos__"

// NamespaceKey returns the persistence key for the given identity's task
// namespace. The account store uses this to create the empty namespace at
// registration.
func NamespaceKey(email string) string {
	return namespacePrefix + model.NormalizeEmail(email)
}

// Filter selects which tasks List returns.
//
// CLOSED ENUM, NOT FREE-FORM STRINGS:
// Filter and Sort are small typed constants so the compiler catches a typo
// like FilterActve. The string-typed API surface (query parameters) goes
// through ParseFilter/ParseSort, which fold anything unrecognized into the
// documented defaults instead of erroring.
type Filter int

const (
	FilterAll    Filter = iota // no exclusion
	FilterActive               // completed == false only
	FilterDone                 // completed == true only
)

// ParseFilter maps a query-string value to a Filter. Unrecognized values
// (including "") behave as FilterAll.
func ParseFilter(s string) Filter {
	switch s {
	case "active":
		return FilterActive
	case "done":
		return FilterDone
	default:
		return FilterAll
	}
}

// Sort selects the ordering of a List result.
type Sort int

const (
	SortNone   Sort = iota // insertion order, unchanged
	SortNewest             // descending by CreatedAt — most recent first
	SortOldest             // ascending by CreatedAt
)

// ParseSort maps a query-string value to a Sort. Unrecognized values
// (including "") leave insertion order unchanged.
func ParseSort(s string) Sort {
	switch s {
	case "new":
		return SortNewest
	case "old":
		return SortOldest
	default:
		return SortNone
	}
}

// ListOptions bundles the filter and sort for List.
type ListOptions struct {
	Filter Filter
	Sort   Sort
}

// Store manages one user's ordered task sequence.
type Store struct {
	kv     kv.Store
	key    string
	items  []model.Task
	logger *slog.Logger

	// now is the clock used for CreatedAt/UpdatedAt. Injected so tests can
	// supply a strictly increasing fake and assert timestamp ordering.
	now func() time.Time
}

// NewStore constructs a Store scoped to the given identity and loads its
// namespace into memory. An absent (or corrupt) namespace loads as the
// empty sequence — construction never fails.
func NewStore(ctx context.Context, store kv.Store, email string, logger *slog.Logger) *Store {
	s := &Store{
		kv:     store,
		key:    NamespaceKey(email),
		items:  []model.Task{},
		logger: logger,
		now:    time.Now,
	}
	kv.Load(ctx, store, s.key, &s.items)
	return s
}

// persist writes the full in-memory sequence to the namespace key. Every
// mutating operation funnels through here — there is no partial flush.
func (s *Store) persist(ctx context.Context) error {
	if err := kv.Save(ctx, s.kv, s.key, s.items); err != nil {
		return fmt.Errorf("task: persisting namespace %q: %w", s.key, err)
	}
	return nil
}

// List returns a copy of the task sequence with the given filter and sort
// applied. The copy is the caller's to keep — mutating it cannot corrupt
// the store, and List itself never reorders the underlying sequence.
func (s *Store) List(opts ListOptions) []model.Task {
	out := make([]model.Task, 0, len(s.items))
	for _, t := range s.items {
		switch opts.Filter {
		case FilterActive:
			if t.Completed {
				continue
			}
		case FilterDone:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}

	// Stable sort: tasks with equal CreatedAt keep their insertion order.
	switch opts.Sort {
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}

	return out
}

// Add creates a task from the trimmed text, appends it at the tail of the
// sequence, and persists. Empty text is accepted here — rejecting it is the
// caller's concern, the store just records what it is given.
func (s *Store) Add(ctx context.Context, text string) (*model.Task, error) {
	now := s.now()
	t := model.Task{
		ID:        xid.New().String(),
		Text:      strings.TrimSpace(text),
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.items = append(s.items, t)
	if err := s.persist(ctx); err != nil {
		// Roll the in-memory append back so the copy can't drift ahead of
		// what was actually stored.
		s.items = s.items[:len(s.items)-1]
		return nil, err
	}

	s.logger.Info("task added",
		slog.String("id", t.ID),
		slog.String("namespace", s.key),
	)

	return &t, nil
}

// Toggle flips the completed flag of the task with the given id and bumps
// its UpdatedAt. An unknown id is a silent no-op, reported as false —
// callers are free to ignore the distinction, exactly as the original
// consumers did.
func (s *Store) Toggle(ctx context.Context, id string) (bool, error) {
	i := s.find(id)
	if i < 0 {
		return false, nil
	}

	s.items[i].Completed = !s.items[i].Completed
	s.items[i].UpdatedAt = s.now()
	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Update replaces the task's text with the trimmed replacement and bumps
// UpdatedAt. Unknown id: silent no-op, false.
func (s *Store) Update(ctx context.Context, id, text string) (bool, error) {
	i := s.find(id)
	if i < 0 {
		return false, nil
	}

	s.items[i].Text = strings.TrimSpace(text)
	s.items[i].UpdatedAt = s.now()
	if err := s.persist(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes the first task matching id from the sequence. Unknown id:
// silent no-op, false — and nothing is persisted, so the stored bytes are
// untouched.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	i := s.find(id)
	if i < 0 {
		return false, nil
	}

	s.items = append(s.items[:i], s.items[i+1:]...)
	if err := s.persist(ctx); err != nil {
		return false, err
	}

	s.logger.Info("task removed",
		slog.String("id", id),
		slog.String("namespace", s.key),
	)

	return true, nil
}

// ClearCompleted removes every completed task and returns how many were
// dropped. It persists even when nothing changed — the operation's contract
// is "the stored sequence now contains no completed tasks", not "something
// was deleted".
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	kept := s.items[:0:0]
	for _, t := range s.items {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	removed := len(s.items) - len(kept)

	prev := s.items
	s.items = kept
	if s.items == nil {
		s.items = []model.Task{}
	}
	if err := s.persist(ctx); err != nil {
		s.items = prev
		return 0, err
	}

	if removed > 0 {
		s.logger.Info("completed tasks cleared",
			slog.Int("removed", removed),
			slog.String("namespace", s.key),
		)
	}

	return removed, nil
}

// find returns the index of the first task with the given id, or -1.
// Linear scan — namespaces are one person's task list, n stays small.
func (s *Store) find(id string) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
