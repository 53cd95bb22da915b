// Package account manages the registered-user table and the session
// pointer.
//
// PERSISTED STATE (two keys in the kv medium):
//
//	app_users_v1        → the full user table, a JSON array of model.User
//	app_current_user_v1 → the logged-in user, or absent when logged out
//
// The session pointer is deliberately process-wide: at most one user is
// logged in at a time, and it lives in the store rather than in a package
// global so the lifecycle is explicit — absent until register/login, gone
// after logout, and surviving restarts because it is persisted like
// everything else.
//
// Users are append-only. There is no account-deletion operation, which is
// why CurrentUser tolerates a session pointer without re-checking the table
// — the referenced account cannot have been removed.
package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rs/xid"

	"github.com/tanvir/taskdeck/internal/apperror"
	"github.com/tanvir/taskdeck/internal/kv"
	"github.com/tanvir/taskdeck/internal/model"
	"github.com/tanvir/taskdeck/internal/task"
)

const (
	usersKey       = "app_users_v1"
	currentUserKey = "app_current_user_v1"
)

// Store is the account store. It owns the user table and the session
// pointer; task namespaces are owned by the task package, but Store creates
// them (empty) as part of registration and repairs them on login.
type Store struct {
	kv     kv.Store
	logger *slog.Logger
}

// NewStore creates an account store over the given persistence medium.
func NewStore(store kv.Store, logger *slog.Logger) *Store {
	return &Store{kv: store, logger: logger}
}

// Register creates a new account and logs it in.
//
// The email is normalized (trimmed + lowercased) before anything else;
// uniqueness and the namespace key both work on the normalized form.
// Returns apperror.DuplicateEmail when the table already holds that email.
//
// ATOMIC COMMIT:
// Registration touches three keys — the user table, the session pointer,
// and the new (empty) task namespace. All three values are computed first
// and then written through one SetAll, so a failure partway cannot leave an
// account without its namespace or a session pointing at a user the table
// never recorded.
func (s *Store) Register(ctx context.Context, firstName, lastName, email, password string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	users := s.allUsers(ctx)
	for _, u := range users {
		if u.Email == email {
			return nil, fmt.Errorf("account: registering %s: %w", email, apperror.DuplicateEmail(email))
		}
	}

	user := model.User{
		ID:        xid.New().String(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  password,
	}
	users = append(users, user)

	tableEntry, err := kv.Marshal(usersKey, users)
	if err != nil {
		return nil, fmt.Errorf("account: registering %s: %w", email, err)
	}
	sessionEntry, err := kv.Marshal(currentUserKey, user)
	if err != nil {
		return nil, fmt.Errorf("account: registering %s: %w", email, err)
	}
	namespaceEntry, err := kv.Marshal(task.NamespaceKey(email), []model.Task{})
	if err != nil {
		return nil, fmt.Errorf("account: registering %s: %w", email, err)
	}

	if err := s.kv.SetAll(ctx, []kv.Entry{tableEntry, sessionEntry, namespaceEntry}); err != nil {
		return nil, fmt.Errorf("account: registering %s: %w", email, err)
	}

	s.logger.Info("account registered",
		slog.String("userID", user.ID),
		slog.String("email", user.Email),
	)

	return &user, nil
}

// Login authenticates by normalized email and exact password match, sets
// the session pointer, and — if the user's task namespace has gone missing
// or unreadable — re-creates it empty. A broken namespace must never make
// login fail; the account is the source of truth, the namespace is
// repairable state.
//
// Returns apperror.UserNotFound when no account has the email and
// apperror.InvalidCredentials when the password differs. The compare is
// plain text by contract (see model.User).
func (s *Store) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = model.NormalizeEmail(email)

	user := s.byEmail(ctx, email)
	if user == nil {
		return nil, fmt.Errorf("account: logging in %s: %w", email, apperror.UserNotFound(email))
	}
	if user.Password != password {
		return nil, fmt.Errorf("account: logging in %s: %w", email, apperror.InvalidCredentials())
	}

	if err := kv.Save(ctx, s.kv, currentUserKey, user); err != nil {
		return nil, fmt.Errorf("account: logging in %s: %w", email, err)
	}

	// Namespace repair. Load reports false for both "absent" and "corrupt",
	// and in either case the fix is the same: start over with an empty
	// sequence.
	nsKey := task.NamespaceKey(email)
	var tasks []model.Task
	if ok := kv.Load(ctx, s.kv, nsKey, &tasks); !ok {
		if err := kv.Save(ctx, s.kv, nsKey, []model.Task{}); err != nil {
			return nil, fmt.Errorf("account: recreating namespace for %s: %w", email, err)
		}
		s.logger.Warn("task namespace was missing, recreated empty",
			slog.String("email", email),
		)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return user, nil
}

// CurrentUser returns the user the session pointer references, or nil when
// nobody is logged in. It does not re-validate the user against the table —
// accounts are never deleted, so a stale pointer cannot occur, and a
// corrupt one simply reads as "logged out".
func (s *Store) CurrentUser(ctx context.Context) *model.User {
	var user model.User
	if ok := kv.Load(ctx, s.kv, currentUserKey, &user); !ok {
		return nil
	}
	return &user
}

// Logout clears the session pointer. Idempotent: logging out when nobody is
// logged in succeeds quietly.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.kv.Delete(ctx, currentUserKey); err != nil {
		return fmt.Errorf("account: logging out: %w", err)
	}
	return nil
}

// allUsers decodes the user table, falling back to an empty table when the
// key is absent or the stored bytes are malformed.
func (s *Store) allUsers(ctx context.Context) []model.User {
	users := []model.User{}
	kv.Load(ctx, s.kv, usersKey, &users)
	return users
}

// byEmail scans the table for a normalized email. O(n), which is fine at
// this scale — the table is the set of people who share one machine.
func (s *Store) byEmail(ctx context.Context, email string) *model.User {
	for _, u := range s.allUsers(ctx) {
		if u.Email == email {
			return &u
		}
	}
	return nil
}
