package account

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/tanvir/taskdeck/internal/apperror"
	"github.com/tanvir/taskdeck/internal/kv"
	"github.com/tanvir/taskdeck/internal/model"
	"github.com/tanvir/taskdeck/internal/task"
)

// =========================================================================
// FAKE KV STORE
// =========================================================================

// fakeKV is an in-memory kv.Store. Hand-written rather than a mock
// framework so the failure injection is visible at a glance: set setErr or
// setAllErr to make the corresponding write fail.
type fakeKV struct {
	data      map[string][]byte
	setErr    error
	setAllErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, kv.ErrNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) SetAll(_ context.Context, entries []kv.Entry) error {
	if f.setAllErr != nil {
		return f.setAllErr
	}
	for _, e := range entries {
		f.data[e.Key] = e.Value
	}
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

// newTestStore returns an account store over a fresh fake medium.
func newTestStore(t *testing.T) (*Store, *fakeKV) {
	t.Helper()
	fake := newFakeKV()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewStore(fake, logger), fake
}

func mustRegister(t *testing.T, s *Store, email string) *model.User {
	t.Helper()
	user, err := s.Register(context.Background(), "Ada", "Lovelace", email, "pw123")
	if err != nil {
		t.Fatalf("Register(%q) error = %v", email, err)
	}
	return user
}

// =========================================================================
// REGISTER
// =========================================================================

func TestRegister(t *testing.T) {
	s, fake := newTestStore(t)
	ctx := context.Background()

	user, err := s.Register(ctx, "Ada", "Lovelace", " Ada@Example.COM ", "pw123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if user.ID == "" {
		t.Error("Register() did not assign an ID")
	}
	if user.Email != "ada@example.com" {
		t.Errorf("Email = %q, want normalized %q", user.Email, "ada@example.com")
	}

	// The session pointer references the new user.
	current := s.CurrentUser(ctx)
	if current == nil || current.ID != user.ID {
		t.Errorf("CurrentUser() = %+v, want the registered user", current)
	}

	// The namespace exists and is empty (not merely absent).
	raw, ok := fake.data[task.NamespaceKey("ada@example.com")]
	if !ok {
		t.Fatal("Register() did not create the task namespace")
	}
	if string(raw) != "[]" {
		t.Errorf("namespace = %s, want []", raw)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s, _ := newTestStore(t)
	mustRegister(t, s, "ada@example.com")

	// Differ only in case and surrounding whitespace — still the same key.
	for _, dup := range []string{"ada@example.com", "ADA@EXAMPLE.COM", "  Ada@Example.com  "} {
		_, err := s.Register(context.Background(), "A", "B", dup, "other")
		if !errors.Is(err, apperror.ErrConflict) {
			t.Errorf("Register(%q) error = %v, want ErrConflict", dup, err)
		}
	}
}

func TestRegisterEmptyEmail(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Register(context.Background(), "A", "B", "   ", "pw")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Register() error = %v, want ErrValidation", err)
	}
}

// A failed commit must leave no trace: no table entry, no session, no
// namespace. All three writes go through one SetAll, so failure is
// all-or-nothing.
func TestRegisterAtomicOnWriteFailure(t *testing.T) {
	s, fake := newTestStore(t)
	fake.setAllErr = errors.New("disk full")

	_, err := s.Register(context.Background(), "Ada", "Lovelace", "ada@example.com", "pw")
	if err == nil {
		t.Fatal("Register() should fail when the commit fails")
	}

	if len(fake.data) != 0 {
		t.Errorf("Register() left partial state behind: %v", fake.data)
	}
	if s.CurrentUser(context.Background()) != nil {
		t.Error("Register() set a session despite the failed commit")
	}
}

// =========================================================================
// LOGIN
// =========================================================================

func TestLogin(t *testing.T) {
	s, _ := newTestStore(t)
	registered := mustRegister(t, s, "user@foo.com")
	ctx := context.Background()

	// Login normalizes before lookup.
	user, err := s.Login(ctx, "User@Foo.com ", "pw123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != registered.ID {
		t.Errorf("Login() ID = %q, want %q", user.ID, registered.ID)
	}

	current := s.CurrentUser(ctx)
	if current == nil || current.ID != registered.ID {
		t.Errorf("CurrentUser() after login = %+v, want the account", current)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Login(context.Background(), "nobody@foo.com", "pw")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Login() error = %v, want ErrNotFound", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s, _ := newTestStore(t)
	mustRegister(t, s, "user@foo.com")

	_, err := s.Login(context.Background(), "user@foo.com", "wrong")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Login() error = %v, want ErrUnauthorized", err)
	}

	// The password compare is exact — a case variant is still wrong.
	_, err = s.Login(context.Background(), "user@foo.com", "PW123")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Login() error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginRecreatesMissingNamespace(t *testing.T) {
	s, fake := newTestStore(t)
	mustRegister(t, s, "user@foo.com")
	ctx := context.Background()

	nsKey := task.NamespaceKey("user@foo.com")

	t.Run("namespace deleted", func(t *testing.T) {
		delete(fake.data, nsKey)

		if _, err := s.Login(ctx, "user@foo.com", "pw123"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if string(fake.data[nsKey]) != "[]" {
			t.Errorf("namespace after login = %s, want []", fake.data[nsKey])
		}
	})

	t.Run("namespace corrupted", func(t *testing.T) {
		fake.data[nsKey] = []byte("{definitely not an array")

		if _, err := s.Login(ctx, "user@foo.com", "pw123"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if string(fake.data[nsKey]) != "[]" {
			t.Errorf("namespace after login = %s, want []", fake.data[nsKey])
		}
	})
}

// An intact namespace must survive login untouched.
func TestLoginKeepsExistingNamespace(t *testing.T) {
	s, fake := newTestStore(t)
	mustRegister(t, s, "user@foo.com")
	ctx := context.Background()

	nsKey := task.NamespaceKey("user@foo.com")
	fake.data[nsKey] = []byte(`[{"id":"t1","text":"keep me","completed":false,"createdAt":"2026-01-02T03:04:05Z","updatedAt":"2026-01-02T03:04:05Z"}]`)
	before := string(fake.data[nsKey])

	if _, err := s.Login(ctx, "user@foo.com", "pw123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if string(fake.data[nsKey]) != before {
		t.Errorf("Login() rewrote an intact namespace:\n got %s\nwant %s", fake.data[nsKey], before)
	}
}

// =========================================================================
// SESSION
// =========================================================================

func TestCurrentUserWithoutSession(t *testing.T) {
	s, _ := newTestStore(t)
	if got := s.CurrentUser(context.Background()); got != nil {
		t.Errorf("CurrentUser() with no session = %+v, want nil", got)
	}
}

func TestLogout(t *testing.T) {
	s, _ := newTestStore(t)
	mustRegister(t, s, "user@foo.com")
	ctx := context.Background()

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if got := s.CurrentUser(ctx); got != nil {
		t.Errorf("CurrentUser() after logout = %+v, want nil", got)
	}

	// Idempotent: logging out again is not an error.
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("second Logout() error = %v", err)
	}
}

// A corrupt user table reads as empty — registration still works (it
// starts a fresh table) and login reports the account as unknown rather
// than failing with a parse error.
func TestCorruptUserTableDegradesToEmpty(t *testing.T) {
	s, fake := newTestStore(t)
	fake.data["app_users_v1"] = []byte("%%%")

	if _, err := s.Login(context.Background(), "user@foo.com", "pw"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Login() over corrupt table error = %v, want ErrNotFound", err)
	}

	if _, err := s.Register(context.Background(), "A", "B", "user@foo.com", "pw"); err != nil {
		t.Errorf("Register() over corrupt table error = %v", err)
	}
}
