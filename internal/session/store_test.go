package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/vire-desk/internal/backend/memory"
	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/bobmcallan/vire-desk/internal/storage/file"
)

func setup(t *testing.T) (*Store, *memory.Backend, interfaces.KeyValueStorage) {
	t.Helper()
	backend := memory.New(memory.NewPriceTable(nil), common.NewSilentLogger())
	backend.SetHashCost(bcrypt.MinCost)
	kv := file.NewKVStorage(filepath.Join(t.TempDir(), "session.json"))
	return NewStore(backend, kv, common.NewSilentLogger()), backend, kv
}

func TestLogin_PersistsSession(t *testing.T) {
	s, backend, kv := setup(t)
	ctx := context.Background()
	backend.Register(ctx, "ivan", "pw", models.RoleInvestor)

	sess, err := s.Login(ctx, "ivan", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Authenticated() || s.Token() != sess.Token {
		t.Errorf("expected store to hold the session, got %+v", s.Current())
	}

	token, _ := kv.Get(ctx, KeyToken)
	role, _ := kv.Get(ctx, KeyRole)
	if token != sess.Token || role != "investor" {
		t.Errorf("expected persisted session, got token=%q role=%q", token, role)
	}
}

func TestLogin_Failure(t *testing.T) {
	s, backend, kv := setup(t)
	ctx := context.Background()
	backend.Register(ctx, "ivan", "pw", models.RoleInvestor)

	_, err := s.Login(ctx, "ivan", "nope")
	if !errors.Is(err, errs.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if err.Error() != "Invalid credentials" {
		t.Errorf("expected backend reason verbatim, got %q", err.Error())
	}
	if s.Authenticated() {
		t.Error("expected store to remain unauthenticated")
	}
	if _, err := kv.Get(ctx, KeyToken); !errors.Is(err, interfaces.ErrKeyNotFound) {
		t.Errorf("expected nothing persisted, got %v", err)
	}
}

func TestLogin_EmptyFieldsNotSent(t *testing.T) {
	s, _, _ := setup(t)
	if _, err := s.Login(context.Background(), "  ", "pw"); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegister(t *testing.T) {
	s, _, _ := setup(t)
	ctx := context.Background()

	if err := s.Register(ctx, "anna", "pw", models.RoleAnalyst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Authenticated() {
		t.Error("register must not authenticate")
	}
	if err := s.Register(ctx, "anna", "pw", models.RoleAnalyst); !errors.Is(err, errs.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if err := s.Register(ctx, "bob", "pw", models.Role("admin")); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error for unknown role, got %v", err)
	}
}

func TestLogout_ClearsAndRunsHooks(t *testing.T) {
	s, backend, kv := setup(t)
	ctx := context.Background()
	backend.Register(ctx, "ivan", "pw", models.RoleInvestor)
	s.Login(ctx, "ivan", "pw")

	calls := 0
	s.OnLogout(func() { calls++ })
	s.OnLogout(func() { calls++ })

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Authenticated() || s.Token() != "" || s.Role() != "" {
		t.Errorf("expected empty session, got %+v", s.Current())
	}
	if calls != 2 {
		t.Errorf("expected 2 hook calls, got %d", calls)
	}
	all, _ := kv.GetAll(ctx)
	if len(all) != 0 {
		t.Errorf("expected persisted session cleared, got %v", all)
	}
}

func TestRestore(t *testing.T) {
	s, _, kv := setup(t)
	ctx := context.Background()
	kv.Set(ctx, KeyToken, "tok")
	kv.Set(ctx, KeyRole, "analyst")

	sess, err := s.Restore(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Token != "tok" || sess.Role != models.RoleAnalyst {
		t.Errorf("unexpected session: %+v", sess)
	}
	if s.Role() != models.RoleAnalyst {
		t.Errorf("expected analyst role, got %s", s.Role())
	}
}

func TestRestore_PartialStateIsUnauthenticated(t *testing.T) {
	tests := []struct {
		name  string
		token string
		role  string
	}{
		{"token only", "tok", ""},
		{"role only", "", "investor"},
		{"unknown role", "tok", "admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, kv := setup(t)
			ctx := context.Background()
			if tt.token != "" {
				kv.Set(ctx, KeyToken, tt.token)
			}
			if tt.role != "" {
				kv.Set(ctx, KeyRole, tt.role)
			}

			sess, err := s.Restore(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sess.Authenticated() || s.Authenticated() {
				t.Errorf("expected unauthenticated, got %+v", sess)
			}
			all, _ := kv.GetAll(ctx)
			if len(all) != 0 {
				t.Errorf("expected partial state removed, got %v", all)
			}
		})
	}
}

func TestRestore_Empty(t *testing.T) {
	s, _, _ := setup(t)
	sess, err := s.Restore(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Authenticated() {
		t.Error("expected unauthenticated session")
	}
}
