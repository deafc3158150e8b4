package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/clubman/internal/config"
	"github.com/hitoshi/clubman/internal/model"
)

// mockSeedStore はseedUserStoreのモック実装。
type mockSeedStore struct {
	upsertFn func(ctx context.Context, user *model.User) error
	upserted []*model.User
}

func (m *mockSeedStore) UpsertByEmail(ctx context.Context, user *model.User) error {
	m.upserted = append(m.upserted, user)
	if m.upsertFn != nil {
		return m.upsertFn(ctx, user)
	}
	return nil
}

// mockHasher はpasswordHasherのモック実装。
type mockHasher struct {
	hashFn func(password string) (string, error)
}

func (m *mockHasher) HashPassword(password string) (string, error) {
	if m.hashFn != nil {
		return m.hashFn(password)
	}
	return "hashed:" + password, nil
}

func TestSeedUsers_MissingAdminCreds_ReturnsError(t *testing.T) {
	store := &mockSeedStore{}
	cfg := &config.Config{
		SeedStaffEmail:    "staff@example.com",
		SeedStaffPassword: "staff-password",
	}

	err := seedUsers(context.Background(), store, &mockHasher{}, cfg)
	if err == nil {
		t.Fatal("expected error for missing admin credentials, got nil")
	}
	if !strings.Contains(err.Error(), "SEED_ADMIN_EMAIL") {
		t.Errorf("error = %v, want mention of SEED_ADMIN_EMAIL", err)
	}
	if len(store.upserted) != 0 {
		t.Errorf("upserted = %d users, want 0", len(store.upserted))
	}
}

func TestSeedUsers_SeedsAllConfiguredAccounts(t *testing.T) {
	store := &mockSeedStore{}
	cfg := &config.Config{
		SeedAdminEmail:    "admin@example.com",
		SeedAdminPassword: "admin-password",
		SeedStaffEmail:    "staff@example.com",
		SeedStaffPassword: "staff-password",
		SeedCoachEmail:    "coach@example.com",
		SeedCoachPassword: "coach-password",
	}

	if err := seedUsers(context.Background(), store, &mockHasher{}, cfg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(store.upserted) != 3 {
		t.Fatalf("upserted = %d users, want 3", len(store.upserted))
	}

	wantRoles := []model.Role{model.RoleAdmin, model.RoleStaff, model.RoleCoach}
	for i, u := range store.upserted {
		if u.Role != wantRoles[i] {
			t.Errorf("upserted[%d].Role = %q, want %q", i, u.Role, wantRoles[i])
		}
		if u.Status != model.UserStatusActive {
			t.Errorf("upserted[%d].Status = %q, want %q", i, u.Status, model.UserStatusActive)
		}
		if u.ID == "" {
			t.Errorf("upserted[%d].ID is empty", i)
		}
		if !strings.HasPrefix(u.PasswordHash, "hashed:") {
			t.Errorf("upserted[%d].PasswordHash = %q, want hashed value", i, u.PasswordHash)
		}
	}

	if store.upserted[0].Email != "admin@example.com" {
		t.Errorf("admin email = %q, want admin@example.com", store.upserted[0].Email)
	}
}

func TestSeedUsers_SkipsRolesWithoutCreds(t *testing.T) {
	store := &mockSeedStore{}
	cfg := &config.Config{
		SeedAdminEmail:    "admin@example.com",
		SeedAdminPassword: "admin-password",
		// STAFFはメールのみ設定されておりパスワードがないためスキップされる
		SeedStaffEmail: "staff@example.com",
	}

	if err := seedUsers(context.Background(), store, &mockHasher{}, cfg); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(store.upserted) != 1 {
		t.Fatalf("upserted = %d users, want 1", len(store.upserted))
	}
	if store.upserted[0].Role != model.RoleAdmin {
		t.Errorf("role = %q, want %q", store.upserted[0].Role, model.RoleAdmin)
	}
}

func TestSeedUsers_UpsertError_ReturnsError(t *testing.T) {
	store := &mockSeedStore{
		upsertFn: func(ctx context.Context, user *model.User) error {
			return errors.New("connection refused")
		},
	}
	cfg := &config.Config{
		SeedAdminEmail:    "admin@example.com",
		SeedAdminPassword: "admin-password",
	}

	err := seedUsers(context.Background(), store, &mockHasher{}, cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
