package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/clubman/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:     "user-1",
		Email:  "coach@example.com",
		Role:   model.RoleCoach,
		Status: model.UserStatusActive,
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, expiresAt, err := m.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if remaining := time.Until(expiresAt); remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("expiresAt = %v, want ~1h from now", remaining)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "user-1")
	}
	if claims.Email != "coach@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "coach@example.com")
	}
	if claims.Role != model.RoleCoach {
		t.Errorf("Role = %q, want %q", claims.Role, model.RoleCoach)
	}
}

func TestTokenManager_Verify_WrongSecret_ReturnsError(t *testing.T) {
	m1 := NewTokenManager("secret-one", time.Hour)
	m2 := NewTokenManager("secret-two", time.Hour)

	token, _, err := m1.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := m2.Verify(token); err == nil {
		t.Error("expected error for token signed with different secret, got nil")
	}
}

func TestTokenManager_Verify_ExpiredToken_ReturnsError(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute)

	token, _, err := m.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := m.Verify(token); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestTokenManager_Verify_TamperedToken_ReturnsError(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	token, _, err := m.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// ペイロード部分を改ざん
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %d parts", len(parts))
	}
	tampered := parts[0] + ".eyJzdWIiOiJvdGhlci11c2VyIn0." + parts[2]

	if _, err := m.Verify(tampered); err == nil {
		t.Error("expected error for tampered token, got nil")
	}
}

func TestTokenManager_Verify_GarbageInput_ReturnsError(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.Verify(input); err == nil {
			t.Errorf("Verify(%q) expected error, got nil", input)
		}
	}
}
