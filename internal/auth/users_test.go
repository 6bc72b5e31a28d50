package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestCredentialStoreAuthenticate(t *testing.T) {
	store := NewCredentialStore()
	if _, err := store.ProvisionPassword("Admin", "swordfish", RoleAdmin); err != nil {
		t.Fatalf("ProvisionPassword: %v", err)
	}

	identity, err := store.Authenticate("admin", "swordfish")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if identity.Username != "admin" {
		t.Fatalf("expected lowercased username, got %q", identity.Username)
	}
	if identity.Role != RoleAdmin {
		t.Fatalf("unexpected role: %s", identity.Role)
	}
	if identity.ID == "" {
		t.Fatalf("expected an assigned user id")
	}

	// Username lookup is case- and whitespace-insensitive.
	if _, err := store.Authenticate("  ADMIN  ", "swordfish"); err != nil {
		t.Fatalf("normalized lookup failed: %v", err)
	}

	if _, err := store.Authenticate("admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.Authenticate("ghost", "swordfish"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := store.Authenticate("", "swordfish"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := store.Authenticate("admin", ""); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestCredentialStoreRejectsDuplicates(t *testing.T) {
	store := NewCredentialStore()
	if _, err := store.ProvisionPassword("viewer", "pw-one", RoleViewer); err != nil {
		t.Fatalf("ProvisionPassword: %v", err)
	}
	if _, err := store.ProvisionPassword("VIEWER", "pw-two", RoleViewer); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("expected 1 user, got %d", store.Count())
	}
}

func TestCredentialStoreRejectsUnknownRole(t *testing.T) {
	store := NewCredentialStore()
	if _, err := store.ProvisionPassword("odd", "pw", Role("superuser")); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown role, got %v", err)
	}
}

func TestRoleRanking(t *testing.T) {
	if !RoleAdmin.AtLeast(RoleViewer) || !RoleAdmin.AtLeast(RoleController) || !RoleAdmin.AtLeast(RoleAdmin) {
		t.Fatalf("admin should satisfy every minimum")
	}
	if !RoleController.AtLeast(RoleViewer) {
		t.Fatalf("controller should satisfy viewer minimum")
	}
	if RoleController.AtLeast(RoleAdmin) {
		t.Fatalf("controller must not satisfy admin minimum")
	}
	if RoleViewer.AtLeast(RoleController) {
		t.Fatalf("viewer must not satisfy controller minimum")
	}
	if Role("superuser").AtLeast(RoleViewer) {
		t.Fatalf("unknown role must not satisfy any minimum")
	}
	if Role("superuser").Valid() {
		t.Fatalf("unknown role must not be valid")
	}
}

func TestHashPasswordLengthBounds(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatalf("empty password must not hash")
	}
	if _, err := HashPassword(strings.Repeat("a", 73)); err == nil {
		t.Fatalf("password past the bcrypt 72-byte limit must be rejected")
	}
	hash, err := HashPassword(strings.Repeat("a", 72))
	if err != nil {
		t.Fatalf("72-byte password must hash: %v", err)
	}
	if err := VerifyPassword(hash, strings.Repeat("a", 72)); err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
}
