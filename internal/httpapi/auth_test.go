package httpapi

import (
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"phoneshop/backend/internal/domain"
	"phoneshop/backend/internal/store/memory"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewAuthManager("test-secret-key-test-secret-key!", time.Hour, nil)

	token, err := manager.sign("admin", "admin", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	actor, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	manager := NewAuthManager("test-secret-key-test-secret-key!", time.Hour, nil)

	token, err := manager.sign("admin", "admin", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	manager := NewAuthManager("test-secret-key-test-secret-key!", time.Hour, nil)
	other := NewAuthManager("another-secret-another-secret!!!", time.Hour, nil)

	token, err := other.sign("admin", "admin", time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected token from other secret to be rejected")
	}
}

func TestParseTokenRejectsNonHMACAlgorithm(t *testing.T) {
	manager := NewAuthManager("test-secret-key-test-secret-key!", time.Hour, nil)

	claims := shopCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "admin",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().UTC().Add(time.Hour)),
		},
		Role: "admin",
	}
	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected alg=none token to be rejected")
	}
}

func TestLoginAgainstUserStore(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_STAFF_PASSWORD", "staff123")
	manager := NewAuthManager("test-secret-key-test-secret-key!", time.Hour, memory.NewSeeded())

	resp, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Role != "admin" || resp.AccessToken == "" {
		t.Fatalf("unexpected login response %+v", resp)
	}

	if _, err := manager.Login(domain.LoginRequest{Username: "admin", Password: "nope"}); err == nil {
		t.Fatalf("expected wrong password to be rejected")
	}
	if _, err := manager.Login(domain.LoginRequest{Username: "ghost", Password: "admin123"}); err == nil {
		t.Fatalf("expected unknown user to be rejected")
	}
}

func TestCreateStaffValidation(t *testing.T) {
	manager := NewAuthManager("test-secret-key-test-secret-key!", time.Hour, nil)

	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "ab", Password: "secret66"}); err == nil {
		t.Fatalf("expected short username to be rejected")
	}
	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "kasir two", Password: "secret66"}); err == nil {
		t.Fatalf("expected username with spaces to be rejected")
	}
	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "kasir2", Password: "123"}); err == nil {
		t.Fatalf("expected short password to be rejected")
	}

	created, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "Kasir2", Password: "secret66"})
	if err != nil {
		t.Fatalf("CreateStaff failed: %v", err)
	}
	if created.Username != "kasir2" || created.Role != "staff" || !created.Active {
		t.Fatalf("unexpected staff %+v", created)
	}

	if _, err := manager.CreateStaff(domain.StaffCreateRequest{Username: "kasir2", Password: "secret66"}); err == nil {
		t.Fatalf("expected duplicate username to be rejected")
	}

	staff := manager.ListStaff()
	if len(staff) != 1 || staff[0].Username != "kasir2" {
		t.Fatalf("unexpected staff list %+v", staff)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := hashPassword("secret66")
	if err != nil {
		t.Fatalf("hashPassword failed: %v", err)
	}
	if !isPasswordHash(hash) || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if !verifyPassword(hash, "secret66") {
		t.Fatalf("expected matching password to verify")
	}
	if verifyPassword(hash, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
	if verifyPassword("plaintext-stored", "plaintext-stored") {
		t.Fatalf("expected plaintext stored credential to never verify")
	}
}
