package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"revivatech-realtime/internal/auth"
)

const (
	testSecret   = "test-secret"
	testIssuer   = "revivatech"
	testAudience = "revivatech-clients"
)

func newTestGate() *auth.Gate {
	return auth.NewGate(testSecret, testIssuer, testAudience)
}

func mintToken(t *testing.T, secret string, mutate func(*auth.Claims)) string {
	t.Helper()
	claims := &auth.Claims{
		Email: "jane@example.com",
		Role:  "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	if mutate != nil {
		mutate(claims)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestVerifyValidToken(t *testing.T) {
	g := newTestGate()

	ident, err := g.Verify(mintToken(t, testSecret, nil))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ident.UserID != "42" {
		t.Errorf("expected user id 42, got %q", ident.UserID)
	}
	if ident.Email != "jane@example.com" {
		t.Errorf("expected email jane@example.com, got %q", ident.Email)
	}
	if ident.Role != auth.RoleCustomer {
		t.Errorf("expected role customer, got %q", ident.Role)
	}
}

func TestVerifyAcceptsBearerPrefix(t *testing.T) {
	g := newTestGate()

	if _, err := g.Verify("Bearer " + mintToken(t, testSecret, nil)); err != nil {
		t.Fatalf("Verify with Bearer prefix failed: %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	g := newTestGate()
	token := mintToken(t, testSecret, func(c *auth.Claims) {
		c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	})

	_, err := g.Verify(token)
	if !errors.Is(err, auth.ErrExpiredCredential) {
		t.Fatalf("expected ErrExpiredCredential, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	g := newTestGate()

	_, err := g.Verify(mintToken(t, "another-secret", nil))
	if !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyWrongIssuer(t *testing.T) {
	g := newTestGate()
	token := mintToken(t, testSecret, func(c *auth.Claims) {
		c.Issuer = "someone-else"
	})

	_, err := g.Verify(token)
	if !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyWrongAudience(t *testing.T) {
	g := newTestGate()
	token := mintToken(t, testSecret, func(c *auth.Claims) {
		c.Audience = jwt.ClaimStrings{"other-clients"}
	})

	_, err := g.Verify(token)
	if !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyUnknownRole(t *testing.T) {
	g := newTestGate()
	token := mintToken(t, testSecret, func(c *auth.Claims) {
		c.Role = "superuser"
	})

	_, err := g.Verify(token)
	if !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	g := newTestGate()
	token := mintToken(t, testSecret, func(c *auth.Claims) {
		c.Subject = ""
	})

	_, err := g.Verify(token)
	if !errors.Is(err, auth.ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	g := newTestGate()

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := g.Verify(token); !errors.Is(err, auth.ErrInvalidCredential) {
			t.Errorf("Verify(%q): expected ErrInvalidCredential, got %v", token, err)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, role := range []auth.Role{auth.RoleCustomer, auth.RoleTechnician, auth.RoleAdmin, auth.RoleSuperAdmin} {
		if !role.Valid() {
			t.Errorf("expected role %q to be valid", role)
		}
	}
	if auth.Role("root").Valid() {
		t.Error("expected role root to be invalid")
	}
}
