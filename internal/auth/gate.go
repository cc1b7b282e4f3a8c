package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidCredential signals a token that failed signature, issuer,
	// audience or claim validation.
	ErrInvalidCredential = errors.New("auth: invalid credential")
	// ErrExpiredCredential signals a token past its expiry.
	ErrExpiredCredential = errors.New("auth: expired credential")
)

// Role is the closed set of principal roles carried in the token.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleTechnician, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Identity is the authenticated principal bound to a connection.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// Claims defines our custom JWT claims structure. Subject carries the
// user id.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Gate verifies bearer credentials against a shared HMAC secret and fixed
// issuer/audience. Verification is a local synchronous check.
type Gate struct {
	secret   []byte
	issuer   string
	audience string
}

func NewGate(secret, issuer, audience string) *Gate {
	return &Gate{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// Verify validates a token string and returns the identity it carries.
// Failures map onto exactly two conditions: ErrExpiredCredential for a
// well-formed token past its expiry, ErrInvalidCredential for everything
// else.
func (g *Gate) Verify(tokenString string) (Identity, error) {
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	if tokenString == "" {
		return Identity{}, ErrInvalidCredential
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithIssuer(g.issuer), jwt.WithAudience(g.audience), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrExpiredCredential
		}
		return Identity{}, ErrInvalidCredential
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidCredential
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidCredential
	}
	role := Role(claims.Role)
	if !role.Valid() {
		return Identity{}, ErrInvalidCredential
	}

	return Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Role:   role,
	}, nil
}
