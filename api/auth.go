/*
auth.go - Bearer-token verification and organisation scoping

PURPOSE:
  The engine receives already-authenticated caller identity; this
  middleware is where that identity is established. Tokens are HS256
  JWTs carrying a member id and an organisation scope. Organisation-
  scoped callers must only ever see groups belonging to their own
  organisation - that check lives here at the boundary, never in the
  engine.

SEE ALSO:
  - handlers.go: per-handler scope checks via callerFromContext
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AppfinityLabs/chitwise-new-sub001/chitfund"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// Claims are the custom JWT claims for a caller session.
type Claims struct {
	MemberID string `json:"member_id"`
	OrgID    string `json:"org_id"`
	Role     string `json:"role"` // "member" or "admin"
	jwt.RegisteredClaims
}

// Caller is the authenticated identity handlers consult for scoping.
type Caller struct {
	MemberID chitfund.MemberID
	OrgID    chitfund.OrgID
	Admin    bool
}

// CanAccessGroup reports whether the caller's organisation scope covers the
// group. Admin callers are still confined to their own organisation.
func (c Caller) CanAccessGroup(g chitfund.ChitGroup) bool {
	return c.OrgID == g.OrgID
}

// TokenVerifier validates bearer tokens and mints them for tests/tools.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Generate creates a signed token for the given identity.
func (v *TokenVerifier) Generate(memberID chitfund.MemberID, orgID chitfund.OrgID, role string, ttl time.Duration) (string, error) {
	claims := &Claims{
		MemberID: string(memberID),
		OrgID:    string(orgID),
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the caller identity.
func (v *TokenVerifier) Verify(tokenString string) (Caller, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Caller{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return Caller{}, ErrInvalidToken
	}
	return Caller{
		MemberID: chitfund.MemberID(claims.MemberID),
		OrgID:    chitfund.OrgID(claims.OrgID),
		Admin:    claims.Role == "admin",
	}, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type callerKey struct{}

// Middleware extracts and verifies the bearer token, rejecting the request
// with 401 if it is missing or invalid.
func (v *TokenVerifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "Authorization required", ErrMissingToken)
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		caller, err := v.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token", err)
			return
		}
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func callerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey{}).(Caller)
	return caller, ok
}
