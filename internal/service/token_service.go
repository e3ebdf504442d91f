package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role distinguishes candidate and proctor tokens.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleProctor   Role = "proctor"
)

// Claims extends JWT standard claims with the caller's role. For candidate
// tokens the subject is the candidate reference.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// Caller converts validated claims into a request principal.
func (c *Claims) Caller() Caller {
	return Caller{CandidateRef: c.Subject, Proctor: c.Role == RoleProctor}
}

// TokenService issues and validates HS256 access tokens. Tokens are issued
// by the identity provider in production; Issue backs the issue-token tool
// and tests.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue signs a token for subject with the given role and lifetime.
func (s *TokenService) Issue(subject string, role Role, ttl time.Duration) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", errors.New("subject is required")
	}
	if role != RoleCandidate && role != RoleProctor {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a token, returning its claims.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	if claims.Role != RoleCandidate && claims.Role != RoleProctor {
		return nil, fmt.Errorf("unknown role %q", claims.Role)
	}
	return claims, nil
}
