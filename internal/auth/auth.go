// Package auth validates HS256 bearer tokens for the sequencing API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// OAuth scopes understood by the sequencing API.
const (
	ScopeSequencesWrite = "sequences:write"
	ScopeSequencesRead  = "sequences:read"
	// ScopeSequencesAdmin lets a caller generate or list classes for other users.
	ScopeSequencesAdmin = "sequences:admin"
)

// Config holds token verification parameters.
type Config struct {
	Secret string
	Issuer string
}

// Claims is the verified subset of a token the handlers rely on.
type Claims struct {
	Subject   string
	Scopes    map[string]struct{}
	ExpiresAt time.Time
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid bearer token")
)

// Parse validates a token and returns its claims. Subject and expiry are mandatory.
func Parse(token string, cfg Config) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired()}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	mapped, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	subject, err := mapped.GetSubject()
	if err != nil || subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}
	exp, err := mapped.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: expiry is required", ErrInvalidToken)
	}

	return &Claims{
		Subject:   subject,
		Scopes:    scopeSet(mapped["scopes"]),
		ExpiresAt: exp.Time,
	}, nil
}

// scopeSet accepts both a space separated string and a JSON array.
func scopeSet(value interface{}) map[string]struct{} {
	out := make(map[string]struct{})
	add := func(s string) {
		if s != "" {
			out[s] = struct{}{}
		}
	}
	switch v := value.(type) {
	case string:
		for _, s := range strings.Fields(v) {
			add(s)
		}
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case []string:
		for _, s := range v {
			add(s)
		}
	}
	return out
}

// HasScope reports whether the claims carry scope.
func (c *Claims) HasScope(scope string) bool {
	if c == nil {
		return false
	}
	_, ok := c.Scopes[scope]
	return ok
}

// CanRead reports whether the caller may read sequences. Write implies read.
func (c *Claims) CanRead() bool {
	return c.HasScope(ScopeSequencesRead) || c.HasScope(ScopeSequencesWrite)
}

// ActsFor reports whether the caller may act on userID's classes: their own always,
// anyone else's only with the admin scope.
func (c *Claims) ActsFor(userID string) bool {
	if c == nil {
		return false
	}
	return userID == c.Subject || c.HasScope(ScopeSequencesAdmin)
}
