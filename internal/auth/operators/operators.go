// Package operators authenticates admin API callers and authorizes what they may touch.
//
// An operator token has the form "<name>.<secret>". Only its bcrypt hash is configured,
// so leaked configuration does not grant access.
package operators

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/collection"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthenticated = errors.New("operator not authenticated")
	ErrForbidden       = errors.New("operator not allowed")
)

// Operator is one configured admin identity.
type Operator struct {
	Name      string `json:"name" mapstructure:"name"`
	TokenHash string `json:"token_hash" mapstructure:"token_hash"`
}

// Registry verifies bearer tokens against configured operators. Verified tokens are
// remembered by digest for a short while so bcrypt runs once per token, not per request.
type Registry struct {
	hashes   map[string][]byte
	verified *collection.Cache
}

func NewRegistry(ops []Operator) (*Registry, error) {
	r := &Registry{hashes: map[string][]byte{}}
	for _, op := range ops {
		name := strings.TrimSpace(op.Name)
		if name == "" || strings.Contains(name, ".") {
			return nil, fmt.Errorf("operator name %q must be non-empty and contain no '.'", op.Name)
		}
		if _, err := bcrypt.Cost([]byte(op.TokenHash)); err != nil {
			return nil, fmt.Errorf("operator %s: token_hash is not a bcrypt hash: %w", name, err)
		}
		if _, dup := r.hashes[name]; dup {
			return nil, fmt.Errorf("operator %s configured twice", name)
		}
		r.hashes[name] = []byte(op.TokenHash)
	}
	c, err := collection.NewCache(5*time.Minute, collection.WithLimit(1024), collection.WithName("operator-tokens"))
	if err != nil {
		return nil, err
	}
	r.verified = c
	return r, nil
}

// Len is the number of configured operators.
func (r *Registry) Len() int { return len(r.hashes) }

// Authenticate returns the operator name for token.
func (r *Registry) Authenticate(token string) (string, error) {
	token = strings.TrimSpace(token)
	name, _, ok := strings.Cut(token, ".")
	if !ok || name == "" {
		return "", ErrUnauthenticated
	}
	hash, known := r.hashes[name]
	if !known {
		return "", ErrUnauthenticated
	}
	digest := digestOf(token)
	if v, ok := r.verified.Get(digest); ok {
		if n, _ := v.(string); n == name {
			return name, nil
		}
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(token)); err != nil {
		return "", ErrUnauthenticated
	}
	r.verified.Set(digest, name)
	return name, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// NewToken mints a random token for name and returns it with its bcrypt hash.
func NewToken(name string) (token, hash string, err error) {
	if name == "" || strings.Contains(name, ".") {
		return "", "", fmt.Errorf("invalid operator name %q", name)
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token = name + "." + hex.EncodeToString(buf)
	if len(token) > 72 {
		// bcrypt only looks at the first 72 bytes
		return "", "", fmt.Errorf("operator name %q too long", name)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", "", err
	}
	return token, string(h), nil
}

func digestOf(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
