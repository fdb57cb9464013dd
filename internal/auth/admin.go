// Package auth guards the catalog-mutation endpoints. There are no end-user
// accounts; stream clients are anonymous and the only privileged surface is a
// single operator key checked against a bcrypt hash from configuration.
package auth

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAdminDisabled indicates no admin key hash is configured, so the
	// admin surface is switched off entirely.
	ErrAdminDisabled = errors.New("admin access is not configured")
	// ErrInvalidAdminKey indicates the presented key does not match.
	ErrInvalidAdminKey = errors.New("invalid admin key")
)

// AdminGuard authorizes operator requests.
type AdminGuard struct {
	hash []byte
}

// NewAdminGuard constructs a guard from a bcrypt hash of the admin key. An
// empty hash disables admin access rather than allowing everything.
func NewAdminGuard(bcryptHash string) *AdminGuard {
	bcryptHash = strings.TrimSpace(bcryptHash)
	if bcryptHash == "" {
		return &AdminGuard{}
	}
	return &AdminGuard{hash: []byte(bcryptHash)}
}

// Enabled reports whether an admin key hash is configured.
func (g *AdminGuard) Enabled() bool {
	return g != nil && len(g.hash) > 0
}

// Authorize checks the presented key against the configured hash.
func (g *AdminGuard) Authorize(key string) error {
	if !g.Enabled() {
		return ErrAdminDisabled
	}
	if key == "" {
		return ErrInvalidAdminKey
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(key)); err != nil {
		return ErrInvalidAdminKey
	}
	return nil
}
