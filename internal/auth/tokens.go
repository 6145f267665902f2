// Package auth issues and verifies the bearer tokens that gate registry
// mutations, and manages the user accounts tokens are bound to.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/crates"
	"github.com/cargohold/cargohold/internal/storage"
)

// tokenBytes is the secret length; the base58 encoding of these bytes is the
// only form the cleartext ever takes outside this package.
const tokenBytes = 32

// Tokens issues, verifies and revokes bearer tokens. Storage holds only the
// SHA-256 digest of each secret.
type Tokens struct {
	tokens *storage.TokenStore
	users  *storage.UserStore
	logger *logrus.Logger
}

// NewTokens wires the authenticator over the token and user partitions.
func NewTokens(tokens *storage.TokenStore, users *storage.UserStore, logger *logrus.Logger) *Tokens {
	return &Tokens{tokens: tokens, users: users, logger: logger}
}

// Issue creates a token for (username, label) and returns its base58
// cleartext. A duplicate (username, label) is a rejected duplicate, not
// idempotent creation: issued is false and no token is minted.
func (t *Tokens) Issue(username, label string) (token string, issued bool, err error) {
	existing, err := t.tokens.ForUser(username)
	if err != nil {
		return "", false, err
	}
	for _, entry := range existing {
		if entry.Label == label {
			return "", false, nil
		}
	}

	secret := make([]byte, tokenBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", false, crates.Storagef(err, "could not generate token")
	}
	digest := sha256.Sum256(secret)

	entry := &storage.TokenEntry{Username: username, Label: label}
	if err := t.tokens.Put(digest[:], entry); err != nil {
		return "", false, err
	}

	t.logger.WithFields(logrus.Fields{
		"action": "token_issue",
		"user":   username,
		"label":  label,
	}).Info("issued token")
	return base58.Encode(secret), true, nil
}

// Verify resolves a presented token to its entry and owning user. Every
// failure mode collapses to Unauthenticated so callers cannot probe which
// stage failed.
func (t *Tokens) Verify(token string) (*storage.TokenEntry, *storage.UserRecord, error) {
	secret, err := base58.Decode(token)
	if err != nil {
		return nil, nil, crates.Unauthenticatedf("invalid authorization token")
	}
	digest := sha256.Sum256(secret)

	entry, err := t.tokens.Get(digest[:])
	if err == storage.ErrNotFound {
		return nil, nil, crates.Unauthenticatedf("invalid authorization token")
	}
	if err != nil {
		return nil, nil, err
	}

	// A token whose user was deleted is an orphan, not a fault.
	user, err := t.users.Get(entry.Username)
	if err == storage.ErrNotFound {
		return nil, nil, crates.Unauthenticatedf("invalid authorization token")
	}
	if err != nil {
		return nil, nil, err
	}

	return entry, user, nil
}

// Revoke deletes every token matching (username, label) exactly.
func (t *Tokens) Revoke(username, label string) error {
	deleted, err := t.tokens.DeleteMatching(username, label)
	if err != nil {
		return err
	}
	t.logger.WithFields(logrus.Fields{
		"action":  "token_revoke",
		"user":    username,
		"label":   label,
		"deleted": deleted,
	}).Info("revoked tokens")
	return nil
}

// List returns the token entries owned by username, for display purposes.
func (t *Tokens) List(username string) ([]storage.TokenEntry, error) {
	entries, err := t.tokens.ForUser(username)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return entries, nil
}
