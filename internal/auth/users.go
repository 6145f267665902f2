package auth

import (
	"github.com/alexedwards/argon2id"
	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/crates"
	"github.com/cargohold/cargohold/internal/storage"
)

// Users manages account registration and password verification. Passwords
// are stored as Argon2id encoded hashes and checked with the library's
// constant-time comparison; raw hash bytes are never compared here.
type Users struct {
	users  *storage.UserStore
	logger *logrus.Logger
}

// NewUsers wires the user service over the user partition.
func NewUsers(users *storage.UserStore, logger *logrus.Logger) *Users {
	return &Users{users: users, logger: logger}
}

// Register creates an account, rejecting duplicates.
func (u *Users) Register(username, password string) error {
	if username == "" || password == "" {
		return crates.Validationf("username and password required")
	}

	_, err := u.users.Get(username)
	if err == nil {
		return crates.Conflictf("user already exists")
	}
	if err != storage.ErrNotFound {
		return err
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return crates.Storagef(err, "could not hash password")
	}

	err = u.users.Put(&storage.UserRecord{
		Username: username,
		Password: hash,
		Blocked:  false,
	})
	if err != nil {
		return err
	}

	u.logger.WithFields(logrus.Fields{
		"action": "user_register",
		"user":   username,
	}).Info("user registered")
	return nil
}

// VerifyPassword resolves username and checks the password. Unknown users,
// wrong passwords and blocked accounts all collapse to Unauthenticated.
func (u *Users) VerifyPassword(username, password string) (*storage.UserRecord, error) {
	user, err := u.users.Get(username)
	if err == storage.ErrNotFound {
		return nil, crates.Unauthenticatedf("invalid credentials")
	}
	if err != nil {
		return nil, err
	}

	match, err := argon2id.ComparePasswordAndHash(password, user.Password)
	if err != nil {
		return nil, crates.Storagef(err, "could not verify password")
	}
	if !match {
		return nil, crates.Unauthenticatedf("invalid credentials")
	}
	if user.Blocked {
		return nil, crates.Unauthenticatedf("user blocked")
	}
	return user, nil
}
