package authz

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"crm-auth-service/internal/model"
)

// Authenticator verifies email/password credentials against the stored
// bcrypt hash.
type Authenticator struct {
	store Store
}

// NewAuthenticator builds a credential verifier over the given store.
func NewAuthenticator(store Store) *Authenticator {
	return &Authenticator{store: store}
}

// Authenticate looks up an active user by email and checks the password.
// Unknown email, deactivated account and wrong password are all reported
// as the same ErrInvalidCredentials.
func (a *Authenticator) Authenticate(email, password string) (*model.User, error) {
	user, err := a.store.FindUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Active {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// HashPassword produces the bcrypt hash stored on the user row.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
