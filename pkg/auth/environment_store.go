package auth

import (
	"os"
	"time"
)

const (
	EnvCookie    = "IMGHARVEST_COOKIE"
	EnvUserAgent = "IMGHARVEST_USER_AGENT"
)

// EnvironmentStore is a read-only CredentialStore over IMGHARVEST_COOKIE
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment session under the given name, or "env"
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	cookie := os.Getenv(EnvCookie)
	if cookie == "" {
		return nil, ErrCredentialsNotFound
	}

	if name == "" {
		name = "env"
	}

	return &Account{
		Name:         name,
		Cookie:       NormalizeCookie(cookie),
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the cookie variable is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment session is set
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(EnvCookie) != ""
}
