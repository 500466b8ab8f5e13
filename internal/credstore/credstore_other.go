//go:build !darwin

package credstore

import "github.com/pkg/errors"

// NoKeyringStore is used on platforms with no wired OS keyring backend.
// Every call fails, so the caller's fallback to the config file's
// obscured password value is always exercised there.
type NoKeyringStore struct{}

// NewKeychainStore returns a Store that always misses, on platforms
// where go-keychain has no backend wired in.
func NewKeychainStore() Store { return NoKeyringStore{} }

func (NoKeyringStore) Set(account, password string) error {
	return errors.New("credstore: no OS keyring backend on this platform")
}

func (NoKeyringStore) Get(account string) (string, error) {
	return "", errors.New("credstore: no OS keyring backend on this platform")
}

func (NoKeyringStore) Delete(account string) error {
	return errors.New("credstore: no OS keyring backend on this platform")
}
