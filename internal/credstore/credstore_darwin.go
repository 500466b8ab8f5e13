//go:build darwin

package credstore

import (
	"github.com/keybase/go-keychain"
	"github.com/pkg/errors"
)

// KeychainStore persists passwords in the macOS login keychain via
// Security.framework, through keybase/go-keychain.
type KeychainStore struct{}

// NewKeychainStore returns the OS-keyring-backed Store for this platform.
func NewKeychainStore() Store { return KeychainStore{} }

func (KeychainStore) Set(account, password string) error {
	service := serviceFor(account)
	_ = keychain.DeleteGenericPasswordItem(service, account)

	item := keychain.NewGenericPassword(service, account, "davsync credential", []byte(password), "")
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlocked)
	if err := keychain.AddItem(item); err != nil {
		return errors.Wrap(err, "add keychain item")
	}
	return nil
}

func (KeychainStore) Get(account string) (string, error) {
	service := serviceFor(account)
	data, err := keychain.GetGenericPassword(service, account, "", "")
	if err != nil {
		return "", errors.Wrap(err, "query keychain item")
	}
	if data == nil {
		return "", errors.New("no keychain entry found")
	}
	return string(data), nil
}

func (KeychainStore) Delete(account string) error {
	return keychain.DeleteGenericPasswordItem(serviceFor(account), account)
}
