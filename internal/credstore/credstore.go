// Package credstore stores and retrieves task passwords from the OS
// keyring. It is an external collaborator to the core reconciler:
// callers fall back to the config file's obscured value whenever no
// keyring entry exists, so a task still works on a platform with no
// keyring backend.
package credstore

import "fmt"

// servicePrefix mirrors filesyncer.py's KEYRING_APP_NAME prefix, scoping
// keyring entries to this tool so they don't collide with unrelated
// applications' secrets under the same account name.
const servicePrefix = "davsync:"

func serviceFor(account string) string {
	return fmt.Sprintf("%s%s", servicePrefix, account)
}

// Store persists and retrieves a task's WebDAV password under an
// account key the caller derives from "username@server".
type Store interface {
	Set(account, password string) error
	Get(account string) (string, error)
	Delete(account string) error
}
