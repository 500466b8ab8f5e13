package credstore

// Account derives the keyring account key for a username/server pair,
// the same "login@server" shape filesyncer.py hashed into its keyring
// username.
func Account(username, server string) string {
	return username + "@" + server
}

// Resolve returns the password to use for account: the keyring entry
// if one exists, otherwise fallback (the caller's already-revealed
// config value). Errors from the keyring lookup are swallowed, not
// propagated, since a missing/unsupported keyring is an expected,
// non-fatal case.
func Resolve(s Store, username, server, fallback string) string {
	if password, err := s.Get(Account(username, server)); err == nil {
		return password
	}
	return fallback
}
