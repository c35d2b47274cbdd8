package ports

// SecretHasher hashes and verifies account secrets. A mismatch is
// (false, nil).
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) (bool, error)
}
