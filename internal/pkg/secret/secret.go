// Package secret hashes and verifies account secrets with slow, salted
// algorithms. Hashes are self-describing, so a Hasher can verify hashes of
// either algorithm while producing new ones with its configured one.
package secret

import (
	"errors"
	"fmt"
	"strings"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

var (
	ErrUnknownAlgorithm = errors.New("secret: unknown hash algorithm")
	ErrInvalidHash      = errors.New("secret: invalid hash")
	ErrTooLong          = errors.New("secret: too long")
)

type scheme interface {
	hash(secret string) (string, error)
	verify(secret, encoded string) (bool, error)
	owns(encoded string) bool
}

// Hasher produces hashes with one algorithm and verifies any known format.
type Hasher struct {
	primary scheme
	schemes []scheme
}

// New returns a Hasher producing hashes with algorithm. bcryptCost applies
// to the bcrypt scheme; out-of-range values fall back to the library default.
func New(algorithm string, bcryptCost int) (*Hasher, error) {
	b := newBcrypt(bcryptCost)
	a := newArgon2id()

	h := &Hasher{schemes: []scheme{b, a}}
	switch strings.ToLower(algorithm) {
	case "", AlgorithmBcrypt:
		h.primary = b
	case AlgorithmArgon2id:
		h.primary = a
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
	return h, nil
}

func (h *Hasher) Hash(secret string) (string, error) {
	return h.primary.hash(secret)
}

// Verify reports whether secret matches encoded. A mismatch is (false, nil);
// an error means the stored hash could not be used at all.
func (h *Hasher) Verify(secret, encoded string) (bool, error) {
	for _, s := range h.schemes {
		if s.owns(encoded) {
			return s.verify(secret, encoded)
		}
	}
	return false, ErrInvalidHash
}
