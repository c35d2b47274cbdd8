package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	for _, alg := range []string{AlgorithmBcrypt, AlgorithmArgon2id} {
		t.Run(alg, func(t *testing.T) {
			h, err := New(alg, bcrypt.MinCost)
			require.NoError(t, err)

			encoded, err := h.Hash("correct horse")
			require.NoError(t, err)
			assert.NotContains(t, encoded, "correct horse")

			ok, err := h.Verify("correct horse", encoded)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Verify("wrong horse", encoded)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestHasher_SaltedOutput(t *testing.T) {
	h, err := New(AlgorithmArgon2id, 0)
	require.NoError(t, err)

	a, err := h.Hash("same secret")
	require.NoError(t, err)
	b, err := h.Hash("same secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHasher_VerifiesOtherAlgorithm(t *testing.T) {
	old, err := New(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	encoded, err := old.Hash("legacy secret")
	require.NoError(t, err)

	current, err := New(AlgorithmArgon2id, 0)
	require.NoError(t, err)
	ok, err := current.Verify("legacy secret", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_InvalidHash(t *testing.T) {
	h, err := New(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	_, err = h.Verify("x", "plaintext")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = h.Verify("x", "$argon2id$v=19$m=bad$salt$key")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestHasher_Argon2idParamsOutOfRange(t *testing.T) {
	h, err := New(AlgorithmArgon2id, 0)
	require.NoError(t, err)

	valid, err := h.Hash("secret")
	require.NoError(t, err)
	parts := strings.Split(valid, "$")

	for _, params := range []string{"m=65536,t=3,p=0", "m=65536,t=0,p=1", "m=0,t=3,p=1", "m=4194304,t=3,p=1"} {
		corrupted := strings.Join([]string{parts[0], parts[1], parts[2], params, parts[4], parts[5]}, "$")
		assert.NotPanics(t, func() {
			ok, err := h.Verify("secret", corrupted)
			assert.ErrorIs(t, err, ErrInvalidHash, params)
			assert.False(t, ok)
		}, params)
	}
}

func TestHasher_TooLongForBcrypt(t *testing.T) {
	h, err := New(AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("a", 73))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestNew_UnknownAlgorithm(t *testing.T) {
	_, err := New("md5", 0)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}
