package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast; the format is the same.
var testParams = Params{MemoryKB: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(testParams)
	require.NoError(t, err)
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("Secret123!")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))
	require.NotContains(t, encoded, "Secret123!")

	ok, err := h.Verify("Secret123!", encoded)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = h.Verify("secret123!", encoded)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("same-password")
	require.NoError(t, err)
	b, err := h.Hash("same-password")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerify_UsesEmbeddedParams(t *testing.T) {
	old := newTestHasher(t)
	encoded, err := old.Hash("Secret123!")
	require.NoError(t, err)

	stronger, err := NewHasher(Params{MemoryKB: 16 * 1024, Time: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)

	ok, err := stronger.Verify("Secret123!", encoded)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerify_RejectsMalformed(t *testing.T) {
	h := newTestHasher(t)

	for _, bad := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaGhhc2hoYXNoaGFzaA",
	} {
		_, err := h.Verify("x", bad)
		require.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}

func TestNewHasher_Validation(t *testing.T) {
	_, err := NewHasher(Params{MemoryKB: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.Error(t, err)

	_, err = NewHasher(Params{MemoryKB: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.Error(t, err)

	_, err = NewHasher(DefaultParams)
	require.NoError(t, err)
}
