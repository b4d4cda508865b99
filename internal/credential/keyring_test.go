package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useArrayKeyring(t *testing.T) *keyring.ArrayKeyring {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	orig := openKeyring
	openKeyring = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { openKeyring = orig })
	return ring
}

func TestPortalLoginRoundTrip(t *testing.T) {
	useArrayKeyring(t)

	username, password, err := PortalLogin()
	require.NoError(t, err)
	assert.Empty(t, username)
	assert.Empty(t, password)

	require.NoError(t, SavePortalLogin("zs123", "secret"))

	username, password, err = PortalLogin()
	require.NoError(t, err)
	assert.Equal(t, "zs123", username)
	assert.Equal(t, "secret", password)

	require.NoError(t, DeletePortalLogin())
	require.NoError(t, DeletePortalLogin(), "deleting twice is fine")

	username, _, err = PortalLogin()
	require.NoError(t, err)
	assert.Empty(t, username)
}

func TestGetMissingKey(t *testing.T) {
	useArrayKeyring(t)

	_, err := Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}
