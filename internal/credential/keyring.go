package credential

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "eminus-watch"

// Keys under which the portal login is stored.
const (
	KeyUsername = "eminus-username"
	KeyPassword = "eminus-password"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// openKeyring returns a configured keyring instance. Tests replace it.
var openKeyring = func() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/eminus-watch/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("eminus-watch-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key. A missing key is not an error.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// PortalLogin returns the stored username and password. Either may be empty
// when it was never saved.
func PortalLogin() (username, password string, err error) {
	username, err = Get(KeyUsername)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", "", err
	}
	password, err = Get(KeyPassword)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", "", err
	}
	return username, password, nil
}

// SavePortalLogin stores the username and password.
func SavePortalLogin(username, password string) error {
	if err := Set(KeyUsername, username); err != nil {
		return err
	}
	return Set(KeyPassword, password)
}

// DeletePortalLogin removes the stored username and password.
func DeletePortalLogin() error {
	return errors.Join(Delete(KeyUsername), Delete(KeyPassword))
}
