package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name used in the OS keyring.
	KeyringService = "paceman-aa"
	// KeyringAccessKey is the keyring user under which the access key is stored.
	KeyringAccessKey = "accessKey"
)

// ErrSecretNotFound is returned when the keyring has no entry.
var ErrSecretNotFound = errors.New("secret not found")

// Keyring stores secrets in the operating system's credential store.
type Keyring struct {
	service string
}

func NewKeyring() *Keyring {
	return &Keyring{service: KeyringService}
}

func (k *Keyring) Get(key string) (string, error) {
	secret, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", key, err)
	}
	return secret, nil
}

func (k *Keyring) Set(key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("keyring set %s: %w", key, err)
	}
	return nil
}
