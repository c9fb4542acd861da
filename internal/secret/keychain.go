package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// errItemNotFound is returned by security when no item matches; the CLI
// signals it with exit code 44.
var errItemNotFound = errors.New("keychain item not found")

// KeychainStore implements Store on the macOS login keychain. Every
// secret is a generic password with the key as account under one service
// name.
type KeychainStore struct {
	service string
	// security runs the keychain CLI; replaced in tests.
	security func(args ...string) (string, error)
}

func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: "blocknotes", security: runSecurity}
}

func runSecurity(args ...string) (string, error) {
	out, err := exec.Command("security", args...).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 44 {
			return "", errItemNotFound
		}
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (k *KeychainStore) Set(key string, value []byte) error {
	// -U updates an existing item in place.
	if _, err := k.security("add-generic-password", "-U", "-a", key, "-s", k.service, "-w", string(value)); err != nil {
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.security("find-generic-password", "-a", key, "-s", k.service, "-w")
	switch {
	case errors.Is(err, errItemNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return []byte(out), nil
}

// Delete removes a secret. Deleting a missing key is not an error.
func (k *KeychainStore) Delete(key string) error {
	_, err := k.security("delete-generic-password", "-a", key, "-s", k.service)
	if err != nil && !errors.Is(err, errItemNotFound) {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}
