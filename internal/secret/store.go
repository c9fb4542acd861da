// Package secret resolves credentials that configuration refers to by name
// instead of holding them in plain text.
package secret

import (
	"fmt"
	"strings"
)

// Prefix marks a configuration value as a reference into a Store, e.g.
// "keychain:s3-secret".
const Prefix = "keychain:"

// Store holds secrets by key. The keychain implementation is the default;
// MapStore serves tests and environments without one.
type Store interface {
	// Set stores a secret value under the given key, replacing any old one.
	Set(key string, value []byte) error

	// Get returns nil and no error when the key does not exist.
	Get(key string) ([]byte, error)

	Delete(key string) error
}

// Resolve returns value unchanged unless it carries Prefix, in which case
// the referenced secret is looked up. A reference to a missing secret is an
// error.
func Resolve(s Store, value string) (string, error) {
	key, ok := strings.CutPrefix(value, Prefix)
	if !ok {
		return value, nil
	}
	if key == "" {
		return "", fmt.Errorf("empty secret reference %q", value)
	}
	if s == nil {
		return "", fmt.Errorf("secret %q: no secret store configured", key)
	}
	v, err := s.Get(key)
	if err != nil {
		return "", fmt.Errorf("secret %q: %w", key, err)
	}
	if v == nil {
		return "", fmt.Errorf("secret %q not found", key)
	}
	return string(v), nil
}

// MapStore keeps secrets in memory.
type MapStore map[string]string

func (m MapStore) Set(key string, value []byte) error {
	m[key] = string(value)
	return nil
}

func (m MapStore) Get(key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, nil
	}
	return []byte(v), nil
}

func (m MapStore) Delete(key string) error {
	delete(m, key)
	return nil
}
