package secret

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSecurity mimics the security CLI over a map.
func fakeSecurity(items map[string]string, calls *[][]string) func(args ...string) (string, error) {
	return func(args ...string) (string, error) {
		*calls = append(*calls, args)
		account := ""
		for i, a := range args {
			if a == "-a" && i+1 < len(args) {
				account = args[i+1]
			}
		}
		switch args[0] {
		case "add-generic-password":
			items[account] = args[len(args)-1]
			return "", nil
		case "find-generic-password":
			v, ok := items[account]
			if !ok {
				return "", errItemNotFound
			}
			return v, nil
		case "delete-generic-password":
			if _, ok := items[account]; !ok {
				return "", errItemNotFound
			}
			delete(items, account)
			return "", nil
		}
		return "", errors.New("unexpected command")
	}
}

func TestKeychainStore(t *testing.T) {
	items := map[string]string{}
	var calls [][]string
	k := &KeychainStore{service: "blocknotes", security: fakeSecurity(items, &calls)}

	require.NoError(t, k.Set("s3", []byte("hunter2")))
	assert.Contains(t, calls[0], "-U")
	assert.Contains(t, calls[0], "blocknotes")

	v, err := k.Get("s3")
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), v)

	resolved, err := Resolve(k, "keychain:s3")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", resolved)

	require.NoError(t, k.Delete("s3"))
	require.NoError(t, k.Delete("s3"), "missing item")
	v, err = k.Get("s3")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestKeychainStore_Failure(t *testing.T) {
	k := &KeychainStore{service: "blocknotes", security: func(...string) (string, error) {
		return "", errors.New("user interaction is not allowed")
	}}
	_, err := k.Get("s3")
	assert.ErrorContains(t, err, "keychain get s3")
	assert.Error(t, k.Set("s3", []byte("x")))
	assert.Error(t, k.Delete("s3"))
}
