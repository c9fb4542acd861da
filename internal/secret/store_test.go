package secret_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blocknotes/internal/secret"
)

func TestResolve(t *testing.T) {
	store := secret.MapStore{}
	require.NoError(t, store.Set("s3", []byte("hunter2")))

	v, err := secret.Resolve(store, "plain-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", v)

	v, err = secret.Resolve(store, "keychain:s3")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)

	_, err = secret.Resolve(store, "keychain:missing")
	assert.ErrorContains(t, err, "not found")

	_, err = secret.Resolve(store, "keychain:")
	assert.Error(t, err)

	_, err = secret.Resolve(nil, "keychain:s3")
	assert.Error(t, err)

	v, err = secret.Resolve(nil, "")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestMapStore_Delete(t *testing.T) {
	store := secret.MapStore{"a": "1"}
	require.NoError(t, store.Delete("a"))
	require.NoError(t, store.Delete("a"))
	v, err := store.Get("a")
	require.NoError(t, err)
	assert.Nil(t, v)
}
