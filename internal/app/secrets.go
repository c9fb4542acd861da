package app

import (
	"fmt"

	"blocknotes/internal/config"
	"blocknotes/internal/secret"
)

// resolveSecrets returns a copy of cfg with every "keychain:" reference in a
// credential field replaced by the stored secret.
func resolveSecrets(cfg *config.Config, store secret.Store) (*config.Config, error) {
	out := *cfg
	fields := []struct {
		name string
		v    *string
	}{
		{"storage.dsn", &out.Storage.DSN},
		{"storage.remote_token", &out.Storage.RemoteToken},
		{"storage.mongo_uri", &out.Storage.MongoURI},
		{"upload.token", &out.Upload.Token},
		{"upload.access_key", &out.Upload.AccessKey},
		{"upload.secret_key", &out.Upload.SecretKey},
	}
	for _, f := range fields {
		v, err := secret.Resolve(store, *f.v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.v = v
	}
	return &out, nil
}
