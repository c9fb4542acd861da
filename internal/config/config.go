// Package config loads blocknotes settings from a yaml file, a .env file and
// BLOCKNOTES_* environment variables, in that order of increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLOCKNOTES_"

// Config represents the complete configuration structure.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Upload   UploadConfig   `yaml:"upload"`
	IDs      IDConfig       `yaml:"ids"`
	Autosave AutosaveConfig `yaml:"autosave"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`
}

// StorageConfig selects the unit repository. Driver is one of memory, file,
// sqlite, postgres, mysql, mongo or remote.
type StorageConfig struct {
	Driver        string `yaml:"driver" env:"STORAGE_DRIVER" default:"file"`
	DSN           string `yaml:"dsn" env:"STORAGE_DSN"`
	Dir           string `yaml:"dir" env:"STORAGE_DIR" default:".blocknotes/blocks"`
	RemoteURL     string `yaml:"remote_url" env:"STORAGE_REMOTE_URL"`
	RemoteToken   string `yaml:"remote_token" env:"STORAGE_REMOTE_TOKEN"`
	MongoURI      string `yaml:"mongo_uri" env:"STORAGE_MONGO_URI" default:"mongodb://localhost:27017"`
	MongoDatabase string `yaml:"mongo_database" env:"STORAGE_MONGO_DATABASE" default:"blocknotes"`
	// Watch reloads live blocks changed by other processes: fsnotify for
	// the file driver, polling every PollInterval for the others.
	Watch        bool          `yaml:"watch" env:"STORAGE_WATCH" default:"true"`
	PollInterval time.Duration `yaml:"poll_interval" env:"STORAGE_POLL_INTERVAL" default:"5s"`
}

// UploadConfig selects where image bytes go. Kind is one of none, local,
// http or s3.
type UploadConfig struct {
	Kind        string `yaml:"kind" env:"UPLOAD_KIND" default:"local"`
	Dir         string `yaml:"dir" env:"UPLOAD_DIR" default:".blocknotes/media"`
	BaseURL     string `yaml:"base_url" env:"UPLOAD_BASE_URL"`
	Endpoint    string `yaml:"endpoint" env:"UPLOAD_ENDPOINT"`
	Token       string `yaml:"token" env:"UPLOAD_TOKEN"`
	Bucket      string `yaml:"bucket" env:"UPLOAD_BUCKET"`
	Region      string `yaml:"region" env:"UPLOAD_REGION" default:"auto"`
	EndpointURL string `yaml:"endpoint_url" env:"UPLOAD_ENDPOINT_URL"`
	AccessKey   string `yaml:"access_key" env:"UPLOAD_ACCESS_KEY"`
	SecretKey   string `yaml:"secret_key" env:"UPLOAD_SECRET_KEY"`
	PublicURL   string `yaml:"public_url" env:"UPLOAD_PUBLIC_URL"`
	Prefix      string `yaml:"prefix" env:"UPLOAD_PREFIX" default:"blocks/"`
}

type IDConfig struct {
	Kind string `yaml:"kind" env:"IDS_KIND" default:"uuid"`
}

// AutosaveConfig controls background saving for long-running commands. A
// zero delay turns the autosaver off.
type AutosaveConfig struct {
	Delay         time.Duration `yaml:"delay" env:"AUTOSAVE_DELAY" default:"750ms"`
	FlushSchedule string        `yaml:"flush_schedule" env:"AUTOSAVE_FLUSH_SCHEDULE" default:"@every 30s"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load builds the configuration. A missing file is not an error; the
// defaults and environment still apply. envFile is loaded with godotenv
// when it exists, without overriding variables already set.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	storageDrivers = []string{"memory", "file", "sqlite", "postgres", "mysql", "mongo", "remote"}
	uploadKinds    = []string{"none", "local", "http", "s3"}
)

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	if !contains(storageDrivers, c.Storage.Driver) {
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	switch c.Storage.Driver {
	case "postgres", "mysql":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for %s", c.Storage.Driver)
		}
	case "remote":
		if c.Storage.RemoteURL == "" {
			return errors.New("storage.remote_url is required for remote storage")
		}
	}

	if !contains(uploadKinds, c.Upload.Kind) {
		return fmt.Errorf("upload.kind: unknown kind %q", c.Upload.Kind)
	}
	switch c.Upload.Kind {
	case "http":
		if c.Upload.Endpoint == "" {
			return errors.New("upload.endpoint is required for http uploads")
		}
	case "s3":
		if c.Upload.Bucket == "" || c.Upload.PublicURL == "" {
			return errors.New("upload.bucket and upload.public_url are required for s3 uploads")
		}
	}

	if c.Autosave.Delay < 0 {
		return errors.New("autosave.delay must not be negative")
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ── Reflection helpers ─────────────────────────────────────

var durationType = reflect.TypeOf(time.Duration(0))

func applyDefaults(config any) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}
		if def := t.Field(i).Tag.Get("default"); def != "" {
			// Defaults are part of the source; a bad one is a programming error.
			if err := setField(field, def); err != nil {
				panic(fmt.Sprintf("config: default for %s: %v", t.Field(i).Name, err))
			}
		}
	}
}

// applyEnv overrides fields that carry an env tag and whose variable is set.
func applyEnv(config any, lookup func(string) (string, bool)) error {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := applyEnv(field.Addr().Interface(), lookup); err != nil {
				return err
			}
			continue
		}
		name := t.Field(i).Tag.Get("env")
		if name == "" {
			continue
		}
		raw, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := setField(field, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("env %s%s: %w", EnvPrefix, name, err)
		}
	}
	return nil
}

func setField(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := cast.ToDurationE(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int64:
		n, err := cast.ToInt64E(raw)
		if err != nil {
			return err
		}
		field.SetInt(n)
	default:
		return fmt.Errorf("unsupported field type %s", field.Kind())
	}
	return nil
}
