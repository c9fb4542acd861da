package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"blocknotes/internal/app"
	"blocknotes/internal/config"
	"blocknotes/internal/log"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(fConfig, fEnvFile)
	if err != nil {
		return nil, err
	}
	if fLogLevel == "" {
		if err := log.Set(cfg.Log.Level); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// withApp opens the application for one command and closes it afterwards,
// returning the first of the command and close errors.
func withApp(cmd *cobra.Command, fn func(a *app.App) error, opts ...app.Option) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	opts = append([]app.Option{app.WithSecrets(secretStore())}, opts...)
	a, err := app.New(cmd.Context(), cfg, opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, a.Close(cmd.Context()))
	}()
	return fn(a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

// parseFields merges a JSON object from --data with key=value arguments.
// Values from arguments are text; numeric fields accept numeric text.
func parseFields(data string, pairs []string) (map[string]any, error) {
	fields := map[string]any{}
	if strings.TrimSpace(data) != "" {
		if err := json.Unmarshal([]byte(data), &fields); err != nil {
			return nil, fmt.Errorf("parse --data: %w", err)
		}
		if fields == nil {
			return nil, fmt.Errorf("parse --data: expected a JSON object")
		}
	}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q, expected key=value", p)
		}
		fields[key] = value
	}
	return fields, nil
}
