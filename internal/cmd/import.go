package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"blocknotes/internal/app"
	"blocknotes/internal/etl"
)

func importCmd() *cobra.Command {
	var (
		sourceCfg string
		jobFile   string
		mode      string
		types     []string
		limit     int
		preview   int
	)

	cmd := cobra.Command{
		Use:   "import [SOURCE [KEY=VALUE...]]",
		Short: "Import blocks from a file, an HTTP endpoint or another block store.",
		Example: `  blocknotes import json_file filePath=export.json
  blocknotes import csv_file filePath=todo.csv blockType=bullet --mode create
  blocknotes import blocks driver=sqlite dsn=old.db --type heading --preview 5
  blocknotes import --job nightly.yaml
  blocknotes import`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var job etl.Job
			switch {
			case jobFile != "":
				data, err := os.ReadFile(jobFile)
				if err != nil {
					return fmt.Errorf("read job: %w", err)
				}
				if err := yaml.Unmarshal(data, &job); err != nil {
					return fmt.Errorf("parse job %s: %w", jobFile, err)
				}
			case len(args) == 0:
				return printJSON(cmd, etl.ListSources())
			default:
				fields, err := parseFields(sourceCfg, args[1:])
				if err != nil {
					return err
				}
				job = etl.Job{SourceType: args[0], SourceCfg: fields}
			}

			m := string(job.Mode)
			if cmd.Flags().Changed("mode") || m == "" {
				m = mode
			}
			var err error
			if job.Mode, err = etl.ParseImportMode(m); err != nil {
				return err
			}
			if len(types) > 0 {
				job.Types = types
			}
			if limit > 0 {
				job.Limit = limit
			}

			return withApp(cmd, func(a *app.App) error {
				engine := a.Importer()
				if preview > 0 {
					records, err := engine.Preview(cmd.Context(), job.SourceType, job.SourceCfg, preview)
					if err != nil {
						return err
					}
					return printJSON(cmd, records)
				}
				res, err := engine.Run(cmd.Context(), &job)
				if perr := printJSON(cmd, res); perr != nil {
					return perr
				}
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sourceCfg, "source-config", "", "Source configuration as a JSON object.")
	flags.StringVar(&jobFile, "job", "", "YAML file describing the import job.")
	flags.StringVar(&mode, "mode", string(etl.ImportUpsert), "upsert keeps record ids, create always makes new blocks.")
	flags.StringSliceVarP(&types, "type", "t", nil, "Only import these block types.")
	flags.IntVar(&limit, "limit", 0, "Import at most this many records.")
	flags.IntVar(&preview, "preview", 0, "Print up to N records without importing them.")

	return &cmd
}
