package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/document"
)

var compileFlags struct {
	source sourceFlags
	output string
	format string
}

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile the root document",
	Long: `Load the documents, expand every include reachable from the root document
and write the result.

Output goes to stdout unless --output names a file. The file is replaced
atomically, so readers never see a partial topology. The output format is
taken from --format, then from the output file extension, then from the
config file.

Examples:
  # Compile ./topologies to stdout as YAML
  underway compile

  # Compile into a JSON file
  underway compile --source ./deploy -o build/topology.json

  # Compile the previous commit of a git repository
  underway compile --source-type git --source . --revision HEAD~1`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileFlags.source.register(compileCmd)
	compileCmd.Flags().StringVarP(&compileFlags.output, "output", "o", "", "output file (default stdout)")
	compileCmd.Flags().StringVarP(&compileFlags.format, "format", "f", "", "output format: yaml, json, toml")
}

func applyOutputFlags(cfg *config.Config, output, format string) {
	if output != "" {
		cfg.Output.Path = output
		if format == "" {
			if f, ok := document.FormatFromPath(output); ok {
				cfg.Output.Format = string(f)
			}
		}
	}
	if format != "" {
		cfg.Output.Format = format
	}
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		compileFlags.source.apply(cfg)
		applyOutputFlags(cfg, compileFlags.output, compileFlags.format)
	})
	if err != nil {
		return err
	}

	s, err := newSession(cmd.Context(), cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.runner.Build(s.ctx)
	if err != nil {
		return err
	}

	if cfg.Output.Path != "" && cfg.Output.Path != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Compiled %d documents into %s (%d bytes, %s)\n",
			res.Documents, cfg.Output.Path, len(res.Data), res.Digest[:12])
	}
	return nil
}
