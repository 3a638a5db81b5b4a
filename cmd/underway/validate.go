package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateFlags struct {
	source sourceFlags
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the topology compiles",
	Long: `Load the documents and compile the root document without writing output.

The exit status is 0 when the topology compiles, 2 when it does not and 3
when the configuration itself is invalid.

Examples:
  underway validate
  underway validate --source ./deploy --max-depth 50`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateFlags.source.register(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(validateFlags.source.apply)
	if err != nil {
		return err
	}

	s, err := newSession(cmd.Context(), cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.runner.Check(s.ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s compiles (%d documents, %d compile calls)\n",
		res.Source, res.Documents, res.Calls)
	return nil
}
