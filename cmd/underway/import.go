package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"underway-hq/underway/pkg/cli"
	"underway-hq/underway/pkg/world"
)

var importFlags struct {
	db    string
	prune bool
	quiet bool
}

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Copy documents from a directory into a SQLite source",
	Long: `Store every document file of a directory in a SQLite document database,
replacing documents of the same name. Each file must parse before it is
stored.

The database defaults to source.path when the configured source is sqlite.

Examples:
  underway import ./topologies --db topologies.db
  underway import ./topologies --db topologies.db --prune`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFlags.db, "db", "", "SQLite document database")
	importCmd.Flags().BoolVar(&importFlags.prune, "prune", false, "delete stored documents that are not in the directory")
	importCmd.Flags().BoolVarP(&importFlags.quiet, "quiet", "q", false, "do not show progress")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}

	dbPath := importFlags.db
	if dbPath == "" && cfg.Source.Type == world.TypeSQLite {
		dbPath = cfg.Source.Path
	}
	if dbPath == "" {
		return cli.NewConfigError("db", "no database given and the configured source is not sqlite")
	}

	files, err := world.NewDirSource(args[0], cfg.Source.Extensions).Files()
	if err != nil {
		return err
	}

	db, err := world.NewSQLiteSource(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	progress := cli.NewProgressReporter(cmd.ErrOrStderr(), "Importing")
	if !importFlags.quiet {
		progress.Start(len(files))
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if err := db.PutFile(ctx, f); err != nil {
			if !importFlags.quiet {
				progress.Error(err)
			}
			return err
		}
		names = append(names, f.Name)
		if !importFlags.quiet {
			progress.Step(f.Name)
		}
	}
	if !importFlags.quiet {
		progress.Finish()
	}

	var pruned int
	if importFlags.prune {
		stored, err := db.Names(ctx)
		if err != nil {
			return err
		}
		for _, name := range stored {
			if slices.Contains(names, name) {
				continue
			}
			if err := db.Delete(ctx, name); err != nil {
				return err
			}
			pruned++
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d documents into %s", len(files), dbPath)
	if importFlags.prune {
		fmt.Fprintf(cmd.OutOrStdout(), " (%d removed)", pruned)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

