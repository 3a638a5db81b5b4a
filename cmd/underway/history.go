package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"underway-hq/underway/pkg/cli"
	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/history"
)

var historyFlags struct {
	limit     int
	output    string
	olderThan time.Duration
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent builds",
	Long: `List recorded builds, newest first.

Examples:
  underway history
  underway history --limit 50 --output csv
  underway history show 3f0c9a52-...
  underway history prune --older-than 168h`,
	Args: cobra.NoArgs,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <build-id>",
	Short: "Show one build",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old builds",
	Long: `Delete builds started before the retention period. The period defaults to
history.retention from the config file.`,
	Args: cobra.NoArgs,
	RunE: runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd, historyPruneCmd)

	historyCmd.PersistentFlags().StringVarP(&historyFlags.output, "output", "o", "text", "output format: text, json, csv")
	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum builds to show (0 for all)")
	historyPruneCmd.Flags().DurationVar(&historyFlags.olderThan, "older-than", 0, "delete builds older than this")
}

func openHistoryStore() (history.Store, error) {
	cfg, err := loadConfig(nil)
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, cli.NewConfigError("history.enabled", "build history is disabled")
	}
	return openHistory(cfg)
}

func historyTable(entries []history.Entry) *cli.Table {
	t := &cli.Table{
		Headers: []string{"ID", "STARTED", "DURATION", "STATUS", "CALLS", "SOURCE", "DETAIL"},
		Records: entries,
	}
	for _, e := range entries {
		detail := e.OutputDigest
		if len(detail) > 12 {
			detail = detail[:12]
		}
		if !e.Succeeded() {
			detail = e.ErrorMessage
			if e.ErrorCode != "" {
				detail = e.ErrorCode + " " + detail
			}
		}
		t.Rows = append(t.Rows, []string{
			e.ID,
			e.StartedAt.Local().Format(time.DateTime),
			e.Duration.Round(time.Microsecond).String(),
			e.Status,
			strconv.Itoa(e.Calls),
			e.Source,
			detail,
		})
	}
	return t
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context(), historyFlags.limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 && format == cli.FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), "No builds recorded")
		return nil
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), historyTable(entries))
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(historyFlags.output)
	if err != nil {
		return cli.NewConfigError("output", err.Error())
	}

	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entry, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("build %s: %w", args[0], err)
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), historyTable([]history.Entry{*entry}))
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	store, err := openHistoryStore()
	if err != nil {
		return err
	}
	defer store.Close()

	retention := historyFlags.olderThan
	if retention == 0 {
		retention = config.GetConfig().History.Retention
	}
	if retention <= 0 {
		return cli.NewConfigError("older-than", "retention must be positive")
	}

	deleted, err := store.Prune(cmd.Context(), time.Now().Add(-retention))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d builds older than %s\n", deleted, retention)
	return nil
}
