/*
Package cli provides helpers shared by the underway commands.

Errors map to exit codes with ExitCode: compile failures exit with
ExitCompile, configuration problems with ExitUsage and everything else with
ExitFailure. FormatError renders compile errors with their include and a
suggestion:

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		os.Exit(cli.ExitCode(err))
	}

Tabular output such as build history goes through a Formatter:

	formatter := cli.NewFormatter(cli.FormatCSV)
	if err := formatter.FormatTo(os.Stdout, table); err != nil {
		return err
	}

SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM, used by
long-running commands such as watch.
*/
package cli
