/*
Package cli provides command-line interface utilities for the designer
binary: output formatters, exit-code-bearing errors, a progress reporter,
and shutdown signal handling.

Output Formatting:

Command results render as text, JSON, or CSV. CSV requires the result type
to implement Tabular:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, result)

Exit Codes:

Commands return ConfigError for input mistakes and CommandError for failed
executions; the binary's entry point maps the returned error to a process
exit code:

	os.Exit(cli.ExitCode(err))

Progress Reporting:

For long-running batch operations:

	progress := cli.NewProgressReporter(nil, "evaluating")
	progress.Start(total)
	for i := int64(0); i < total; i++ {
		// Do work
		progress.Update(i + 1)
	}
	progress.Finish()

Signal Handling:

For commands that run until interrupted:

	ctx, stop := cli.ShutdownContext(context.Background())
	defer stop()
	<-ctx.Done()
*/
package cli
