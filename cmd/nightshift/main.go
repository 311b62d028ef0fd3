package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/microsoftarchive/night-shift/pkg/api"
	"github.com/microsoftarchive/night-shift/pkg/executor"
	"github.com/microsoftarchive/night-shift/pkg/logging"
	"github.com/microsoftarchive/night-shift/pkg/processing"
	"github.com/spf13/cobra"
)

var version = "dev"

const (
	_ = iota
	exitDotenvError
	exitConfigError
	exitTemplateError
	exitExecutionError
	exitToolErrors
)

const argsUsage = `Arguments are template paths (or doublestar globs) interleaved with
"--name value" pairs. Every pair becomes a template variable. Reserved names:

  --db postgres|mysql|redshift|mssql   dialect (default postgres)
  --config REF                         connection config (default: the dialect)
  --configdir DIR                      where REF is looked up (default $NIGHTSHIFT_CONFIG_DIR or ./config)
  --csv true|false                     stream the final result as CSV
  --dryrunfirst true|false             print the first query and stop
  --dryrunfinal true|false             run all but the last query, print it and stop
  --contextfile FILE                   YAML file seeding template variables
  --loglevel debug|info|warn|error
  --logtype tint|text|json`

func main() {
	err := rootCmd().ExecuteContext(context.Background())
	os.Exit(exitCode(err))
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "nightshift",
		Short: "Run chained SQL templates through a database's command line client",
		Long: `nightshift expands SQL templates in order and runs each one through psql,
mysql or sqlcmd. Intermediate results can be turned into variables for the
following templates; the last template's result is written to stdout.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(runCmd())
	root.AddCommand(renderCmd())
	root.AddCommand(versionCmd())
	return root
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "run TEMPLATE... [--name value]...",
		Short:              "Expand and execute templates in order",
		Long:               "Expand and execute templates in order.\n\n" + argsUsage,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInvocation(cmd, args, func(ctx context.Context, inv *api.Invocation) error {
				return processing.RunInvocation(ctx, inv, executor.NewCLI(), os.Stdout, os.Stderr)
			})
		},
	}
}

func renderCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "render TEMPLATE... [--name value]...",
		Short:              "Print the query each template would send, without a database",
		Long:               "Print the query each template would send as the last step.\n\n" + argsUsage,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInvocation(cmd, args, func(ctx context.Context, inv *api.Invocation) error {
				return processing.Render(ctx, inv, os.Stdout, os.Stderr)
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// withInvocation parses args, sets up logging and the environment, and
// runs fn with a context cancelled on SIGINT/SIGTERM.
func withInvocation(cmd *cobra.Command, args []string, fn func(context.Context, *api.Invocation) error) error {
	if len(args) == 1 && (args[0] == "-h" || args[0] == "--help") {
		return cmd.Help()
	}

	// .env may set NIGHTSHIFT_CONFIG_DIR, so it goes before parsing.
	envErr := godotenv.Load()

	inv, err := api.ParseArgs(args)
	if err != nil {
		return &processing.ConfigError{Err: err}
	}

	if err := logging.Initialize(os.Stderr, inv.LogType, inv.LogLevel); err != nil {
		return &processing.ConfigError{Err: err}
	}

	if err := includeEnv(envErr); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return fn(ctx, inv)
}

type dotenvError struct{ err error }

func (e *dotenvError) Error() string { return "loading .env: " + e.err.Error() }
func (e *dotenvError) Unwrap() error { return e.err }

func includeEnv(err error) error {
	if err != nil {
		if !os.IsNotExist(err) {
			return &dotenvError{err: err}
		}
		slog.Debug("no .env file found")
		return nil
	}
	slog.Info("using .env file")
	return nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, processing.ErrDryRun) {
		slog.Info("dry run finished")
		return 0
	}

	var (
		dotenvErr *dotenvError
		cfgErr    *processing.ConfigError
		tmplErr   *processing.TemplateError
		execErr   *processing.ExecutionError
	)

	code := exitToolErrors
	switch {
	case errors.As(err, &dotenvErr):
		code = exitDotenvError
	case errors.As(err, &cfgErr):
		code = exitConfigError
	case errors.As(err, &tmplErr):
		code = exitTemplateError
	case errors.As(err, &execErr):
		code = exitExecutionError
	}

	slog.Error("run failed", "error", err, "exitCode", code)
	return code
}
