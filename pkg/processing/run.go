package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/microsoftarchive/night-shift/pkg/api"
	"github.com/microsoftarchive/night-shift/pkg/executor"
	"github.com/microsoftarchive/night-shift/pkg/expand"
)

// Setup is everything a run needs that does not depend on the database.
type Setup struct {
	Templates []string
	Vars      api.Context
	Expander  *expand.Expander
	Logger    *slog.Logger
}

// Prepare resolves templates and seeds the Context for inv. The context
// file is loaded first and command line variables override it. Every
// failure is a *ConfigError.
func Prepare(inv *api.Invocation, opts ...expand.Option) (*Setup, error) {
	if err := inv.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}

	templates, err := ResolveTemplates(inv.Templates)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	var fileVars api.Context
	if inv.ContextFile != "" {
		if fileVars, err = LoadContextFile(inv.ContextFile); err != nil {
			return nil, &ConfigError{Err: err}
		}
	}
	vars := MergeContext(fileVars, api.NewContext(inv.Vars))

	opts = append([]expand.Option{expand.WithConfigDir(inv.ConfigDir)}, opts...)
	exp, err := expand.New(inv.Dialect, opts...)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	return &Setup{
		Templates: templates,
		Vars:      vars,
		Expander:  exp,
		Logger:    slog.With("run", uuid.NewString()),
	}, nil
}

// RunInvocation runs the whole pipeline described by inv with the given
// executor.
func RunInvocation(ctx context.Context, inv *api.Invocation, exec executor.Executor, stdout, stderr io.Writer) error {
	setup, err := Prepare(inv)
	if err != nil {
		return err
	}

	conn, err := api.LoadConnection(inv.ConfigRef, inv.ConfigDir, inv.Dialect)
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("loading connection: %w", err)}
	}
	setup.Logger.Info("starting run",
		"templates", len(setup.Templates), "dialect", inv.Dialect, "config", conn.Source, "csv", inv.CSV)

	runner := NewRunner(setup.Expander, exec, stdout, stderr, setup.Logger)
	return runner.Run(ctx, &Pipeline{
		Templates:   setup.Templates,
		Dialect:     inv.Dialect,
		Connection:  *conn,
		CSV:         inv.CSV,
		DryRunFirst: inv.DryRunFirst,
		DryRunFinal: inv.DryRunFinal,
	}, setup.Vars)
}

// Render prints the final query text of every template in inv without
// touching a database. Each template is expanded on its own against the
// seeded Context as if it were the last step, so no hooks run.
func Render(ctx context.Context, inv *api.Invocation, stdout, stderr io.Writer) error {
	setup, err := Prepare(inv)
	if err != nil {
		return err
	}

	runner := NewRunner(setup.Expander, nil, stdout, stderr, setup.Logger)
	for _, path := range setup.Templates {
		err := runner.Run(ctx, &Pipeline{
			Templates:   []string{path},
			Dialect:     inv.Dialect,
			CSV:         inv.CSV,
			DryRunFirst: true,
		}, setup.Vars.Snapshot())
		if err != nil && !errors.Is(err, ErrDryRun) {
			return err
		}
	}
	return nil
}
