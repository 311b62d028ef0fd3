package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/microsoftarchive/night-shift/pkg/api"
	"github.com/microsoftarchive/night-shift/pkg/dialect"
	"github.com/microsoftarchive/night-shift/pkg/executor"
	"github.com/microsoftarchive/night-shift/pkg/expand"
)

// Pipeline is an ordered list of templates and how to run them.
type Pipeline struct {
	Templates   []string
	Dialect     api.Dialect
	Connection  api.Connection
	CSV         bool
	DryRunFirst bool
	DryRunFinal bool
}

// Runner executes pipelines one step at a time.
type Runner struct {
	expander *expand.Expander
	executor executor.Executor
	stdout   io.Writer
	stderr   io.Writer
	logger   *slog.Logger
}

// NewRunner creates a Runner. Final results and dry-run queries go to
// stdout, failing queries to stderr.
func NewRunner(exp *expand.Expander, exec executor.Executor, stdout, stderr io.Writer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{expander: exp, executor: exec, stdout: stdout, stderr: stderr, logger: logger}
}

// Run executes every template in order. Hooks registered by intermediate
// templates write into vars before the next template expands. It returns
// ErrDryRun when a dry-run flag stopped the run.
func (r *Runner) Run(ctx context.Context, p *Pipeline, vars api.Context) error {
	if len(p.Templates) == 0 {
		return &ConfigError{Err: errors.New("need at least one template")}
	}
	if vars == nil {
		vars = api.Context{}
	}

	last := len(p.Templates) - 1
	for i, path := range p.Templates {
		mode := api.Intermediate
		if i == last {
			mode = api.Final
		}
		if err := r.runStep(ctx, p, i, path, mode, vars); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, p *Pipeline, step int, path string, mode api.Mode, vars api.Context) error {
	r.logger.Info("expanding template", "template", path, "dialect", p.Dialect, "step", step, "mode", mode)

	text, err := os.ReadFile(path)
	if err != nil {
		return &TemplateError{Step: step, Template: path, Err: fmt.Errorf("reading template: %w", err)}
	}

	res, err := r.expander.Expand(filepath.Base(path), string(text), vars)
	if err != nil {
		return &TemplateError{Step: step, Template: path, Err: err}
	}

	query := dialect.Build(res.Text, mode, p.CSV, p.Dialect)

	if (p.DryRunFirst && step == 0) || (p.DryRunFinal && mode == api.Final) {
		r.logger.Info("dry run, query not executed", "template", path, "step", step)
		if _, err := fmt.Fprintln(r.stdout, query); err != nil {
			return fmt.Errorf("printing dry-run query: %w", err)
		}
		return ErrDryRun
	}

	rows, err := r.execute(ctx, p, query, mode)
	if err != nil {
		r.logger.Error("query failed", "template", path, "step", step, "error", err)
		r.dumpQuery(query)
		return &ExecutionError{Step: step, Template: path, Query: query, Err: err}
	}

	if mode == api.Final {
		return nil
	}

	r.logger.Debug("got intermediate result", "template", path, "rows", rows)
	if res.Hook == nil {
		return nil
	}
	if err := res.Hook(rows, vars); err != nil {
		r.logger.Error("post-processing failed", "template", path, "step", step, "hook", res.HookName, "error", err)
		r.dumpQuery(query)
		return &TemplateError{
			Step:     step,
			Template: path,
			Query:    query,
			Err:      fmt.Errorf("post-processing hook %s: %w", res.HookName, err),
		}
	}
	return nil
}

func (r *Runner) dumpQuery(query string) {
	fmt.Fprintf(r.stderr, "Failed Query:\n%s\n\n", query)
}

// execute sends query through one client process. Intermediate output is
// returned as rows, final output goes to stdout as each line arrives.
func (r *Runner) execute(ctx context.Context, p *Pipeline, query string, mode api.Mode) (rows []string, err error) {
	ch, err := r.executor.Open(ctx, executor.Invocation{
		Dialect:    p.Dialect,
		Connection: p.Connection,
		Mode:       mode,
		CSV:        p.CSV,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := ch.WriteQuery(query); err != nil {
		return nil, err
	}
	if err := ch.CloseWrite(); err != nil {
		return nil, err
	}

	for {
		line, readErr := ch.ReadLine()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading client output: %w", readErr)
		}

		if mode == api.Intermediate {
			rows = append(rows, line)
			continue
		}
		if _, err := io.WriteString(r.stdout, line+"\n"); err != nil {
			return nil, fmt.Errorf("writing result: %w", err)
		}
	}
	return rows, nil
}
