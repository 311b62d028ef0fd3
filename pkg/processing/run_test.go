package processing

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/microsoftarchive/night-shift/pkg/api"
)

func TestPrepare_MergesContextFile(t *testing.T) {
	dir := t.TempDir()
	ctxFile := writeTestFile(t, dir, "ctx.yaml", "region: eu\nday: 2000-01-01\n")
	q := writeTestFile(t, dir, "q.sql", "SELECT 1")

	inv, err := api.ParseArgs([]string{q, "--contextfile", ctxFile, "--day", "2024-05-05"})
	if err != nil {
		t.Fatal(err)
	}

	setup, err := Prepare(inv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if setup.Vars["region"] != "eu" {
		t.Errorf("expected region from context file, got %v", setup.Vars["region"])
	}
	if setup.Vars["day"] != "2024-05-05" {
		t.Errorf("expected command line to win, got %v", setup.Vars["day"])
	}
	if setup.Vars["db"] != nil {
		t.Errorf("expected no db var when not given, got %v", setup.Vars["db"])
	}
	if len(setup.Templates) != 1 || setup.Templates[0] != q {
		t.Errorf("unexpected templates %v", setup.Templates)
	}
}

func TestPrepare_ConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		inv  *api.Invocation
	}{
		{"no templates", &api.Invocation{Dialect: api.Postgres, ConfigRef: "postgres"}},
		{"unmatched glob", &api.Invocation{
			Templates: []string{filepath.Join(dir, "*.sql")}, Dialect: api.Postgres, ConfigRef: "postgres",
		}},
		{"missing context file", &api.Invocation{
			Templates: []string{"q.sql"}, Dialect: api.Postgres, ConfigRef: "postgres",
			ContextFile: filepath.Join(dir, "nope.yaml"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(tt.inv)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
		})
	}
}

func TestRunInvocation(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "config/warehouse.yaml", "host: wh.local\nport: 5439\nuser: etl\n")
	a := writeTestFile(t, dir, "a.sql", `{{ postProcess "inList" "ids" }}SELECT id FROM t WHERE db = '{{ .db }}'`)
	b := writeTestFile(t, dir, "b.sql", "SELECT * FROM u WHERE id IN {{ .ids }}")

	inv, err := api.ParseArgs([]string{
		a, b, "--db", "redshift", "--config", "warehouse", "--configdir", filepath.Join(dir, "config"),
	})
	if err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{outputs: map[int][]string{0: {"4", "5"}, 1: {"row"}}}
	var stdout, stderr bytes.Buffer

	if err := RunInvocation(context.Background(), inv, exec, &stdout, &stderr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(exec.opened) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(exec.opened))
	}
	conn := exec.opened[0].Connection
	if conn.Host != "wh.local" || conn.Port != 5439 || conn.User != "etl" {
		t.Errorf("unexpected connection %+v", conn)
	}
	if exec.opened[1].Dialect != api.Redshift {
		t.Errorf("expected redshift, got %s", exec.opened[1].Dialect)
	}
	if exec.queries[0] != psqlPrefix+"SELECT id FROM t WHERE db = 'redshift';" {
		t.Errorf("unexpected first query %q", exec.queries[0])
	}
	if exec.queries[1] != psqlPrefix+"SELECT * FROM u WHERE id IN (4,5);" {
		t.Errorf("unexpected second query %q", exec.queries[1])
	}
	if stdout.String() != "row\n" {
		t.Errorf("unexpected stdout %q", stdout.String())
	}
}

func TestRunInvocation_MissingConnection(t *testing.T) {
	dir := t.TempDir()
	q := writeTestFile(t, dir, "q.sql", "SELECT 1")

	inv, err := api.ParseArgs([]string{q, "--configdir", dir})
	if err != nil {
		t.Fatal(err)
	}

	exec := &fakeExecutor{}
	err = RunInvocation(context.Background(), inv, exec, &bytes.Buffer{}, &bytes.Buffer{})

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if len(exec.opened) != 0 {
		t.Error("expected nothing to execute")
	}
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	a := writeTestFile(t, dir, "a.sql", `{{ postProcess "inList" "ids" }}SELECT id FROM t`)
	b := writeTestFile(t, dir, "b.sql", "SELECT '{{ .day }}'")

	inv, err := api.ParseArgs([]string{a, b, "--db", "postgres", "--csv", "true", "--day", "2024-01-01"})
	if err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	if err := Render(context.Background(), inv, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := psqlPrefix + " COPY (SELECT id FROM t) TO STDOUT WITH CSV HEADER;\n" +
		psqlPrefix + " COPY (SELECT '2024-01-01') TO STDOUT WITH CSV HEADER;\n"
	if stdout.String() != want {
		t.Errorf("expected %q, got %q", want, stdout.String())
	}
}

func TestRender_TemplateError(t *testing.T) {
	dir := t.TempDir()
	a := writeTestFile(t, dir, "a.sql", "SELECT {{ .undefined }}")

	inv, err := api.ParseArgs([]string{a})
	if err != nil {
		t.Fatal(err)
	}

	err = Render(context.Background(), inv, &bytes.Buffer{}, &bytes.Buffer{})
	var tmplErr *TemplateError
	if !errors.As(err, &tmplErr) {
		t.Fatalf("expected *TemplateError, got %v", err)
	}
}
