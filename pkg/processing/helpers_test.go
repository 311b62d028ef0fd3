package processing

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/microsoftarchive/night-shift/pkg/api"
	"github.com/microsoftarchive/night-shift/pkg/executor"
)

// writeTestFile writes content to a file in dir and returns its path,
// failing the test on error.
func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

// fakeExecutor records every channel it opens. outputs and closeErrs are
// indexed by the order in which channels are opened. onRead, when set, is
// called at the start of every ReadLine.
type fakeExecutor struct {
	outputs   map[int][]string
	closeErrs map[int]error
	openErr   error
	onRead    func()

	opened  []executor.Invocation
	queries []string
	closed  int
}

func (f *fakeExecutor) Open(_ context.Context, inv executor.Invocation) (executor.Channel, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	i := len(f.opened)
	f.opened = append(f.opened, inv)
	return &fakeChannel{exec: f, lines: f.outputs[i], closeErr: f.closeErrs[i]}, nil
}

type fakeChannel struct {
	exec     *fakeExecutor
	lines    []string
	pos      int
	writes   int
	closeErr error
}

func (c *fakeChannel) WriteQuery(query string) error {
	c.writes++
	if c.writes > 1 {
		return errors.New("query already written")
	}
	c.exec.queries = append(c.exec.queries, query)
	return nil
}

func (c *fakeChannel) CloseWrite() error { return nil }

func (c *fakeChannel) ReadLine() (string, error) {
	if c.exec.onRead != nil {
		c.exec.onRead()
	}
	if c.pos >= len(c.lines) {
		return "", io.EOF
	}
	c.pos++
	return c.lines[c.pos-1], nil
}

func (c *fakeChannel) Close() error {
	c.exec.closed++
	return c.closeErr
}

func modes(invs []executor.Invocation) []api.Mode {
	out := make([]api.Mode, len(invs))
	for i, inv := range invs {
		out[i] = inv.Mode
	}
	return out
}
