package executor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"
)

// CLI runs queries through the dialect's native client found on PATH.
type CLI struct {
	// Stderr receives the client's stderr as it is produced. Nil means
	// os.Stderr.
	Stderr io.Writer
}

// NewCLI creates an Executor backed by psql, mysql or sqlcmd.
func NewCLI() *CLI {
	return &CLI{Stderr: os.Stderr}
}

// Open starts the client. The query is written by CloseWrite on its own
// goroutine so the caller can drain output at the same time.
func (c *CLI) Open(ctx context.Context, inv Invocation) (Channel, error) {
	client := Client(inv.Dialect)
	path, err := exec.LookPath(client)
	if err != nil {
		return nil, fmt.Errorf("%s binary not found in PATH: %w", client, err)
	}

	args := Args(inv)
	slog.Debug("starting database client", "client", client, "args", args, "mode", inv.Mode)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = append(os.Environ(), Env(inv)...)

	ch := &cliChannel{cmd: cmd, client: client}

	stderr := c.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	cmd.Stderr = io.MultiWriter(&ch.stderr, stderr)

	if ch.stdin, err = cmd.StdinPipe(); err != nil {
		return nil, fmt.Errorf("opening %s stdin: %w", client, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening %s stdout: %w", client, err)
	}
	ch.stdout = bufio.NewReader(stdout)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", client, err)
	}
	return ch, nil
}

type cliChannel struct {
	cmd    *exec.Cmd
	client string
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr bytes.Buffer

	query       string
	queued      bool
	writeClosed bool
	closed      bool
	writer      errgroup.Group
}

func (ch *cliChannel) WriteQuery(query string) error {
	if ch.queued {
		return errors.New("query already written")
	}
	ch.query = query
	ch.queued = true
	return nil
}

func (ch *cliChannel) CloseWrite() error {
	if ch.writeClosed {
		return nil
	}
	ch.writeClosed = true

	query := ch.query
	ch.writer.Go(func() error {
		_, err := io.WriteString(ch.stdin, query)
		if cerr := ch.stdin.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing query to %s: %w", ch.client, err)
		}
		return nil
	})
	return nil
}

func (ch *cliChannel) ReadLine() (string, error) {
	line, err := ch.stdout.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (ch *cliChannel) Close() error {
	if ch.closed {
		return nil
	}
	ch.closed = true

	if !ch.writeClosed {
		ch.writeClosed = true
		_ = ch.stdin.Close()
	}

	// Wait closes stdout, anything unread must go first or the client
	// can block on a full pipe.
	_, _ = io.Copy(io.Discard, ch.stdout)

	writeErr := ch.writer.Wait()
	waitErr := ch.cmd.Wait()

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &ExitError{Client: ch.client, Code: exitErr.ExitCode(), Stderr: ch.stderr.String()}
	}
	if waitErr != nil {
		return fmt.Errorf("waiting for %s: %w", ch.client, waitErr)
	}
	return writeErr
}
