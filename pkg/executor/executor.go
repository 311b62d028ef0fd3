// Package executor runs queries through a database's command line client.
package executor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/microsoftarchive/night-shift/pkg/api"
)

// Invocation describes one client process.
type Invocation struct {
	Dialect    api.Dialect
	Connection api.Connection
	Mode       api.Mode
	CSV        bool
}

// Channel is a duplex text connection to one client process. It takes a
// single query, then yields the output line by line. Close must be called
// on every path; it reports a failed client as *ExitError.
type Channel interface {
	WriteQuery(query string) error
	CloseWrite() error
	ReadLine() (string, error) // io.EOF after the last line
	Close() error
}

// Executor opens channels. Implementations must not retry.
type Executor interface {
	Open(ctx context.Context, inv Invocation) (Channel, error)
}

// ExitError reports a client that exited with a non-zero status.
type ExitError struct {
	Client string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Client, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Client returns the name of the command line client for d.
func Client(d api.Dialect) string {
	switch {
	case d.UsesPsql():
		return "psql"
	case d == api.MySQL:
		return "mysql"
	default:
		return "sqlcmd"
	}
}

// Args returns the client arguments for inv. Passwords never appear here,
// see Env.
func Args(inv Invocation) []string {
	c := inv.Connection
	var args []string

	switch inv.Dialect {
	case api.MySQL:
		args = []string{"--default-character-set=latin1", "--batch", "--quick"}
		if inv.Mode == api.Intermediate {
			args = append(args, "--skip-column-names")
		}
		args = appendFlag(args, "-h", c.Host)
		args = appendFlag(args, "-P", port(c.Port))
		args = appendFlag(args, "-u", c.User)
		if c.Database != "" {
			args = append(args, c.Database)
		}

	case api.MSSQL:
		args = []string{"-b"}
		server := c.Host
		if server != "" && c.Port != 0 {
			server += "," + strconv.Itoa(c.Port)
		}
		args = appendFlag(args, "-S", server)
		args = appendFlag(args, "-U", c.User)
		args = appendFlag(args, "-d", c.Database)
		// sqlcmd has no COPY, CSV comes from output formatting.
		if inv.Mode == api.Final && inv.CSV {
			args = append(args, "-h-1", "-s,", "-W")
		}

	default:
		args = []string{"-X", "-t"}
		args = appendFlag(args, "-h", c.Host)
		args = appendFlag(args, "-p", port(c.Port))
		args = appendFlag(args, "-U", c.User)
		args = appendFlag(args, "-d", c.Database)
	}

	return args
}

// Env returns the extra environment carrying the password for inv.
func Env(inv Invocation) []string {
	pw := inv.Connection.Password
	if pw == "" {
		return nil
	}
	switch {
	case inv.Dialect.UsesPsql():
		return []string{"PGPASSWORD=" + pw}
	case inv.Dialect == api.MySQL:
		return []string{"MYSQL_PWD=" + pw}
	default:
		return []string{"SQLCMDPASSWORD=" + pw}
	}
}

func appendFlag(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag, value)
}

func port(p int) string {
	if p == 0 {
		return ""
	}
	return strconv.Itoa(p)
}
