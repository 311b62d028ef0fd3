package api

import "fmt"

// Dialect is the database backend family a run targets.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
	Redshift Dialect = "redshift"
	MSSQL    Dialect = "mssql"

	DefaultDialect = Postgres
)

var validDialects = map[Dialect]bool{
	Postgres: true,
	MySQL:    true,
	Redshift: true,
	MSSQL:    true,
}

// ParseDialect returns the Dialect named by s.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(s)
	if !validDialects[d] {
		return "", fmt.Errorf("unknown dialect %q (valid: postgres, mysql, redshift, mssql)", s)
	}
	return d, nil
}

// UsesPsql reports whether the dialect talks to the psql client.
func (d Dialect) UsesPsql() bool {
	return d == Postgres || d == Redshift
}

// Mode decides whether a step's output is captured or streamed.
type Mode int

const (
	Intermediate Mode = iota
	Final
)

func (m Mode) String() string {
	if m == Final {
		return "final"
	}
	return "intermediate"
}

// Reserved argument names. Everything else is a template variable.
const (
	ArgDialect     = "db"
	ArgConfig      = "config"
	ArgConfigDir   = "configdir"
	ArgCSV         = "csv"
	ArgDryRunFirst = "dryrunfirst"
	ArgDryRunFinal = "dryrunfinal"
	ArgContextFile = "contextfile"
	ArgLogLevel    = "loglevel"
	ArgLogType     = "logtype"

	ConfigDirEnv     = "NIGHTSHIFT_CONFIG_DIR"
	DefaultConfigDir = "config"
)

// Invocation is a parsed command line.
type Invocation struct {
	Templates []string
	Vars      map[string]string

	Dialect     Dialect
	ConfigRef   string
	ConfigDir   string
	CSV         bool
	DryRunFirst bool
	DryRunFinal bool
	ContextFile string
	LogLevel    string
	LogType     string
}

// Connection holds the parameters handed to a database client.
type Connection struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Database string `yaml:"database"`
	Password string `yaml:"password"`

	// Set by the loader, not from YAML.
	Source string `yaml:"-"`
}
