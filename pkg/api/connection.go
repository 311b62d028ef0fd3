package api

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envKeys lists, per field, the export names read from a credentials file.
// The first non-empty key wins.
type envKeys struct {
	host, port, user, database, password []string
}

var dialectEnvKeys = map[Dialect]envKeys{
	Postgres: psqlEnvKeys,
	Redshift: psqlEnvKeys,
	MySQL: {
		host:     []string{"MYSQL_HOST", "DB_HOST"},
		port:     []string{"MYSQL_PORT", "DB_PORT"},
		user:     []string{"MYSQL_USER", "DB_USER"},
		database: []string{"MYSQL_DATABASE", "DB_NAME"},
		password: []string{"MYSQL_PWD", "MYSQL_PASSWORD", "DB_PASSWORD"},
	},
	MSSQL: {
		host:     []string{"SQLCMDSERVER", "DB_HOST"},
		port:     []string{"SQLCMDPORT", "DB_PORT"},
		user:     []string{"SQLCMDUSER", "DB_USER"},
		database: []string{"SQLCMDDBNAME", "DB_NAME"},
		password: []string{"SQLCMDPASSWORD", "DB_PASSWORD"},
	},
}

var psqlEnvKeys = envKeys{
	host:     []string{"PGHOST", "DB_HOST"},
	port:     []string{"PGPORT", "DB_PORT"},
	user:     []string{"PGUSER", "DB_USER"},
	database: []string{"PGDATABASE", "DB_NAME"},
	password: []string{"PGPASSWORD", "DB_PASSWORD"},
}

// ResolveConfigPath maps a config reference to a file. An existing path is
// used as is; otherwise the well-known names are tried inside configDir.
func ResolveConfigPath(ref, configDir string) (string, error) {
	if st, err := os.Stat(ref); err == nil && !st.IsDir() {
		return ref, nil
	}

	candidates := []string{
		ref + ".yaml",
		ref + ".yml",
		ref + "_credentials.sh",
		ref + "_pg_credentials.sh",
	}
	for _, name := range candidates {
		p := filepath.Join(configDir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no config found for %q in %s", ref, configDir)
}

// LoadConnection resolves ref and reads the connection parameters for the
// given dialect from it.
func LoadConnection(ref, configDir string, d Dialect) (*Connection, error) {
	path, err := ResolveConfigPath(ref, configDir)
	if err != nil {
		return nil, err
	}

	var conn *Connection
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		conn, err = loadYAMLConnection(path)
	default:
		conn, err = loadExportsConnection(path, d)
	}
	if err != nil {
		return nil, err
	}

	conn.Source = path
	if err := conn.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return conn, nil
}

func loadYAMLConnection(path string) (*Connection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var conn Connection
	if err := yaml.Unmarshal(data, &conn); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &conn, nil
}

// loadExportsConnection reads a shell file of `export NAME="value"` lines.
func loadExportsConnection(path string, d Dialect) (*Connection, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	keys := dialectEnvKeys[d]
	conn := &Connection{
		Host:     firstOf(env, keys.host),
		User:     firstOf(env, keys.user),
		Database: firstOf(env, keys.database),
		Password: firstOf(env, keys.password),
	}

	if p := firstOf(env, keys.port); p != "" {
		conn.Port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parsing port %q in %s: %w", p, path, err)
		}
	}
	return conn, nil
}

func firstOf(env map[string]string, keys []string) string {
	for _, k := range keys {
		if v := env[k]; v != "" {
			return v
		}
	}
	return ""
}
