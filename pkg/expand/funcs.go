package expand

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/microsoftarchive/night-shift/pkg/api"
	"github.com/tidwall/gjson"
)

// AWSCredentialsFile is read by the awsCreds template function.
const AWSCredentialsFile = "nightly_aws_credentials.json"

// QuoteIdent quotes an identifier for d. Parts containing dots are split,
// so "schema.table" and ("schema", "table") are the same.
func QuoteIdent(d api.Dialect, parts ...string) string {
	var names []string
	for _, p := range parts {
		names = append(names, strings.Split(p, ".")...)
	}

	switch d {
	case api.MySQL:
		for i, n := range names {
			names[i] = "`" + strings.ReplaceAll(n, "`", "``") + "`"
		}
		return strings.Join(names, ".")
	case api.MSSQL:
		for i, n := range names {
			names[i] = "[" + strings.ReplaceAll(n, "]", "]]") + "]"
		}
		return strings.Join(names, ".")
	default:
		return pgx.Identifier(names).Sanitize()
	}
}

// AWSCredentials renders the CREDENTIALS string Redshift expects for
// COPY and UNLOAD from the nightly credentials file in configDir.
func AWSCredentials(configDir string) (string, error) {
	path := filepath.Join(configDir, AWSCredentialsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading aws credentials: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("aws credentials %s: invalid JSON", path)
	}

	access := gjson.GetBytes(data, "aws_access_key_id")
	secret := gjson.GetBytes(data, "aws_secret_access_key")
	if !access.Exists() || !secret.Exists() {
		return "", fmt.Errorf("aws credentials %s: aws_access_key_id and aws_secret_access_key are required", path)
	}

	return fmt.Sprintf("'aws_access_key_id=%s;aws_secret_access_key=%s'", access.String(), secret.String()), nil
}
