// Package dialect turns an expanded template into the exact text a
// backend's command line client expects on stdin.
package dialect

import (
	"regexp"
	"strings"

	"github.com/microsoftarchive/night-shift/pkg/api"
)

const (
	// FinallyMarker separates setup statements from the statement that
	// produces the result.
	FinallyMarker = "-- FINALLY --"

	psqlPrefix = "\\set ON_ERROR_STOP on\n\\set QUIET on\n"

	// Redshift cannot COPY to the client, so psql formatting emulates CSV:
	// unaligned, comma separated, header kept, footer dropped.
	redshiftCSV = "\\a\n\\f ','\n\\t off\n\\pset footer off\n"
)

var finallyLine = regexp.MustCompile(`(?m)^\s*-- *FINALLY *--\s*$`)

// Split separates text at the FINALLY marker. Without a line-isolated
// marker setup is empty and result is the whole text.
func Split(text string) (setup, result string, found bool) {
	if !finallyLine.MatchString(text) {
		return "", text, false
	}
	setup, result, found = strings.Cut(text, FinallyMarker)
	if !found {
		// The line matched a spaced variant such as "--FINALLY--".
		return "", text, false
	}
	return setup, result, true
}

// Build wraps expanded for the dialect's client. It is pure.
func Build(expanded string, mode api.Mode, csv bool, d api.Dialect) string {
	if d == api.MSSQL {
		return trimStatement(expanded) + ";"
	}

	setup, result, found := Split(expanded)
	result = trimStatement(result)

	body := result
	if found {
		body = setup + "\n" + result
	}

	if d == api.MySQL {
		return body + ";"
	}

	streamCSV := mode == api.Final && csv
	switch {
	case streamCSV && d == api.Postgres:
		return psqlPrefix + setup + " COPY (" + result + ") TO STDOUT WITH CSV HEADER;"
	case streamCSV && d == api.Redshift:
		return psqlPrefix + redshiftCSV + body + ";"
	default:
		return psqlPrefix + body + ";"
	}
}

func trimStatement(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ";") {
		s = strings.TrimSpace(strings.TrimSuffix(s, ";"))
	}
	return s
}
