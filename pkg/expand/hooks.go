package expand

import (
	"fmt"
	"strings"

	"github.com/microsoftarchive/night-shift/pkg/api"
)

// Hook turns a step's output rows into Context updates for later steps.
type Hook func(rows []string, ctx api.Context) error

// HookFactory builds a Hook from the arguments written in the template.
type HookFactory func(d api.Dialect, args []string) (Hook, error)

// BuiltinHooks returns the hooks every Expander knows about.
func BuiltinHooks() map[string]HookFactory {
	return map[string]HookFactory{
		"inList":     inListHook,
		"quotedList": quotedListHook,
		"scalar":     scalarHook,
		"rows":       rowsHook,
		"fields":     fieldsHook,
	}
}

// CleanRows trims every row and drops the blank ones.
func CleanRows(rows []string) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func singleKey(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one variable name, got %d", len(args))
	}
	return args[0], nil
}

// inListHook stores the rows as a SQL list: (1,2,3).
func inListHook(_ api.Dialect, args []string) (Hook, error) {
	key, err := singleKey(args)
	if err != nil {
		return nil, err
	}
	return func(rows []string, ctx api.Context) error {
		ctx.Set(key, sqlList(CleanRows(rows)))
		return nil
	}, nil
}

func quotedListHook(_ api.Dialect, args []string) (Hook, error) {
	key, err := singleKey(args)
	if err != nil {
		return nil, err
	}
	return func(rows []string, ctx api.Context) error {
		cleaned := CleanRows(rows)
		for i, r := range cleaned {
			cleaned[i] = "'" + strings.ReplaceAll(r, "'", "''") + "'"
		}
		ctx.Set(key, sqlList(cleaned))
		return nil
	}, nil
}

func sqlList(items []string) string {
	if len(items) == 0 {
		return "(NULL)"
	}
	return "(" + strings.Join(items, ",") + ")"
}

func scalarHook(_ api.Dialect, args []string) (Hook, error) {
	key, err := singleKey(args)
	if err != nil {
		return nil, err
	}
	return func(rows []string, ctx api.Context) error {
		cleaned := CleanRows(rows)
		if len(cleaned) == 0 {
			return fmt.Errorf("scalar %s: query returned no rows", key)
		}
		ctx.Set(key, cleaned[0])
		return nil
	}, nil
}

func rowsHook(_ api.Dialect, args []string) (Hook, error) {
	key, err := singleKey(args)
	if err != nil {
		return nil, err
	}
	return func(rows []string, ctx api.Context) error {
		ctx.Set(key, CleanRows(rows))
		return nil
	}, nil
}

// fieldsHook splits the first row into columns, one variable per column.
func fieldsHook(d api.Dialect, args []string) (Hook, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expected at least one variable name")
	}
	keys := append([]string(nil), args...)

	return func(rows []string, ctx api.Context) error {
		cleaned := CleanRows(rows)
		if len(cleaned) == 0 {
			return fmt.Errorf("fields: query returned no rows")
		}

		cols := splitColumns(d, cleaned[0])
		if len(cols) < len(keys) {
			return fmt.Errorf("fields: expected %d columns, got %d in %q", len(keys), len(cols), cleaned[0])
		}
		for i, k := range keys {
			ctx.Set(k, cols[i])
		}
		return nil
	}, nil
}

// splitColumns follows each client's default row format: psql aligns with
// " | ", mysql --batch uses tabs and sqlcmd pads with spaces.
func splitColumns(d api.Dialect, row string) []string {
	var cols []string
	switch {
	case d.UsesPsql():
		cols = strings.Split(row, "|")
	case d == api.MySQL:
		cols = strings.Split(row, "\t")
	default:
		return strings.Fields(row)
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}
