package api

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

var varFlag = regexp.MustCompile(`^--([A-Za-z_][\w-]*)$`)

// ParseArgs reads template paths interleaved with "--name value" pairs.
// Every pair ends up in Vars, reserved ones included, so templates can
// branch on them. Later pairs override earlier ones.
func ParseArgs(args []string) (*Invocation, error) {
	inv := &Invocation{Vars: make(map[string]string)}

	var pending string
	for _, arg := range args {
		if pending != "" {
			inv.Vars[pending] = arg
			pending = ""
			continue
		}
		if m := varFlag.FindStringSubmatch(arg); m != nil {
			pending = m[1]
			continue
		}
		inv.Templates = append(inv.Templates, arg)
	}
	if pending != "" {
		return nil, fmt.Errorf("missing value for --%s", pending)
	}

	if err := inv.applyReserved(); err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

func (inv *Invocation) applyReserved() error {
	var err error

	inv.Dialect = DefaultDialect
	if v, ok := inv.Vars[ArgDialect]; ok {
		if inv.Dialect, err = ParseDialect(v); err != nil {
			return err
		}
	}

	inv.ConfigRef = inv.Vars[ArgConfig]
	if inv.ConfigRef == "" {
		inv.ConfigRef = string(inv.Dialect)
	}

	inv.ConfigDir = inv.Vars[ArgConfigDir]
	if inv.ConfigDir == "" {
		inv.ConfigDir = os.Getenv(ConfigDirEnv)
	}
	if inv.ConfigDir == "" {
		inv.ConfigDir = DefaultConfigDir
	}

	for name, dst := range map[string]*bool{
		ArgCSV:         &inv.CSV,
		ArgDryRunFirst: &inv.DryRunFirst,
		ArgDryRunFinal: &inv.DryRunFinal,
	} {
		v, ok := inv.Vars[name]
		if !ok {
			continue
		}
		if *dst, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("--%s: expected a boolean, got %q", name, v)
		}
	}

	inv.ContextFile = inv.Vars[ArgContextFile]
	inv.LogLevel = valueOr(inv.Vars[ArgLogLevel], "info")
	inv.LogType = valueOr(inv.Vars[ArgLogType], "tint")
	return nil
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
