package processing

import (
	"fmt"
	"maps"
	"os"

	"github.com/microsoftarchive/night-shift/pkg/api"
	"gopkg.in/yaml.v3"
)

// LoadContextFile reads the YAML file named by --contextfile. Its top-level
// keys seed the run's Context before any template expands.
func LoadContextFile(filename string) (api.Context, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading context file: %w", err)
	}

	var ctx api.Context
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("parsing context file: %w", err)
	}

	if ctx == nil {
		ctx = make(api.Context)
	}

	return ctx, nil
}

// MergeContext layers command line variables over the context file. A
// "--name value" pair always wins over a file key of the same name; nested
// values are not merged.
func MergeContext(file, cli api.Context) api.Context {
	merged := make(api.Context, len(file)+len(cli))
	maps.Copy(merged, file)
	maps.Copy(merged, cli)
	return merged
}
