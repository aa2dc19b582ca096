package duckdb

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific session configuration.
// Parsed from core.ConnectionParams.Options using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "httpfs,json")
	Extensions []string `mapstructure:"extensions"`

	// Settings collects every other option; each becomes a SET statement
	// (e.g., memory_limit, threads).
	Settings map[string]any `mapstructure:",remain"`
}

func parseParams(options map[string]string) (*Params, error) {
	p := &Params{}
	if len(options) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		WeaklyTypedInput: true,
		Result:           p,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(options); err != nil {
		return nil, fmt.Errorf("invalid duckdb options: %w", err)
	}
	for i, ext := range p.Extensions {
		p.Extensions[i] = strings.TrimSpace(ext)
	}
	return p, nil
}

// setupStatements returns INSTALL/LOAD for each extension followed by one
// SET per setting, sorted by name.
func (p *Params) setupStatements() []string {
	var stmts []string
	for _, ext := range p.Extensions {
		if ext == "" {
			continue
		}
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}
	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := strings.ReplaceAll(fmt.Sprint(p.Settings[k]), "'", "''")
		stmts = append(stmts, fmt.Sprintf("SET %s = '%s'", k, v))
	}
	return stmts
}
