package shell

import (
	"fmt"

	"github.com/sandboxshell/vsh/interp"
	"gopkg.in/yaml.v3"
)

// yamlOptions is the on-disk shape decoded by OptionsFromYAML: a plain,
// serializable subset of Options (Commands/Logger cannot be expressed
// in YAML and are left for the embedder to add via FromOptions +
// further With* calls after decoding).
type yamlOptions struct {
	Env           []string          `yaml:"env"`
	Cwd           string            `yaml:"cwd"`
	Files         map[string]string `yaml:"files"`
	NetworkPolicy string            `yaml:"networkPolicy"`

	Limits struct {
		MaxCommands       int `yaml:"maxCommands"`
		MaxLoopIterations int `yaml:"maxLoopIterations"`
		MaxExpansionSize  int `yaml:"maxExpansionSize"`
		MaxCallDepth      int `yaml:"maxCallDepth"`
		MaxHeredocSize    int `yaml:"maxHeredocSize"`
	} `yaml:"limits"`
}

// OptionsFromYAML decodes a YAML document into an Options value, for
// embedders that keep sandbox configuration in a config file alongside
// the rest of their service config (the rest-of-pack's config-struct-
// plus-yaml.v3-decode pattern). Fields with no YAML representation
// (custom Commands/Logger) are left zero; combine the result
// with further Option values via FromOptions.
func OptionsFromYAML(data []byte) (Options, error) {
	var y yamlOptions
	if err := yaml.Unmarshal(data, &y); err != nil {
		return Options{}, fmt.Errorf("shell: decode options yaml: %w", err)
	}
	o := Options{
		Env:           y.Env,
		Cwd:           y.Cwd,
		Files:         y.Files,
		NetworkPolicy: y.NetworkPolicy,
	}
	limitsSet := y.Limits.MaxCommands != 0 || y.Limits.MaxLoopIterations != 0 ||
		y.Limits.MaxExpansionSize != 0 || y.Limits.MaxCallDepth != 0 || y.Limits.MaxHeredocSize != 0
	if limitsSet {
		o.Limits = interp.Limits{
			MaxCommands:       y.Limits.MaxCommands,
			MaxLoopIterations: y.Limits.MaxLoopIterations,
			MaxExpansionSize:  y.Limits.MaxExpansionSize,
			MaxCallDepth:      y.Limits.MaxCallDepth,
			MaxHeredocSize:    y.Limits.MaxHeredocSize,
		}
	}
	return o, nil
}
