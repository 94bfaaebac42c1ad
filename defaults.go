package flagsmith

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/flagsmith/pkg/remote"
)

// DefaultFlag is a locally configured fallback for one feature.
type DefaultFlag struct {
	Name    string  `json:"name" yaml:"name"`
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Value   *string `json:"value,omitempty" yaml:"value,omitempty"`
}

// UnmarshalYAML accepts any scalar as value, so `value: 10` and `value: "10"` agree.
func (d *DefaultFlag) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		Name    string     `yaml:"name"`
		Enabled bool       `yaml:"enabled"`
		Value   yaml.Node `yaml:"value"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}

	*d = DefaultFlag{Name: aux.Name, Enabled: aux.Enabled}
	// Kind 0 means the key was absent.
	if aux.Value.Kind == 0 || aux.Value.Tag == "!!null" {
		return nil
	}
	if aux.Value.Kind != yaml.ScalarNode {
		return fmt.Errorf("default flag %q: value must be a scalar", aux.Name)
	}
	v := aux.Value.Value
	d.Value = &v
	return nil
}

func (d DefaultFlag) flag() remote.Flag {
	f := remote.Flag{Feature: remote.Feature{Name: d.Name}, Enabled: d.Enabled}
	if d.Value != nil {
		v := *d.Value
		f.Value = &v
	}
	return f
}

// ParseDefaultFlags decodes a YAML list of default flags. JSON is accepted too,
// being a subset of YAML:
//
//	- name: new_button
//	  enabled: true
//	- name: banner_color
//	  enabled: true
//	  value: blue
func ParseDefaultFlags(data []byte) ([]DefaultFlag, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var flags []DefaultFlag
	if err := yaml.Unmarshal(data, &flags); err != nil {
		return nil, fmt.Errorf("%w: parse default flags: %w", ErrInvalidArgument, err)
	}
	for i, f := range flags {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: default flag #%d has no name", ErrInvalidArgument, i)
		}
	}
	return flags, nil
}

// LoadDefaultFlagsFile reads and parses a default flags file.
func LoadDefaultFlagsFile(path string) ([]DefaultFlag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: default flags file: %w", ErrInvalidArgument, err)
	}
	return ParseDefaultFlags(data)
}

// resolveDefaults merges configured and file flags, configured first.
func resolveDefaults(cfg Config) ([]remote.Flag, error) {
	all := cfg.DefaultFlags
	if cfg.DefaultFlagsFile != "" {
		fromFile, err := LoadDefaultFlagsFile(cfg.DefaultFlagsFile)
		if err != nil {
			return nil, err
		}
		all = append(append([]DefaultFlag(nil), all...), fromFile...)
	}

	flags := make([]remote.Flag, 0, len(all))
	for _, d := range all {
		flags = append(flags, d.flag())
	}
	return flags, nil
}
