// Copyright 2025 Near Private Payroll
//
// Proof Family Bootstrap
// YAML registry of image ids and TTL ceilings loaded at startup

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// FamilyBootstrap is the YAML-loaded startup configuration for one proof
// family: the owner-registered image id and the per-family TTL ceiling a
// caller's requested TTL is clamped to.
type FamilyBootstrap struct {
	Family     string   `yaml:"family"`
	ImageIDHex string   `yaml:"image_id_hex"`
	TTLCeiling Duration `yaml:"ttl_ceiling"`
}

// FamilyBootstrapFile is the top-level shape of the families.yaml file
// referenced by Config.FamilyBootstrapPath.
type FamilyBootstrapFile struct {
	Families []FamilyBootstrap `yaml:"families"`
}

// Duration wraps time.Duration so it can be written as "24h", "10m", etc. in
// the family bootstrap YAML instead of raw nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

// envVarPattern matches ${VAR_NAME} or ${VAR_NAME:-default}, allowing a
// families.yaml committed to version control to reference secrets or
// per-environment values without hardcoding them.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// LoadFamilyBootstrap reads and parses a families.yaml file, substituting
// ${VAR} environment references before parsing.
func LoadFamilyBootstrap(path string) (*FamilyBootstrapFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read family bootstrap %s: %w", path, err)
	}
	expanded := substituteEnvVars(string(data))

	var out FamilyBootstrapFile
	if err := yaml.Unmarshal([]byte(expanded), &out); err != nil {
		return nil, fmt.Errorf("config: parse family bootstrap %s: %w", path, err)
	}
	return &out, nil
}
