package config

import (
	"fmt"
	"log/slog"
	"os"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the process-scoped configuration root: connection settings
// for the four stores plus LLM, runner defaults, and feature flags.
// It is constructed once at boot (A3) and never mutated afterward.
type Config struct {
	Relational RelationalConfig
	Vector     VectorConfig
	Graph      GraphConfig
	Artifacts  ArtifactConfig
	LLM        LLMProvidersConfig
	Runner     RunnerDefaults
	Features   FeatureFlags
}

// Load reads the .env file (if present, best-effort), reads the YAML
// config at path, expands environment references, merges it over the
// built-in defaults, validates it, and returns the resulting Config.
//
// Mirrors the teacher's Initialize(ctx, configDir) -> load() -> validate()
// shape: defaults first, user config merged on top with mergo.WithOverride,
// parse warnings logged rather than fatal where a reasonable default exists.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file, continuing without it", "error", err)
	}

	yamlCfg, err := loadYAML(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Relational: DefaultRelational(),
		Vector:     DefaultVector(),
		Graph:      GraphConfig{},
		Artifacts:  ArtifactConfig{},
		LLM:        DefaultLLM(),
		Runner:     DefaultRunnerDefaults(),
		Features:   DefaultFeatureFlags(),
	}

	if err := mergo.Merge(&cfg.Relational, yamlCfg.Relational, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merge relational config: %w", err))
	}
	if err := mergo.Merge(&cfg.Vector, yamlCfg.Vector, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merge vector config: %w", err))
	}
	if err := mergo.Merge(&cfg.Graph, yamlCfg.Graph, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merge graph config: %w", err))
	}
	if err := mergo.Merge(&cfg.Artifacts, yamlCfg.Artifacts, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merge artifacts config: %w", err))
	}
	if err := mergo.Merge(&cfg.LLM, yamlCfg.LLM, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merge llm config: %w", err))
	}
	if err := mergo.Merge(&cfg.Runner, yamlCfg.Runner, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merge runner config: %w", err))
	}
	if err := mergo.Merge(&cfg.Features, yamlCfg.Features, mergo.WithOverride); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("merge features config: %w", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string) (*YAMLConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("config file not found, proceeding with built-in defaults", "path", path)
			return &YAMLConfig{}, nil
		}
		return nil, NewLoadError(path, err)
	}

	expanded := ExpandEnv(raw)

	var cfg YAMLConfig
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &cfg, nil
}

// Validate checks the fields without which no component can function.
// It never rejects on missing LLM or artifact credentials at this
// layer — those surface as StorageUnavailable/PersistentUpstream at
// first use, matching the "components raise typed conditions" policy.
func (c *Config) Validate() error {
	if c.Relational.Host == "" {
		return NewValidationError("relational.host", "must be set")
	}
	if c.Relational.Database == "" {
		return NewValidationError("relational.database", "must be set")
	}
	if c.Vector.Host == "" {
		return NewValidationError("vector.host", "must be set")
	}
	if c.Graph.URI == "" {
		return NewValidationError("graph.uri", "must be set")
	}
	if c.Runner.TopK <= 0 {
		return NewValidationError("runner.top_k", "must be positive")
	}
	if c.Runner.StepsPerInterview <= 0 {
		return NewValidationError("runner.steps_per_interview", "must be positive")
	}
	if c.Runner.DiscoveryAnchorThreshold <= 0 || c.Runner.DiscoveryAnchorThreshold > 1 {
		return NewValidationError("runner.discovery_anchor_threshold", "must be in (0,1]")
	}
	return nil
}

// ResolveModel resolves a logical model alias ({chat, mini}) or, if the
// caller already passed a concrete deployment name, returns it
// unchanged. This mirrors the teacher's resolve*Config "default, then
// override if present" idiom applied to a lookup instead of a struct.
func (c *Config) ResolveModel(alias string) string {
	if name, ok := c.LLM.Aliases[alias]; ok {
		return name
	}
	return alias
}
