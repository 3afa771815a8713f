package config

// DefaultRunnerDefaults returns the Semantic-Runner's built-in defaults,
// named in SPEC_FULL.md §6, used when a YAML config omits them.
func DefaultRunnerDefaults() RunnerDefaults {
	return RunnerDefaults{
		TopK:                     5,
		StepsPerInterview:        5,
		CandidatesPerStep:        5,
		SaturationPatience:       3,
		CodeRepeatPatience:       3,
		MinNewUniquePerStep:      1,
		DiscoveryAnchorThreshold: 0.55,
		WorkerCount:              4,
		MaxConcurrentTasks:       8,
	}
}

// DefaultFeatureFlags returns the conservative, production-safe default
// for every feature flag.
func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{
		AllowOrglessTasks:           false,
		ArtifactsAllowLocalFallback: false,
		ForceMockBlobs:              false,
	}
}

// DefaultRelational returns connection-pool defaults layered under any
// user-provided host/credentials.
func DefaultRelational() RelationalConfig {
	return RelationalConfig{
		Port:     5432,
		SSLMode:  "disable",
		MaxConns: 10,
		MinConns: 2,
	}
}

// DefaultVector returns the vector-store defaults.
func DefaultVector() VectorConfig {
	return VectorConfig{
		Port:       6334,
		Collection: "fragments",
		VectorSize: 1536,
	}
}

// DefaultLLM returns the LLM gateway's default model aliases.
func DefaultLLM() LLMProvidersConfig {
	return LLMProvidersConfig{
		Aliases: map[string]string{
			"chat": "gpt-4o",
			"mini": "gpt-4o-mini",
		},
		Timeout: 60,
	}
}
