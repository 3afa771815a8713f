package config

// RelationalConfig configures the relational store adapter (C2).
type RelationalConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	User            string `yaml:"user"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	SSLMode         string `yaml:"ssl_mode,omitempty"`
	MaxConns        int32  `yaml:"max_conns,omitempty"`
	MinConns        int32  `yaml:"min_conns,omitempty"`
	// SearchPath, when set, scopes every pooled connection to a specific
	// schema — used by integration tests to isolate concurrent runs
	// against one shared database.
	SearchPath string `yaml:"search_path,omitempty"`
}

// VectorConfig configures the vector store adapter (C3).
type VectorConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	APIKey         string `yaml:"api_key,omitempty"`
	UseTLS         bool   `yaml:"use_tls,omitempty"`
	Collection     string `yaml:"collection"`
	VectorSize     int    `yaml:"vector_size"`
}

// GraphConfig configures the graph store adapter (C4).
type GraphConfig struct {
	URI      string `yaml:"uri"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ArtifactConfig configures the tenant artifact store (C1).
type ArtifactConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"` // for S3-compatible non-AWS endpoints
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty"`
}

// LLMProvidersConfig maps the two logical model aliases the gateway
// exposes ({chat, mini}) onto real deployment names plus the HTTP
// endpoint and credential to reach them.
type LLMProvidersConfig struct {
	BaseURL  string            `yaml:"base_url"`
	APIKey   string            `yaml:"api_key,omitempty"`
	Aliases  map[string]string `yaml:"aliases"` // e.g. {"chat": "gpt-4o", "mini": "gpt-4o-mini"}
	Timeout  int               `yaml:"timeout_seconds,omitempty"`
}

// RunnerDefaults holds the Semantic-Runner's tunable defaults (§6).
type RunnerDefaults struct {
	TopK                 int     `yaml:"top_k"`
	StepsPerInterview    int     `yaml:"steps_per_interview"`
	CandidatesPerStep    int     `yaml:"candidates_per_step"`
	SaturationPatience    int     `yaml:"saturation_patience"`
	CodeRepeatPatience    int     `yaml:"code_repeat_patience"`
	MinNewUniquePerStep   int     `yaml:"min_new_unique_per_step"`
	DiscoveryAnchorThreshold float64 `yaml:"discovery_anchor_threshold"`
	WorkerCount          int     `yaml:"worker_count"`
	MaxConcurrentTasks    int     `yaml:"max_concurrent_tasks"`
}

// FeatureFlags are the configuration toggles named in §6.
type FeatureFlags struct {
	AllowOrglessTasks       bool `yaml:"allow_orgless_tasks"`
	ArtifactsAllowLocalFallback bool `yaml:"artifacts_allow_local_fallback"`
	ForceMockBlobs          bool `yaml:"force_mock_blobs"`
}

// YAMLConfig is the top-level shape of the single configuration file.
type YAMLConfig struct {
	Relational RelationalConfig    `yaml:"relational"`
	Vector     VectorConfig        `yaml:"vector"`
	Graph      GraphConfig         `yaml:"graph"`
	Artifacts  ArtifactConfig      `yaml:"artifacts"`
	LLM        LLMProvidersConfig  `yaml:"llm"`
	Runner     RunnerDefaults      `yaml:"runner"`
	Features   FeatureFlags        `yaml:"features"`
}
