package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for schemalens-engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (passwords, API keys) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Metadata store (PostgreSQL) holding business metadata records
	Database DatabaseConfig `yaml:"database"`

	// Snapshot refresh behavior
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Relevance scoring weights and selection limits
	Scorer ScorerConfig `yaml:"scorer"`

	// Semantic similarity collaborator (OpenAI-compatible embeddings)
	Similarity SimilarityConfig `yaml:"similarity"`

	// Context assembly token budgeting
	Assembler AssemblerConfig `yaml:"assembler"`

	// IntentPolicyPath optionally points at a YAML file with per-category
	// boost/penalty keyword lists. Compiled-in defaults are used when empty.
	IntentPolicyPath string `yaml:"intent_policy_path" env:"INTENT_POLICY_PATH" env-default:""`
}

// DatabaseConfig holds PostgreSQL metadata store configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"schemalens"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"schemalens"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString builds a postgres:// URL for the metadata store. The
// result contains the password and must never be logged unsanitized.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// SnapshotConfig holds metadata snapshot refresh settings.
type SnapshotConfig struct {
	// RefreshTTLMinutes is how often the background refresher rebuilds the
	// snapshot. Zero disables the background loop.
	RefreshTTLMinutes int `yaml:"refresh_ttl_minutes" env:"SNAPSHOT_REFRESH_TTL_MINUTES" env-default:"60"`
	// RefreshTimeoutSeconds bounds one refresh attempt, including catalog
	// discovery.
	RefreshTimeoutSeconds int `yaml:"refresh_timeout_seconds" env:"SNAPSHOT_REFRESH_TIMEOUT_SECONDS" env-default:"120"`
	// ReconcileWithCatalog enables cross-checking recorded relationships
	// against the live database catalog on each refresh.
	ReconcileWithCatalog bool `yaml:"reconcile_with_catalog" env:"SNAPSHOT_RECONCILE_WITH_CATALOG" env-default:"false"`
}

// ScorerConfig holds relevance scoring weights and selection limits.
// Weights apply to whichever signals fire; the final score is the mean of
// fired signals, so sparse metadata is not systematically punished.
type ScorerConfig struct {
	PurposeWeight    float64 `yaml:"purpose_weight" env:"SCORER_PURPOSE_WEIGHT" env-default:"0.30"`
	SemanticWeight   float64 `yaml:"semantic_weight" env:"SCORER_SEMANTIC_WEIGHT" env-default:"0.25"`
	GlossaryWeight   float64 `yaml:"glossary_weight" env:"SCORER_GLOSSARY_WEIGHT" env-default:"0.20"`
	KeywordWeight    float64 `yaml:"keyword_weight" env:"SCORER_KEYWORD_WEIGHT" env-default:"0.15"`
	ImportanceWeight float64 `yaml:"importance_weight" env:"SCORER_IMPORTANCE_WEIGHT" env-default:"0.10"`

	// RelevanceThreshold is the minimum score (exclusive) for selection.
	RelevanceThreshold float64 `yaml:"relevance_threshold" env:"SCORER_RELEVANCE_THRESHOLD" env-default:"0.5"`

	// MaxTablesCeiling is a hard ceiling that takes precedence over larger
	// requested limits, to keep the downstream context focused.
	MaxTablesCeiling int `yaml:"max_tables_ceiling" env:"SCORER_MAX_TABLES_CEILING" env-default:"5"`

	// MaxColumnsPerTable is the default per-table column cap. Narrowly
	// classified intents tighten this further.
	MaxColumnsPerTable int `yaml:"max_columns_per_table" env:"SCORER_MAX_COLUMNS_PER_TABLE" env-default:"10"`

	// FallbackTableCount is how many importance-ranked tables to return
	// when nothing clears the threshold.
	FallbackTableCount int `yaml:"fallback_table_count" env:"SCORER_FALLBACK_TABLE_COUNT" env-default:"3"`

	// ScoringWorkers bounds the fan-out when scoring tables concurrently.
	ScoringWorkers int `yaml:"scoring_workers" env:"SCORER_WORKERS" env-default:"4"`
}

// SimilarityConfig holds the semantic similarity collaborator settings.
type SimilarityConfig struct {
	BaseURL        string `yaml:"base_url" env:"SIMILARITY_BASE_URL" env-default:""`
	APIKey         string `yaml:"-" env:"SIMILARITY_API_KEY"` // Secret - not in YAML
	EmbeddingModel string `yaml:"embedding_model" env:"SIMILARITY_EMBEDDING_MODEL" env-default:"text-embedding-3-small"`
	TimeoutMillis  int    `yaml:"timeout_millis" env:"SIMILARITY_TIMEOUT_MILLIS" env-default:"1500"`
}

// IsAvailable returns true if a similarity endpoint is configured.
func (c *SimilarityConfig) IsAvailable() bool {
	return c.BaseURL != "" || c.APIKey != ""
}

// AssemblerConfig holds context assembly token budgeting settings.
type AssemblerConfig struct {
	TokenBudget       int `yaml:"token_budget" env:"ASSEMBLER_TOKEN_BUDGET" env-default:"4000"`
	TokensPerTable    int `yaml:"tokens_per_table" env:"ASSEMBLER_TOKENS_PER_TABLE" env-default:"120"`
	TokensPerColumn   int `yaml:"tokens_per_column" env:"ASSEMBLER_TOKENS_PER_COLUMN" env-default:"30"`
	TokensPerJoinPath int `yaml:"tokens_per_join_path" env:"ASSEMBLER_TOKENS_PER_JOIN_PATH" env-default:"40"`
	TokensPerGlossary int `yaml:"tokens_per_glossary" env:"ASSEMBLER_TOKENS_PER_GLOSSARY" env-default:"50"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time and set on the
// returned Config. When config.yaml is absent, environment variables and
// defaults alone are used.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Scorer.RelevanceThreshold < 0 || c.Scorer.RelevanceThreshold > 1 {
		return fmt.Errorf("scorer.relevance_threshold must be in [0,1], got %v", c.Scorer.RelevanceThreshold)
	}
	if c.Scorer.MaxTablesCeiling < 1 {
		return fmt.Errorf("scorer.max_tables_ceiling must be at least 1, got %d", c.Scorer.MaxTablesCeiling)
	}
	if c.Scorer.ScoringWorkers < 1 {
		return fmt.Errorf("scorer.scoring_workers must be at least 1, got %d", c.Scorer.ScoringWorkers)
	}
	if c.Assembler.TokenBudget < 1 {
		return fmt.Errorf("assembler.token_budget must be positive, got %d", c.Assembler.TokenBudget)
	}
	return nil
}
