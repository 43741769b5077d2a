package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the topicdex service configuration.
type Config struct {
	HTTP        HTTPConfig       `yaml:"http"`
	Engine      EngineConfig     `yaml:"engine"`
	Cache       CacheConfig      `yaml:"cache"`
	Inferencer  InferencerConfig `yaml:"inferencer"`
	Indexing    IndexingConfig   `yaml:"indexing"`
	RegionsFile string           `yaml:"regions_file"`
	Auth        AuthConfig       `yaml:"auth"`
	Logging     LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json, console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig holds search engine connection settings.
type EngineConfig struct {
	URL                  string  `yaml:"url"`
	RegistryCollection   string  `yaml:"registry_collection"`
	ConfigSet            string  `yaml:"config_set"`
	NumShards            int     `yaml:"num_shards"`
	BatchSize            int     `yaml:"batch_size"`
	TimeoutSec           int     `yaml:"timeout_sec"`
	RateLimit            float64 `yaml:"rate_limit"` // requests per second, 0 = unlimited
	ReadinessTimeout     int     `yaml:"readiness_timeout_sec"`
	VectorFieldType      string  `yaml:"vector_field_type"`
	FloatVectorFieldType string  `yaml:"float_vector_field_type"`
}

// CacheConfig holds the beta cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Standalone       bool     `yaml:"standalone"` // single node, no cluster discovery
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// InferencerConfig holds the topic inference service settings.
type InferencerConfig struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// IndexingConfig holds encoding budgets and per-corpus field mappings.
type IndexingConfig struct {
	MaxSum          int                     `yaml:"max_sum"`
	MaxSumNeural    int                     `yaml:"max_sum_neural"`
	ThetaBudget     int                     `yaml:"theta_budget"`
	SimilarityFloor float64                 `yaml:"similarity_floor"`
	NoMetaFields    []string                `yaml:"no_meta_fields"`
	Corpora         map[string]CorpusConfig `yaml:"corpora"`
}

// CorpusConfig maps raw dataset columns to the canonical title and date fields.
type CorpusConfig struct {
	TitleField string `yaml:"title_field"`
	DateField  string `yaml:"date_field"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300 // model indexing is synchronous
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Engine.RegistryCollection == "" {
		c.Engine.RegistryCollection = "corpus_col"
	}
	if c.Engine.NumShards <= 0 {
		c.Engine.NumShards = 1
	}
	if c.Engine.BatchSize <= 0 {
		c.Engine.BatchSize = 100
	}
	if c.Engine.TimeoutSec <= 0 {
		c.Engine.TimeoutSec = 60
	}
	if c.Engine.ReadinessTimeout <= 0 {
		c.Engine.ReadinessTimeout = 30
	}
	if c.Engine.VectorFieldType == "" {
		c.Engine.VectorFieldType = "VectorField"
	}
	if c.Engine.FloatVectorFieldType == "" {
		c.Engine.FloatVectorFieldType = "VectorFloatField"
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = "valkey"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 86400
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Inferencer.TimeoutSec <= 0 {
		c.Inferencer.TimeoutSec = 120
	}
	if c.Indexing.MaxSum <= 0 {
		c.Indexing.MaxSum = 1000
	}
	if c.Indexing.MaxSumNeural <= 0 {
		c.Indexing.MaxSumNeural = 100
	}
	if c.Indexing.ThetaBudget <= 0 {
		c.Indexing.ThetaBudget = 1000
	}
	if c.Indexing.NoMetaFields == nil {
		c.Indexing.NoMetaFields = []string{"all_lemmas", "nwords_per_doc"}
	}
	if c.RegionsFile == "" {
		c.RegionsFile = "config/regions.yaml"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Engine.URL == "" {
		return fmt.Errorf("engine.url is required")
	}
	if c.Engine.RateLimit < 0 {
		return fmt.Errorf("engine.rate_limit must not be negative, got %g", c.Engine.RateLimit)
	}
	if c.Cache.Enabled {
		switch c.Cache.Driver {
		case "valkey", "redis":
		default:
			return fmt.Errorf("cache.driver must be \"valkey\" or \"redis\", got %q", c.Cache.Driver)
		}
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required when cache is enabled")
		}
	}
	if c.Indexing.SimilarityFloor < 0 || c.Indexing.SimilarityFloor >= 1 {
		return fmt.Errorf("indexing.similarity_floor must be in [0, 1), got %g", c.Indexing.SimilarityFloor)
	}
	for name, m := range c.Indexing.Corpora {
		if name != strings.ToLower(name) {
			return fmt.Errorf("indexing.corpora key %q must be lowercase", name)
		}
		if m.TitleField == "" || m.DateField == "" {
			return fmt.Errorf("indexing.corpora.%s needs title_field and date_field", name)
		}
	}
	return nil
}

// CorpusMapping returns the title/date mapping for a corpus name.
func (c *Config) CorpusMapping(name string) (CorpusConfig, bool) {
	m, ok := c.Indexing.Corpora[strings.ToLower(name)]
	return m, ok
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
