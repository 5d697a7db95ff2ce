package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Graph   GraphConfig   `mapstructure:"graph"`
	Search  SearchConfig  `mapstructure:"search"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Secrets SecretsConfig `mapstructure:"secrets"`
}

// GraphConfig selects where snapshots are loaded from.
type GraphConfig struct {
	Source  string      `mapstructure:"source"` // "file" or "neo4j"
	Dataset string      `mapstructure:"dataset"`
	Neo4j   Neo4jConfig `mapstructure:"neo4j"`
}

type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// SearchConfig holds the default bounds for every query kind.
type SearchConfig struct {
	Paths          PathLimits  `mapstructure:"paths"`
	Shortest       DepthLimit  `mapstructure:"shortest"`
	Legacy         DepthLimit  `mapstructure:"legacy"`
	Cycles         CycleLimits `mapstructure:"cycles"`
	DetailedCycles CycleLimits `mapstructure:"detailed_cycles"`

	// DepthCeiling clamps any requested depth, whatever its source.
	DepthCeiling int `mapstructure:"depth_ceiling"`
}

type PathLimits struct {
	MaxDepth      int `mapstructure:"max_depth"`
	MaxTotalPaths int `mapstructure:"max_total_paths"`
	MaxExpansions int `mapstructure:"max_expansions"`
}

type DepthLimit struct {
	MaxDepth int `mapstructure:"max_depth"`
}

type CycleLimits struct {
	MaxDepth  int `mapstructure:"max_depth"`
	MaxCycles int `mapstructure:"max_cycles"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type MetricsConfig struct {
	Namespace  string `mapstructure:"namespace"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// SecretsConfig selects where credentials missing from the config come from.
type SecretsConfig struct {
	Provider string      `mapstructure:"provider"` // "env", "file" or "vault"
	File     string      `mapstructure:"file"`
	Vault    VaultConfig `mapstructure:"vault"`
}

type VaultConfig struct {
	Address    string `mapstructure:"address"`
	Token      string `mapstructure:"token"`
	MountPath  string `mapstructure:"mount_path"`
	SecretPath string `mapstructure:"secret_path"`
}

// ClampDepth bounds a requested depth by DepthCeiling. It reports whether
// the depth was lowered.
func (s SearchConfig) ClampDepth(depth int) (int, bool) {
	if s.DepthCeiling > 0 && depth > s.DepthCeiling {
		return s.DepthCeiling, true
	}
	return depth, false
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("graph.source", "file")
	v.SetDefault("graph.dataset", "data/graph.json")
	v.SetDefault("graph.neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("graph.neo4j.username", "neo4j")
	v.SetDefault("graph.neo4j.password", "")
	v.SetDefault("graph.neo4j.database", "neo4j")

	v.SetDefault("search.paths.max_depth", 4)
	v.SetDefault("search.paths.max_total_paths", 15)
	v.SetDefault("search.paths.max_expansions", 250000)
	v.SetDefault("search.shortest.max_depth", 6)
	v.SetDefault("search.legacy.max_depth", 4)
	v.SetDefault("search.cycles.max_depth", 6)
	v.SetDefault("search.cycles.max_cycles", 50)
	v.SetDefault("search.detailed_cycles.max_depth", 8)
	v.SetDefault("search.detailed_cycles.max_cycles", 50)
	v.SetDefault("search.depth_ceiling", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("tracing.service_name", "linkscope")
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("metrics.namespace", "linkscope")
	v.SetDefault("metrics.listen_addr", ":9464")

	v.SetDefault("secrets.provider", "env")
	v.SetDefault("secrets.file", "")
	v.SetDefault("secrets.vault.address", "")
	v.SetDefault("secrets.vault.token", "")
	v.SetDefault("secrets.vault.mount_path", "secret")
	v.SetDefault("secrets.vault.secret_path", "linkscope")
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	switch c.Graph.Source {
	case "file":
		if c.Graph.Dataset == "" {
			warnings = append(warnings, "graph source 'file' is configured but dataset is empty")
		}
	case "neo4j":
		if c.Graph.Neo4j.URI == "" {
			warnings = append(warnings, "graph source 'neo4j' is configured but neo4j.uri is empty")
		}
		if c.Graph.Neo4j.Password == "" && c.Secrets.Provider == "env" {
			warnings = append(warnings, "graph source 'neo4j' is configured but neo4j.password is empty")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown graph source '%s' (want file or neo4j)", c.Graph.Source))
	}

	s := c.Search
	if s.DepthCeiling <= 0 {
		warnings = append(warnings, fmt.Sprintf("search depth_ceiling %d disables every query", s.DepthCeiling))
	}
	for name, depth := range map[string]int{
		"paths":           s.Paths.MaxDepth,
		"shortest":        s.Shortest.MaxDepth,
		"legacy":          s.Legacy.MaxDepth,
		"cycles":          s.Cycles.MaxDepth,
		"detailed_cycles": s.DetailedCycles.MaxDepth,
	} {
		if depth > s.DepthCeiling && s.DepthCeiling > 0 {
			warnings = append(warnings, fmt.Sprintf("search %s max_depth %d exceeds depth_ceiling %d and will be clamped", name, depth, s.DepthCeiling))
		}
	}
	if s.Paths.MaxTotalPaths <= 0 {
		warnings = append(warnings, fmt.Sprintf("search paths max_total_paths %d always yields no paths", s.Paths.MaxTotalPaths))
	}
	if s.Cycles.MaxCycles <= 0 || s.DetailedCycles.MaxCycles <= 0 {
		warnings = append(warnings, "search max_cycles <= 0 always yields no cycles")
	}

	switch c.Secrets.Provider {
	case "env":
	case "file":
		if c.Secrets.File == "" {
			warnings = append(warnings, "secrets provider 'file' is configured but secrets.file is empty")
		}
	case "vault":
		if c.Secrets.Vault.Address == "" || c.Secrets.Vault.Token == "" {
			warnings = append(warnings, "secrets provider 'vault' needs secrets.vault.address and secrets.vault.token")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown secrets provider '%s' (want env, file or vault)", c.Secrets.Provider))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	return warnings
}

// Load reads configuration from file and environment. An empty path skips
// the file and uses defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("LINKSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	for _, warning := range cfg.Validate() {
		slog.Warn("config", "warning", warning)
	}

	return &cfg, nil
}
