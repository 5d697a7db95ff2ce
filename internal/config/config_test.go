package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Graph.Source != "file" {
		t.Errorf("expected source=file, got %s", cfg.Graph.Source)
	}
	if cfg.Search.Paths.MaxDepth != 4 || cfg.Search.Paths.MaxTotalPaths != 15 {
		t.Errorf("unexpected path limits %+v", cfg.Search.Paths)
	}
	if cfg.Search.Paths.MaxExpansions != 250000 {
		t.Errorf("expected max_expansions=250000, got %d", cfg.Search.Paths.MaxExpansions)
	}
	if cfg.Search.Cycles.MaxDepth != 6 || cfg.Search.Cycles.MaxCycles != 50 {
		t.Errorf("unexpected cycle limits %+v", cfg.Search.Cycles)
	}
	if cfg.Search.DetailedCycles.MaxDepth != 8 {
		t.Errorf("expected detailed max_depth=8, got %d", cfg.Search.DetailedCycles.MaxDepth)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Log.Level)
	}

	if warnings := cfg.Validate(); len(warnings) != 0 {
		t.Errorf("defaults should have no warnings, got %v", warnings)
	}
}

func TestValidate_Neo4jWithoutPassword(t *testing.T) {
	cfg := Default()
	cfg.Graph.Source = "neo4j"
	if !hasWarning(cfg.Validate(), "neo4j.password") {
		t.Error("expected warning about missing neo4j.password")
	}
}

func TestValidate_Secrets(t *testing.T) {
	cfg := Default()
	cfg.Graph.Source = "neo4j"
	cfg.Secrets.Provider = "file"
	warnings := cfg.Validate()
	if hasWarning(warnings, "neo4j.password") {
		t.Error("password may come from the secrets file, no warning expected")
	}
	if !hasWarning(warnings, "secrets.file is empty") {
		t.Errorf("expected warning about secrets.file, got %v", warnings)
	}

	cfg.Secrets.Provider = "vault"
	if !hasWarning(cfg.Validate(), "secrets.vault.address") {
		t.Error("expected warning about vault settings")
	}

	cfg.Secrets.Provider = "keychain"
	if !hasWarning(cfg.Validate(), "unknown secrets provider") {
		t.Error("expected warning about unknown secrets provider")
	}
}

func TestValidate_UnknownSource(t *testing.T) {
	cfg := Default()
	cfg.Graph.Source = "csv"
	if !hasWarning(cfg.Validate(), "unknown graph source") {
		t.Error("expected warning about unknown source")
	}
}

func TestValidate_SampleRate(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want bool // true = should warn
	}{
		{"zero", 0, false},
		{"half", 0.5, false},
		{"one", 1, false},
		{"negative", -0.1, true},
		{"too_high", 1.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Tracing.SampleRate = tt.rate
			if got := hasWarning(cfg.Validate(), "sample_rate"); got != tt.want {
				t.Errorf("sample_rate=%.1f: hasWarn=%v, want=%v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestValidate_SearchLimits(t *testing.T) {
	cfg := Default()
	cfg.Search.Cycles.MaxDepth = 12
	cfg.Search.Paths.MaxTotalPaths = 0

	warnings := cfg.Validate()
	if !hasWarning(warnings, "cycles max_depth 12 exceeds depth_ceiling 10") {
		t.Errorf("expected clamp warning, got %v", warnings)
	}
	if !hasWarning(warnings, "max_total_paths") {
		t.Errorf("expected max_total_paths warning, got %v", warnings)
	}
}

func TestClampDepth(t *testing.T) {
	s := SearchConfig{DepthCeiling: 10}

	if d, clamped := s.ClampDepth(4); d != 4 || clamped {
		t.Errorf("ClampDepth(4) = %d, %v", d, clamped)
	}
	if d, clamped := s.ClampDepth(10); d != 10 || clamped {
		t.Errorf("ClampDepth(10) = %d, %v", d, clamped)
	}
	if d, clamped := s.ClampDepth(50); d != 10 || !clamped {
		t.Errorf("ClampDepth(50) = %d, %v", d, clamped)
	}

	// no ceiling configured
	if d, clamped := (SearchConfig{}).ClampDepth(50); d != 50 || clamped {
		t.Errorf("ClampDepth without ceiling = %d, %v", d, clamped)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkscope.yaml")
	content := `
graph:
  dataset: fixtures/holdings.yaml
search:
  paths:
    max_depth: 5
  cycles:
    max_cycles: 7
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Graph.Dataset != "fixtures/holdings.yaml" {
		t.Errorf("expected dataset from file, got %s", cfg.Graph.Dataset)
	}
	if cfg.Search.Paths.MaxDepth != 5 {
		t.Errorf("expected max_depth=5, got %d", cfg.Search.Paths.MaxDepth)
	}
	if cfg.Search.Paths.MaxTotalPaths != 15 {
		t.Errorf("unset keys should keep defaults, got %d", cfg.Search.Paths.MaxTotalPaths)
	}
	if cfg.Search.Cycles.MaxCycles != 7 {
		t.Errorf("expected max_cycles=7, got %d", cfg.Search.Cycles.MaxCycles)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("LINKSCOPE_SEARCH_PATHS_MAX_DEPTH", "3")
	t.Setenv("LINKSCOPE_GRAPH_SOURCE", "neo4j")
	t.Setenv("LINKSCOPE_GRAPH_NEO4J_PASSWORD", "pw")
	t.Setenv("LINKSCOPE_SECRETS_VAULT_TOKEN", "tok")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Search.Paths.MaxDepth != 3 {
		t.Errorf("expected env override max_depth=3, got %d", cfg.Search.Paths.MaxDepth)
	}
	if cfg.Graph.Source != "neo4j" {
		t.Errorf("expected env override source=neo4j, got %s", cfg.Graph.Source)
	}
	if cfg.Graph.Neo4j.Password != "pw" || cfg.Secrets.Vault.Token != "tok" {
		t.Errorf("credentials should bind from env, got %q and %q", cfg.Graph.Neo4j.Password, cfg.Secrets.Vault.Token)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("search: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}
