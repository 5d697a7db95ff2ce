package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// ==================== EnvProvider Tests ====================

func TestEnvProvider_Get_WithPrefix(t *testing.T) {
	t.Setenv("LINKSCOPE_NEO4J_PASSWORD", "prefixed")

	p := NewEnvProvider("")
	val, err := p.Get(context.Background(), KeyNeo4jPassword)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "prefixed" {
		t.Fatalf("expected 'prefixed', got %s", val)
	}
}

func TestEnvProvider_Get_WithoutPrefix(t *testing.T) {
	t.Setenv("TEST_SECRET_NO_PREFIX", "direct_value")

	p := NewEnvProvider("LINKSCOPE_")
	val, err := p.Get(context.Background(), "test_secret_no_prefix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "direct_value" {
		t.Fatalf("expected 'direct_value', got %s", val)
	}
}

func TestEnvProvider_Get_NotFound(t *testing.T) {
	p := NewEnvProvider("LINKSCOPE_")
	_, err := p.Get(context.Background(), "nonexistent_secret_xyz")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ==================== FileProvider Tests ====================

func writeSecrets(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileProvider_JSONAndYAML(t *testing.T) {
	for name, content := range map[string]string{
		"secrets.json": `{"neo4j_password": "s3cret"}`,
		"secrets.yaml": "neo4j_password: s3cret\n",
	} {
		p, err := NewFileProvider(&FileConfig{Path: writeSecrets(t, name, content)})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		val, err := p.Get(context.Background(), KeyNeo4jPassword)
		if err != nil || val != "s3cret" {
			t.Errorf("%s: got %q, %v", name, val, err)
		}
		if _, err := p.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestFileProvider_Reload(t *testing.T) {
	path := writeSecrets(t, "secrets.json", `{"k": "v1"}`)
	p, err := NewFileProvider(&FileConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"k": "v2"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := p.Reload(); err != nil {
		t.Fatal(err)
	}
	if val, _ := p.Get(context.Background(), "k"); val != "v2" {
		t.Errorf("expected reloaded value, got %q", val)
	}
}

func TestFileProvider_Errors(t *testing.T) {
	if _, err := NewFileProvider(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewFileProvider(&FileConfig{Path: filepath.Join(t.TempDir(), "none.json")}); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := NewFileProvider(&FileConfig{Path: writeSecrets(t, "bad.yaml", "- not\n- a map\n")}); err == nil {
		t.Error("expected error for non-map content")
	}
}

// ==================== VaultProvider Tests ====================

func vaultServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/secret/data/linkscope" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data": map[string]any{"neo4j_password": "from-vault", "port": 7687},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultProvider_Get(t *testing.T) {
	srv := vaultServer(t)
	p, err := NewVaultProvider(&VaultConfig{Address: srv.URL + "/", Token: "root"})
	if err != nil {
		t.Fatal(err)
	}

	val, err := p.Get(context.Background(), KeyNeo4jPassword)
	if err != nil || val != "from-vault" {
		t.Fatalf("got %q, %v", val, err)
	}
	if val, _ := p.Get(context.Background(), "port"); val != "7687" {
		t.Errorf("non-string values should be formatted, got %q", val)
	}
	if _, err := p.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestVaultProvider_Errors(t *testing.T) {
	if _, err := NewVaultProvider(&VaultConfig{Token: "root"}); err == nil {
		t.Error("expected error without address")
	}
	if _, err := NewVaultProvider(&VaultConfig{Address: "http://localhost:8200"}); err == nil {
		t.Error("expected error without token")
	}

	srv := vaultServer(t)
	p, _ := NewVaultProvider(&VaultConfig{Address: srv.URL, Token: "wrong"})
	if _, err := p.Get(context.Background(), KeyNeo4jPassword); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected a vault error, got %v", err)
	}

	p, _ = NewVaultProvider(&VaultConfig{Address: srv.URL, Token: "root", SecretPath: "other"})
	if _, err := p.Get(context.Background(), KeyNeo4jPassword); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing path, got %v", err)
	}
}

// ==================== Manager Tests ====================

func TestManager_FileWithEnvFallback(t *testing.T) {
	t.Setenv("LINKSCOPE_NEO4J_USERNAME", "env-user")
	path := writeSecrets(t, "secrets.json", `{"neo4j_password": "file-pass"}`)

	m, err := NewManager(&Config{Provider: "file", File: &FileConfig{Path: path}})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if val, err := m.Get(ctx, KeyNeo4jPassword); err != nil || val != "file-pass" {
		t.Errorf("primary: got %q, %v", val, err)
	}
	if val, err := m.Get(ctx, KeyNeo4jUsername); err != nil || val != "env-user" {
		t.Errorf("fallback: got %q, %v", val, err)
	}
	if _, err := m.Get(ctx, "nothing_here_xyz"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got := m.GetOrDefault(ctx, "nothing_here_xyz", "def"); got != "def" {
		t.Errorf("expected default, got %q", got)
	}
}

func TestManager_Caches(t *testing.T) {
	t.Setenv("LINKSCOPE_CACHED_KEY", "first")
	m, err := NewManager(nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if val, _ := m.Get(ctx, "cached_key"); val != "first" {
		t.Fatalf("got %q", val)
	}
	t.Setenv("LINKSCOPE_CACHED_KEY", "second")
	if val, _ := m.Get(ctx, "cached_key"); val != "first" {
		t.Errorf("expected cached value, got %q", val)
	}
}

func TestManager_Errors(t *testing.T) {
	if _, err := NewManager(&Config{Provider: "keychain"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := NewManager(&Config{Provider: "file"}); err == nil {
		t.Error("expected error for file provider without config")
	}
	if _, err := NewManager(&Config{Provider: "vault", Vault: &VaultConfig{}}); err == nil {
		t.Error("expected error for vault provider without address")
	}
}
