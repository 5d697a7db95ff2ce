// Package secrets resolves credentials from the environment, a local file or
// HashiCorp Vault.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound is returned when no provider holds the key.
var ErrNotFound = errors.New("secret not found")

// Well-known keys.
const (
	KeyNeo4jPassword = "neo4j_password"
	KeyNeo4jUsername = "neo4j_username"
)

// Provider is a read-only secret backend.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Config configures the secrets manager.
type Config struct {
	// Provider is "env", "file" or "vault".
	Provider string
	File     *FileConfig
	Vault    *VaultConfig
	// EnvPrefix defaults to "LINKSCOPE_".
	EnvPrefix string
}

// DefaultConfig returns the env-only configuration.
func DefaultConfig() *Config {
	return &Config{Provider: "env", EnvPrefix: "LINKSCOPE_"}
}

// Manager asks its primary provider first and falls back to the
// environment. Found values are cached for the life of the manager.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager builds the configured provider chain.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &Manager{cache: make(map[string]string)}
	switch cfg.Provider {
	case "env", "":
		m.primary = NewEnvProvider(cfg.EnvPrefix)
		return m, nil
	case "file":
		p, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("create file provider: %w", err)
		}
		m.primary = p
	case "vault":
		p, err := NewVaultProvider(cfg.Vault)
		if err != nil {
			return nil, fmt.Errorf("create vault provider: %w", err)
		}
		m.primary = p
	default:
		return nil, fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}
	m.fallback = NewEnvProvider(cfg.EnvPrefix)
	return m, nil
}

// Get returns the secret for key from the first provider that has it.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	val, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return val, nil
	}

	var errs []error
	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		val, err := p.Get(ctx, key)
		if err == nil && val != "" {
			m.mu.Lock()
			m.cache[key] = val
			m.mu.Unlock()
			return val, nil
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}
	if len(errs) > 0 {
		return "", errors.Join(errs...)
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, key)
}

// GetOrDefault returns the secret, or def when it cannot be resolved.
func (m *Manager) GetOrDefault(ctx context.Context, key, def string) string {
	val, err := m.Get(ctx, key)
	if err != nil {
		return def
	}
	return val
}

// EnvProvider reads PREFIX_KEY, then KEY, from the environment.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "LINKSCOPE_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key string) (string, error) {
	name := strings.ToUpper(key)
	if val := os.Getenv(p.prefix + name); val != "" {
		return val, nil
	}
	if val := os.Getenv(name); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: %s%s", ErrNotFound, p.prefix, name)
}
