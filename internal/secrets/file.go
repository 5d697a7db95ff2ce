package secrets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileConfig points at a flat key/value file in JSON or YAML.
type FileConfig struct {
	Path string
}

// FileProvider serves secrets from a local file. The file is read once at
// construction and again on Reload.
type FileProvider struct {
	path string
	mu   sync.RWMutex
	data map[string]string
}

func NewFileProvider(cfg *FileConfig) (*FileProvider, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("file path required")
	}
	p := &FileProvider{path: cfg.Path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Get(_ context.Context, key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return val, nil
}

// Reload rereads the file. JSON parses as YAML, so one decoder serves both.
func (p *FileProvider) Reload() error {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("load secrets file: %w", err)
	}
	data := make(map[string]string)
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("parse secrets file %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.data = data
	p.mu.Unlock()
	return nil
}
