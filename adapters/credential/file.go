// Package credential persists the assistant API key between runs.
package credential

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
)

const (
	appDir     = ".pesan"
	configFile = "config.yaml"
)

// Config is the on-disk layout of the credential file
type Config struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model,omitempty"`
}

// FileStore keeps the API key in a YAML file readable only by its owner
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore uses path, or ~/.pesan/config.yaml when path is empty
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, appDir, configFile)
	}
	return &FileStore{path: path}, nil
}

// Path returns the credential file location
func (s *FileStore) Path() string {
	return s.path
}

// Load implements repositories.CredentialStore. A missing file yields an empty key.
func (s *FileStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.read()
	if err != nil {
		return "", err
	}
	return cfg.APIKey, nil
}

// Save implements repositories.CredentialStore
func (s *FileStore) Save(apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.read()
	if err != nil {
		return err
	}
	cfg.APIKey = apiKey
	return s.write(cfg)
}

// LoadConfig returns the whole credential file
func (s *FileStore) LoadConfig() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// SaveModel stores the preferred model next to the key
func (s *FileStore) SaveModel(model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.read()
	if err != nil {
		return err
	}
	cfg.Model = model
	return s.write(cfg)
}

func (s *FileStore) read() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse credential file: %w", err)
	}
	return &cfg, nil
}

func (s *FileStore) write(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal credential file: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	return nil
}

// Static is a CredentialStore backed by a fixed key, used when the key comes
// from the environment. Save only updates the in-memory value.
type Static struct {
	mu  sync.Mutex
	key string
}

// NewStatic creates a static credential store
func NewStatic(key string) *Static {
	return &Static{key: key}
}

func (s *Static) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, nil
}

func (s *Static) Save(apiKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = apiKey
	return nil
}
