package tunnel

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

/* Loader holds the known API keys and their tunnel configuration
 * Tunnels come from tunnels.yaml and from keys created at runtime
 */

// Config represents the structure of tunnels.yaml
type Config struct {
	Tunnels []TunnelConfig `yaml:"tunnels"`
}

// TunnelConfig represents a single tunnel in the YAML file
type TunnelConfig struct {
	APIKey         string   `yaml:"api_key"`
	Name           string   `yaml:"name"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedPaths   []string `yaml:"allowed_paths"`
	BlockedPaths   []string `yaml:"blocked_paths"`
}

// Loader holds the loaded tunnels, safe for concurrent use
type Loader struct {
	mu      sync.RWMutex
	tunnels map[string]*Tunnel
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{
		tunnels: make(map[string]*Tunnel),
	}
}

// Load reads and parses a tunnels.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading tunnels file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing tunnels YAML: %w", err)
	}

	loaded := make(map[string]*Tunnel, len(config.Tunnels))
	for _, tc := range config.Tunnels {
		t, err := New(tc.APIKey, tc.Name, tc.AllowedMethods, tc.AllowedPaths, tc.BlockedPaths)
		if err != nil {
			return fmt.Errorf("validating tunnel: %w", err)
		}
		if _, dup := loaded[t.APIKey]; dup {
			return fmt.Errorf("duplicate api_key for tunnel %q", t.Name)
		}
		loaded[t.APIKey] = t
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, t := range loaded {
		l.tunnels[k] = t
	}
	return nil
}

// Add registers a tunnel, replacing any tunnel with the same key
func (l *Loader) Add(t *Tunnel) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validating tunnel: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tunnels[t.APIKey] = t
	return nil
}

// Create generates a fresh API key with an allow-all tunnel
func (l *Loader) Create(name string) (*Tunnel, error) {
	key, err := GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generating api key: %w", err)
	}
	t, err := New(key, name, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if err := l.Add(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get retrieves a tunnel by its API key
func (l *Loader) Get(apiKey string) (*Tunnel, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	t, exists := l.tunnels[apiKey]
	if !exists {
		return nil, fmt.Errorf("tunnel not found for api key")
	}
	return t, nil
}

// List returns all tunnels ordered by name
func (l *Loader) List() []*Tunnel {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tunnels := make([]*Tunnel, 0, len(l.tunnels))
	for _, t := range l.tunnels {
		tunnels = append(tunnels, t)
	}
	sort.Slice(tunnels, func(i, j int) bool {
		return tunnels[i].Name < tunnels[j].Name
	})
	return tunnels
}

// Exists checks if an API key is known
func (l *Loader) Exists(apiKey string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, exists := l.tunnels[apiKey]
	return exists
}
