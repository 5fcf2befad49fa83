package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Format represents the configuration file format
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

const defaultHeader = `# svnlogstats configuration
# Values can be overridden with SVNLOGSTATS_<SECTION>_<KEY> environment variables,
# e.g. SVNLOGSTATS_LOGGING_LEVEL=debug
#
# branch_paths: branch root templates, * matches one path segment
# output.formats: any of csv, summary, sqlite

`

// fileManager reads and writes a configuration file in JSON or YAML
type fileManager struct {
	configPath string
	format     Format
	mu         sync.Mutex
}

// NewFileManager creates a config manager for configPath; the format follows the
// extension and defaults to YAML.
func NewFileManager(configPath string) (Manager, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	return &fileManager{
		configPath: configPath,
		format:     formatOf(configPath),
	}, nil
}

func formatOf(path string) Format {
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads the file through LoadConfig, so defaults and environment overrides apply.
func (m *fileManager) Load() (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return LoadConfig(m.configPath)
}

// Save saves the configuration file in the appropriate format
func (m *fileManager) Save(config *Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(config, "")
}

// CreateDefaultConfig creates a default configuration file
func (m *fileManager) CreateDefaultConfig() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	header := ""
	if m.format == FormatYAML {
		header = defaultHeader
	}
	return m.write(Default(), header)
}

func (m *fileManager) write(config *Config, header string) error {
	var data []byte
	var err error

	switch m.format {
	case FormatJSON:
		data, err = json.MarshalIndent(config, "", "  ")
	case FormatYAML:
		data, err = yaml.Marshal(config)
	default:
		return fmt.Errorf("unknown format: %s", m.format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return writeAtomic(m.configPath, []byte(header+string(data)))
}

// writeAtomic writes to a temp file then renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

// WriteDefault writes the default configuration to path. An existing file is kept
// unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}
	m, err := NewFileManager(path)
	if err != nil {
		return err
	}
	return m.CreateDefaultConfig()
}
