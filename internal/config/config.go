package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/jsonc"
)

// Environment overrides, applied after the file.
const (
	EnvHome        = "AIWF_HOME"
	EnvSessionRoot = "AIWF_SESSION_ROOT"
	EnvToolsPath   = "AIWF_TOOLS_PATH"
	EnvLogLevel    = "AIWF_LOG_LEVEL"
)

type Config struct {
	DataDir     string `json:"data_dir" validate:"required"`
	SessionRoot string `json:"session_root,omitempty"`
	ToolsPath   string `json:"tools_path,omitempty"`
	LogLevel    string `json:"log_level" validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// DefaultDataDir is AIWF_HOME when set, otherwise ~/.aiwf.
func DefaultDataDir() string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	return filepath.Join(os.Getenv("HOME"), ".aiwf")
}

// DefaultPath is the config file inside the default data dir.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.json")
}

func defaults() *Config {
	return &Config{
		DataDir:  filepath.Join(os.Getenv("HOME"), ".aiwf"),
		LogLevel: "info",
	}
}

// Load reads path, writing the defaults there first if it does not exist.
// The file may contain comments and trailing commas. Env overrides win over
// the file, and unset session_root/tools_path are derived from data_dir.
func Load(path string) (*Config, error) {
	return LoadWithDataDir(path, "")
}

// LoadWithDataDir is Load with dataDir as the default data_dir. A config
// file created here records dataDir, so the file never points at a data
// dir other than the one it was written for.
func LoadWithDataDir(path, dataDir string) (*Config, error) {
	cfg := defaults()
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	if _, err := os.Stat(path); err == nil {
		data, err := readJSON(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("stat config: %w", err)
	}

	if home := os.Getenv(EnvHome); home != "" {
		cfg.DataDir = home
	}
	if root := os.Getenv(EnvSessionRoot); root != "" {
		cfg.SessionRoot = root
	}
	if tools := os.Getenv(EnvToolsPath); tools != "" {
		cfg.ToolsPath = tools
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = strings.ToLower(level)
	}

	cfg.resolve()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) resolve() {
	c.DataDir = expandHome(c.DataDir)
	if c.SessionRoot == "" {
		c.SessionRoot = filepath.Join(c.DataDir, "sessions")
	}
	if c.ToolsPath == "" {
		c.ToolsPath = filepath.Join(c.DataDir, "tools.json")
	}
	c.SessionRoot = expandHome(c.SessionRoot)
	c.ToolsPath = expandHome(c.ToolsPath)
}

// SetDataDir moves the data dir. Session root and tools path follow it
// when they were derived from the old value.
func (c *Config) SetDataDir(dir string) {
	dir = expandHome(dir)
	if c.SessionRoot == filepath.Join(c.DataDir, "sessions") {
		c.SessionRoot = filepath.Join(dir, "sessions")
	}
	if c.ToolsPath == filepath.Join(c.DataDir, "tools.json") {
		c.ToolsPath = filepath.Join(dir, "tools.json")
	}
	c.DataDir = dir
}

func expandHome(p string) string {
	if p == "~" {
		return os.Getenv("HOME")
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(os.Getenv("HOME"), p[2:])
	}
	return p
}

// DBPath returns a file under {data_dir}/db.
func (c *Config) DBPath(name string) string {
	return filepath.Join(c.DataDir, "db", name)
}

func (c *Config) EventsPath() string       { return c.DBPath("events.jsonl") }
func (c *Config) MaterialsPath() string    { return c.DBPath("materials.jsonl") }
func (c *Config) MaterialSetsPath() string { return c.DBPath("material_sets.jsonl") }
func (c *Config) ArtifactsPath() string    { return c.DBPath("artifacts.jsonl") }

func (c *Config) AttachedSessionPath() string {
	return filepath.Join(c.DataDir, "attached-session.json")
}

// Save writes cfg to path atomically, creating the parent directory.
func Save(path string, cfg any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

func readJSON(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return jsonc.ToJSON(data), nil
}

// ToMap converts cfg to a generic nested map via its JSON form.
func ToMap(cfg any) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns the effective configuration as dot-separated keys.
func ListValues(cfg *Config) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	return Flatten(m), nil
}

// GetValue loads path and returns the effective value for key.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return LookupValue(cfg, path, key)
}

// LookupValue returns key from the effective cfg. Keys cfg does not model
// are looked up in the raw file at path.
func LookupValue(cfg *Config, path, key string) (any, error) {
	flat, err := ListValues(cfg)
	if err != nil {
		return nil, err
	}
	if v, ok := flat[key]; ok {
		return v, nil
	}
	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	if v, ok := Flatten(raw)[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("unknown config key: %s", key)
}

// SetValue stores value under key in the file at path. Values that parse
// as JSON (numbers, booleans, null) keep their type; anything else is
// stored as a string. The result must still be a valid configuration.
func SetValue(path, key, value string) error {
	raw, err := readRaw(path)
	if err != nil {
		return err
	}

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}
	flat := Flatten(raw)
	flat[key] = parsed
	updated := Unflatten(flat)

	check := defaults()
	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := json.Unmarshal(data, check); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	check.resolve()
	if err := validate.Struct(check); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return Save(path, updated)
}

func readRaw(path string) (map[string]any, error) {
	data, err := readJSON(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, err
	}
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return raw, nil
}
