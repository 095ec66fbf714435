// Package config loads fdio's layered configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/fdio/pkg/fileio"
	"github.com/calvinalkan/fdio/pkg/fs"
)

var (
	ErrConfigInvalid      = errors.New("invalid config")
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrPlatformEmpty      = errors.New("platform cannot be empty")
	ErrPlatformInvalid    = errors.New("unknown platform")
	ErrLogLevelInvalid    = errors.New("unknown log level")
	ErrChaosRateInvalid   = errors.New("chaos rates must be between 0 and 1")
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Platform    string `json:"platform" yaml:"platform"`
	LogLevel    string `json:"log_level" yaml:"log_level"`
	HistoryFile string `json:"history_file,omitempty" yaml:"history_file,omitempty"`
	Chaos       *Chaos `json:"chaos,omitempty" yaml:"chaos,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd   string `json:"-" yaml:"-"`
	HistoryFileAbs string `json:"-" yaml:"-"` // empty when no history location is known

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-" yaml:"-"`
}

// Chaos enables fault injection on the filesystem scripts run against.
type Chaos struct {
	Seed  int64 `json:"seed" yaml:"seed"`
	Rates Rates `json:"rates" yaml:"rates"`
}

// Rates are per-operation fault probabilities from 0 to 1.
type Rates struct {
	Read         float64 `json:"read,omitempty" yaml:"read,omitempty"`
	PartialRead  float64 `json:"partial_read,omitempty" yaml:"partial_read,omitempty"`
	Write        float64 `json:"write,omitempty" yaml:"write,omitempty"`
	PartialWrite float64 `json:"partial_write,omitempty" yaml:"partial_write,omitempty"`
	Open         float64 `json:"open,omitempty" yaml:"open,omitempty"`
	Close        float64 `json:"close,omitempty" yaml:"close,omitempty"`
	Seek         float64 `json:"seek,omitempty" yaml:"seek,omitempty"`
	Stat         float64 `json:"stat,omitempty" yaml:"stat,omitempty"`
	Unlink       float64 `json:"unlink,omitempty" yaml:"unlink,omitempty"`
	Rename       float64 `json:"rename,omitempty" yaml:"rename,omitempty"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project or explicit config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Platform: fileio.PlatformPOSIX.String(),
		LogLevel: "warn",
	}
}

// ProjectFileNames are looked up in the working directory, in order.
var ProjectFileNames = []string{".fdio.json", ".fdio.yaml", ".fdio.yml"}

// PlatformValue parses the platform name.
func (c Config) PlatformValue() fileio.Platform {
	p, _ := fileio.ParsePlatform(c.Platform)

	return p
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)

	return level
}

// ChaosConfig converts the configured rates for [fs.NewChaos].
func (c Chaos) ChaosConfig() fs.ChaosConfig {
	return fs.ChaosConfig{
		ReadFailRate:     c.Rates.Read,
		PartialReadRate:  c.Rates.PartialRead,
		WriteFailRate:    c.Rates.Write,
		PartialWriteRate: c.Rates.PartialWrite,
		OpenFailRate:     c.Rates.Open,
		CloseFailRate:    c.Rates.Close,
		SeekFailRate:     c.Rates.Seek,
		StatFailRate:     c.Rates.Stat,
		UnlinkFailRate:   c.Rates.Unlink,
		RenameFailRate:   c.Rates.Rename,
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w %q (want debug, info, warn or error)", ErrLogLevelInvalid, s)
	}
}

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/fdio/config.json if set, otherwise
// ~/.config/fdio/config.json. Returns "" if neither is known.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "fdio", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "fdio", "config.json")
	}

	return ""
}

// defaultHistoryPath returns $XDG_STATE_HOME/fdio/history or
// ~/.local/state/fdio/history.
func defaultHistoryPath(env map[string]string) string {
	if xdgState := env["XDG_STATE_HOME"]; xdgState != "" {
		return filepath.Join(xdgState, "fdio", "history")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".local", "state", "fdio", "history")
	}

	return ""
}

// LoadInput holds the inputs for [Load].
type LoadInput struct {
	WorkDir          string            // if empty, os.Getwd() is used
	ConfigPath       string            // -c/--config flag value
	PlatformOverride string            // --platform flag value; empty means no override
	LogLevelOverride string            // --log-level flag value; empty means no override
	Env              map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/fdio/config.json)
// 3. Project config in the working directory (.fdio.json, .fdio.yaml)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDir
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		globalCfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = merge(cfg, globalCfg)
		}
	}

	projectCfg, projectPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if input.PlatformOverride != "" {
		cfg.Platform = input.PlatformOverride
	}

	if input.LogLevelOverride != "" {
		cfg.LogLevel = input.LogLevelOverride
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	switch {
	case cfg.HistoryFile == "":
		cfg.HistoryFileAbs = defaultHistoryPath(input.Env)
	case filepath.IsAbs(cfg.HistoryFile):
		cfg.HistoryFileAbs = cfg.HistoryFile
	default:
		cfg.HistoryFileAbs = filepath.Join(workDir, cfg.HistoryFile)
	}

	return cfg, nil
}

// loadProject loads the first project config file found in workDir, or the
// explicit config file when configPath is set.
func loadProject(workDir, configPath string) (Config, string, error) {
	if configPath != "" {
		path := configPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		if _, statErr := os.Stat(path); statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}

		cfg, _, err := loadFile(path, true)
		if err != nil {
			return Config{}, "", err
		}

		return cfg, path, nil
	}

	for _, name := range ProjectFileNames {
		path := filepath.Join(workDir, name)

		cfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, "", err
		}

		if loaded {
			return cfg, path, nil
		}
	}

	return Config{}, "", nil
}

// loadFile loads a config file. If mustExist is false, a missing file
// returns a zero config and loaded=false.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	parse := parseJSONC
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		parse = parseYAML
	}

	cfg, raw, err := parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	if val, exists := raw["platform"]; exists {
		if str, ok := val.(string); ok && str == "" {
			return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrPlatformEmpty)
		}
	}

	return cfg, true, nil
}

// parseJSONC parses JSON with comments and trailing commas. raw holds the
// top-level keys so explicitly empty values can be told from missing ones.
func parseJSONC(data []byte) (Config, map[string]any, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", err)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	return cfg, raw, nil
}

func parseYAML(data []byte) (Config, map[string]any, error) {
	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, nil, fmt.Errorf("invalid YAML: %w", err)
	}

	var raw map[string]any

	_ = yaml.Unmarshal(data, &raw)

	return cfg, raw, nil
}

func merge(base, overlay Config) Config {
	if overlay.Platform != "" {
		base.Platform = overlay.Platform
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}

	if overlay.Chaos != nil {
		base.Chaos = overlay.Chaos
	}

	return base
}

func validate(cfg Config) error {
	if cfg.Platform == "" {
		return ErrPlatformEmpty
	}

	if _, err := fileio.ParsePlatform(cfg.Platform); err != nil {
		return fmt.Errorf("%w %q (want posix or fat)", ErrPlatformInvalid, cfg.Platform)
	}

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}

	if cfg.Chaos != nil {
		r := cfg.Chaos.Rates
		for _, rate := range []float64{
			r.Read, r.PartialRead, r.Write, r.PartialWrite, r.Open,
			r.Close, r.Seek, r.Stat, r.Unlink, r.Rename,
		} {
			if rate < 0 || rate > 1 {
				return ErrChaosRateInvalid
			}
		}
	}

	return nil
}
