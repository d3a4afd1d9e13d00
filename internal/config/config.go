// Package config resolves taskman settings from defaults, TOML files,
// environment variables and CLI flags, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Makepad-fr/taskman/internal/logging"
	"github.com/Makepad-fr/taskman/internal/store/jsonstore"
)

const (
	DefaultLogLevel = "warn"
	DefaultTheme    = "classic"
)

// Themes are the accepted values of Config.Theme.
var Themes = []string{"classic", "neon", "mono"}

// Config holds every tunable setting.
type Config struct {
	DataFile string `toml:"data_file"`
	LogLevel string `toml:"log_level"`
	Theme    string `toml:"theme"`
	Group    bool   `toml:"group"`
}

// Overrides carries values set explicitly on the command line. Nil fields
// were not given.
type Overrides struct {
	ConfigFile *string
	DataFile   *string
	LogLevel   *string
	Theme      *string
	Group      *bool
}

func setDefaults(cfg *Config) {
	cfg.DataFile = jsonstore.DefaultFileName
	cfg.LogLevel = DefaultLogLevel
	cfg.Theme = DefaultTheme
}

// Load resolves the configuration for a process running in workDir.
func Load(workDir string, o Overrides) (*Config, error) {
	cfg := &Config{}

	// 1. Defaults
	setDefaults(cfg)

	// 2. User config file
	if p := findUserConfigFile(); p != "" {
		if err := loadConfigFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", p, err)
		}
	}

	// 3. Project config file, or the one named on the command line
	if o.ConfigFile != nil {
		if err := loadConfigFile(cfg, *o.ConfigFile); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", *o.ConfigFile, err)
		}
	} else if p := findProjectConfigFile(workDir); p != "" {
		if err := loadConfigFile(cfg, p); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", p, err)
		}
	}

	// 4. Environment
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	// 5. Flags
	applyOverrides(cfg, o)

	if err := finalizeConfig(cfg, workDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func findUserConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, "taskman", "config.toml")
	if fileExists(p) {
		return p
	}
	return ""
}

func findProjectConfigFile(workDir string) string {
	for _, name := range []string{"taskman.toml", ".taskman.toml"} {
		p := filepath.Join(workDir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TASKMAN_FILE"); v != "" {
		cfg.DataFile = v
	}
	if v := os.Getenv("TASKMAN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKMAN_THEME"); v != "" {
		cfg.Theme = v
	}
	if v := os.Getenv("TASKMAN_GROUP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKMAN_GROUP: %w", err)
		}
		cfg.Group = b
	}
	return nil
}

func applyOverrides(cfg *Config, o Overrides) {
	if o.DataFile != nil {
		cfg.DataFile = *o.DataFile
	}
	if o.LogLevel != nil {
		cfg.LogLevel = *o.LogLevel
	}
	if o.Theme != nil {
		cfg.Theme = *o.Theme
	}
	if o.Group != nil {
		cfg.Group = *o.Group
	}
}

// finalizeConfig validates values and resolves the data file path.
func finalizeConfig(cfg *Config, workDir string) error {
	var errs []error
	if strings.TrimSpace(cfg.DataFile) == "" {
		errs = append(errs, errors.New("data_file is empty"))
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	cfg.Theme = strings.ToLower(strings.TrimSpace(cfg.Theme))
	if !validTheme(cfg.Theme) {
		errs = append(errs, fmt.Errorf("theme: unknown theme %q (want %s)", cfg.Theme, strings.Join(Themes, ", ")))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	if !filepath.IsAbs(cfg.DataFile) {
		cfg.DataFile = filepath.Join(workDir, cfg.DataFile)
	}
	return nil
}

func validTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}
