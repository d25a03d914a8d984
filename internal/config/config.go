// Package config loads and merges contextgen configuration.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (GITHUB_TOKEN, CONTEXTGEN_OUTPUT_DIR, ...)
//  3. Config file (--config, or $XDG_CONFIG_HOME/contextgen/config.yaml)
//  4. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/taigrr/contextgen/internal/pathfilter"
	"github.com/taigrr/contextgen/internal/types"
)

// RelPath is the config file location relative to the XDG config home.
const RelPath = "contextgen/config.yaml"

// Config represents the contextgen configuration.
type Config struct {
	GitHub      GitHubConfig `yaml:"github"`
	Include     []string     `yaml:"include"`
	Exclude     []string     `yaml:"exclude"`
	Output      OutputConfig `yaml:"output"`
	Concurrency int          `yaml:"concurrency"`
	Strict      bool         `yaml:"strict"`
}

// GitHubConfig holds the remote API settings.
type GitHubConfig struct {
	Token  string `yaml:"token,omitempty"`
	APIURL string `yaml:"apiUrl,omitempty"`
	Ref    string `yaml:"ref,omitempty"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// Overrides carries values set on the command line. Zero values are ignored.
type Overrides struct {
	Token       string
	APIURL      string
	Ref         string
	Include     []string
	Exclude     []string
	OutputDir   string
	Concurrency int
	Strict      bool
	// NoDefaultExcludes starts from an empty exclude list instead of the
	// built-in one. File, env and flag excludes still apply.
	NoDefaultExcludes bool
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		GitHub: GitHubConfig{
			APIURL: "https://api.github.com",
		},
		Include: []string{},
		Exclude: []string{"**/.git/**", "**/node_modules/**", ".DS_Store", "Thumbs.db"},
		Output: OutputConfig{
			Directory: "output",
		},
		Concurrency: 8,
	}
}

// Path returns the default config file path, creating its parent directory.
func Path() (string, error) {
	path, err := xdg.ConfigFile(RelPath)
	if err != nil {
		return "", fmt.Errorf("cannot determine config path: %w", err)
	}
	return path, nil
}

// LoadFile loads config from path. With an empty path the XDG config
// directories are searched; a missing default file yields a zero Config.
func LoadFile(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		found, err := xdg.SearchConfigFile(RelPath)
		if err != nil {
			return Config{}, nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Config{}, nil
		}
		return Config{}, &types.ConfigurationError{Field: "config", Err: fmt.Errorf("reading config file: %w", err)}
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &types.ConfigurationError{Field: "config", Err: fmt.Errorf("parsing config file %s: %w", path, err)}
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load builds the effective config by merging defaults <- file <- env <- overrides.
func Load(path string, overrides Overrides) (Config, error) {
	cfg := Default()
	if overrides.NoDefaultExcludes {
		cfg.Exclude = []string{}
	}

	fileCfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg)
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config) {
	if src.GitHub.Token != "" {
		dst.GitHub.Token = src.GitHub.Token
	}
	if src.GitHub.APIURL != "" {
		dst.GitHub.APIURL = src.GitHub.APIURL
	}
	if src.GitHub.Ref != "" {
		dst.GitHub.Ref = src.GitHub.Ref
	}
	// A key present in the file replaces the default list, even when empty.
	if src.Include != nil {
		dst.Include = src.Include
	}
	if src.Exclude != nil {
		dst.Exclude = src.Exclude
	}
	if src.Output.Directory != "" {
		dst.Output.Directory = src.Output.Directory
	}
	if src.Concurrency > 0 {
		dst.Concurrency = src.Concurrency
	}
	dst.Strict = src.Strict || dst.Strict
}

func mergeEnv(cfg *Config) error {
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.GitHub.Token = v
	}
	if v := os.Getenv("GITHUB_API_URL"); v != "" {
		cfg.GitHub.APIURL = v
	}
	if v := os.Getenv("CONTEXTGEN_REF"); v != "" {
		cfg.GitHub.Ref = v
	}
	if v := os.Getenv("CONTEXTGEN_OUTPUT_DIR"); v != "" {
		cfg.Output.Directory = v
	}
	if v, ok := os.LookupEnv("CONTEXTGEN_INCLUDE"); ok {
		cfg.Include = splitList(v)
	}
	if v, ok := os.LookupEnv("CONTEXTGEN_EXCLUDE"); ok {
		cfg.Exclude = splitList(v)
	}
	if v := os.Getenv("CONTEXTGEN_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &types.ConfigurationError{Field: "CONTEXTGEN_CONCURRENCY", Err: fmt.Errorf("must be an integer: %w", err)}
		}
		cfg.Concurrency = n
	}
	if v := os.Getenv("CONTEXTGEN_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &types.ConfigurationError{Field: "CONTEXTGEN_STRICT", Err: err}
		}
		cfg.Strict = b
	}
	return nil
}

func mergeOverrides(cfg *Config, o Overrides) {
	if o.Token != "" {
		cfg.GitHub.Token = o.Token
	}
	if o.APIURL != "" {
		cfg.GitHub.APIURL = o.APIURL
	}
	if o.Ref != "" {
		cfg.GitHub.Ref = o.Ref
	}
	if len(o.Include) > 0 {
		cfg.Include = o.Include
	}
	if len(o.Exclude) > 0 {
		cfg.Exclude = o.Exclude
	}
	if o.OutputDir != "" {
		cfg.Output.Directory = o.OutputDir
	}
	if o.Concurrency > 0 {
		cfg.Concurrency = o.Concurrency
	}
	if o.Strict {
		cfg.Strict = true
	}
}

// splitList splits a comma separated list, dropping blank items.
func splitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// FilterConfig returns the include/exclude lists.
func (c Config) FilterConfig() types.FilterConfig {
	return types.FilterConfig{Include: c.Include, Exclude: c.Exclude}
}

// Validate checks the config and compiles its filter.
func (c Config) Validate() (*pathfilter.PathFilter, error) {
	if c.Concurrency <= 0 {
		return nil, &types.ConfigurationError{Field: "concurrency", Err: fmt.Errorf("must be positive, got %d", c.Concurrency)}
	}
	if strings.TrimSpace(c.Output.Directory) == "" {
		return nil, &types.ConfigurationError{Field: "output.directory", Err: fmt.Errorf("must not be empty")}
	}
	return pathfilter.New(c.FilterConfig())
}

// Redacted returns a copy of c safe to print.
func (c Config) Redacted() Config {
	if c.GitHub.Token != "" {
		c.GitHub.Token = "********"
	}
	return c
}
