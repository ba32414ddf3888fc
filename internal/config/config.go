package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"linkgraph/internal/engine"
	"linkgraph/internal/render"
)

// FileName is the per-project config file looked up in the scan root.
const FileName = ".linkgraph.toml"

type ScanConfig struct {
	DefaultExcludes bool     `toml:"default_excludes"`
	IgnoreFiles     bool     `toml:"ignore_files"`
	IgnoreFileNames []string `toml:"ignore_file_names"`
	Exclude         []string `toml:"exclude"`
	Extensions      []string `toml:"extensions"`
	Jobs            int      `toml:"jobs"`
}

type OutputConfig struct {
	Dir             string `toml:"dir"`
	Name            string `toml:"name"`
	Format          string `toml:"format"`
	IncludeExternal bool   `toml:"include_external"`
	HideIsolated    bool   `toml:"hide_isolated"`
}

type RenderConfig struct {
	Enabled bool   `toml:"enabled"`
	Format  string `toml:"format"`
	Binary  string `toml:"binary"`
	Timeout string `toml:"timeout"`
}

type Config struct {
	Scan   ScanConfig   `toml:"scan"`
	Output OutputConfig `toml:"output"`
	Render RenderConfig `toml:"render"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			DefaultExcludes: true,
			IgnoreFiles:     true,
			Extensions:      []string{".md"},
		},
		Output: OutputConfig{
			Dir:    ".",
			Name:   "markdown_graph",
			Format: string(render.FormatDOT),
		},
		Render: RenderConfig{
			Enabled: true,
			Format:  "svg",
			Timeout: render.DefaultRenderTimeout.String(),
		},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML in '%s': %w", path, err)
	}
	return cfg, nil
}

// LoadForRoot loads explicit when set, otherwise root/.linkgraph.toml when it
// exists, otherwise the defaults.
func LoadForRoot(root, explicit string) (*Config, error) {
	if explicit != "" {
		return Load(explicit)
	}
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to stat config file '%s': %w", path, err)
	}
	return Load(path)
}

// ApplyEnv overrides settings from LINKGRAPH_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LINKGRAPH_DOT_BINARY"); v != "" {
		c.Render.Binary = v
	}
	if v := os.Getenv("LINKGRAPH_RENDER_TIMEOUT"); v != "" {
		c.Render.Timeout = v
	}
	if v := os.Getenv("LINKGRAPH_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
}

// RenderTimeout parses Render.Timeout; empty means the default.
func (c *Config) RenderTimeout() (time.Duration, error) {
	if c.Render.Timeout == "" {
		return render.DefaultRenderTimeout, nil
	}
	d, err := time.ParseDuration(c.Render.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid render timeout %q: %w", c.Render.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid render timeout %q: must be positive", c.Render.Timeout)
	}
	return d, nil
}

// OutputFormat validates Output.Format.
func (c *Config) OutputFormat() (render.Format, error) {
	return render.ParseFormat(c.Output.Format)
}

// EngineOptions converts the scan settings for root.
func (c *Config) EngineOptions(root string, logger *slog.Logger) engine.Options {
	return engine.Options{
		Root:               root,
		UseDefaultExcludes: c.Scan.DefaultExcludes,
		RespectIgnoreFiles: c.Scan.IgnoreFiles,
		IgnoreFileNames:    c.Scan.IgnoreFileNames,
		ExtraPatterns:      c.Scan.Exclude,
		Extensions:         c.Scan.Extensions,
		IncludeExternal:    c.Output.IncludeExternal,
		Jobs:               c.Scan.Jobs,
		Logger:             logger,
	}
}

// RenderOptions converts the output filters.
func (c *Config) RenderOptions() render.Options {
	return render.Options{
		IncludeExternal: c.Output.IncludeExternal,
		HideIsolated:    c.Output.HideIsolated,
	}
}
