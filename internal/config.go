package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/linkgraph/internal/diffusion"
	"github.com/starford/linkgraph/internal/index"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Graph  GraphConfig       `yaml:"graph"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Graph.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the Markdown vault location.
// JournalsDir is relative to Path; pages under it are journals.
type VaultConfig struct {
	Path        string `yaml:"path"`
	JournalsDir string `yaml:"journals_dir"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// GraphConfig controls snapshot builds and analysis defaults.
type GraphConfig struct {
	// Journals includes journal pages as nodes.
	Journals bool `yaml:"journals"`
	// ReloadDebounce is the quiet period after vault changes before a rebuild.
	ReloadDebounce time.Duration `yaml:"reload_debounce"`
	// EventThrottle is the minimum gap between graph.updated events.
	EventThrottle time.Duration `yaml:"event_throttle"`
	CacheSize     int           `yaml:"cache_size"`
	DecayDistance int           `yaml:"decay_distance"`
	// Palette holds the four seed colours as hex strings.
	Palette []string `yaml:"palette"`
}

// Validate validates the graph configuration.
func (c *GraphConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ReloadDebounce, validation.Min(time.Duration(0))),
		validation.Field(&c.EventThrottle, validation.Min(time.Duration(0))),
		validation.Field(&c.CacheSize, validation.Required, validation.Min(1)),
		validation.Field(&c.DecayDistance, validation.Required, validation.Min(1)),
		validation.Field(&c.Palette, validation.Length(4, 4), validation.By(func(any) error {
			if len(c.Palette) == 0 {
				return nil
			}
			_, err := diffusion.ParsePalette(c.Palette...)
			return err
		})),
	)
}

// ColorPalette returns the configured palette, or the default when unset.
func (c *GraphConfig) ColorPalette() diffusion.Palette {
	if len(c.Palette) == 0 {
		return diffusion.DefaultPalette
	}
	p, err := diffusion.ParsePalette(c.Palette...)
	if err != nil {
		return diffusion.DefaultPalette
	}
	return p
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path:        "./vault",
			JournalsDir: "journals",
		},
		SQLite: SQLiteConfig{
			Path: "./linkgraph.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Graph: GraphConfig{
			ReloadDebounce: index.DefaultDebounce,
			EventThrottle:  2 * time.Second,
			CacheSize:      256,
			DecayDistance:  3,
		},
	}
}
