package core

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/windock/windock/internal/dock"
)

const (
	BaseDirName    = ".config/windock"
	ConfigFileName = "config.hcl"
	PidFileName    = "daemon.pid"
	SocketName     = "daemon.sock"
	DatabaseName   = "windock.db"
)

// Config is the global configuration instance
var Config *Configuration

// Configuration represents the complete windock configuration
type Configuration struct {
	ConfigPath string // Directory containing config files
	LogLevel   string // Log level: "debug", "info", "warn" or "error"
	Layout     LayoutConfig
	Locate     LocateConfig
	Embed      EmbedConfig
	Watchdog   WatchdogConfig
	Catalog    CatalogConfig
}

// LayoutConfig describes the host chrome that embedded windows must not cover.
type LayoutConfig struct {
	SidebarWidth int // Width of the launcher sidebar reserved on the left
	HeaderHeight int // Height of the host header bar
	TabBarHeight int // Height of the tab strip below the header
}

// LocateConfig tunes the search for a freshly launched application's window.
type LocateConfig struct {
	Deadline           time.Duration // Give up locating after this long
	PollInterval       time.Duration // Delay between enumeration passes
	StabilizationDelay time.Duration // Settle time between locating and embedding
	ClassBlacklist     []string      // Extra window classes to ignore
}

// EmbedConfig tunes the post-reparent verification burst.
type EmbedConfig struct {
	VerifyChecks   int
	VerifyInterval time.Duration
}

// WatchdogConfig tunes the dead-window sweep.
type WatchdogConfig struct {
	Interval time.Duration
}

// CatalogConfig tunes installed-application discovery.
type CatalogConfig struct {
	Roots    []string // Extra directories to scan for executables
	MaxDepth int      // Directory walk depth below each root
}

// HCL parsing structs

type hclConfig struct {
	LogLevel string       `hcl:"log_level,optional"`
	Layout   *hclLayout   `hcl:"layout,block"`
	Locate   *hclLocate   `hcl:"locate,block"`
	Embed    *hclEmbed    `hcl:"embed,block"`
	Watchdog *hclWatchdog `hcl:"watchdog,block"`
	Catalog  *hclCatalog  `hcl:"catalog,block"`
}

type hclLayout struct {
	SidebarWidth *int `hcl:"sidebar_width,optional"`
	HeaderHeight *int `hcl:"header_height,optional"`
	TabBarHeight *int `hcl:"tab_bar_height,optional"`
}

type hclLocate struct {
	Deadline           string   `hcl:"deadline,optional"`
	PollInterval       string   `hcl:"poll_interval,optional"`
	StabilizationDelay string   `hcl:"stabilization_delay,optional"`
	ClassBlacklist     []string `hcl:"class_blacklist,optional"`
}

type hclEmbed struct {
	VerifyChecks   *int   `hcl:"verify_checks,optional"`
	VerifyInterval string `hcl:"verify_interval,optional"`
}

type hclWatchdog struct {
	Interval string `hcl:"interval,optional"`
}

type hclCatalog struct {
	Roots    []string `hcl:"roots,optional"`
	MaxDepth *int     `hcl:"max_depth,optional"`
}

// LoadConfig loads the HCL configuration file and returns a Configuration struct
func LoadConfig(filename string) (*Configuration, error) {
	var hclCfg hclConfig

	err := hclsimple.DecodeFile(filename, nil, &hclCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HCL config: %w", err)
	}

	cfg := GetDefaultConfig()
	cfg.ConfigPath = filepath.Dir(filename)

	if hclCfg.LogLevel != "" {
		switch hclCfg.LogLevel {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = hclCfg.LogLevel
		default:
			return nil, fmt.Errorf("invalid log_level %q", hclCfg.LogLevel)
		}
	}

	if hclCfg.Layout != nil {
		if v := hclCfg.Layout.SidebarWidth; v != nil {
			if *v < 0 {
				return nil, fmt.Errorf("layout.sidebar_width must not be negative")
			}
			cfg.Layout.SidebarWidth = *v
		}
		if v := hclCfg.Layout.HeaderHeight; v != nil {
			if *v < 0 {
				return nil, fmt.Errorf("layout.header_height must not be negative")
			}
			cfg.Layout.HeaderHeight = *v
		}
		if v := hclCfg.Layout.TabBarHeight; v != nil {
			if *v < 0 {
				return nil, fmt.Errorf("layout.tab_bar_height must not be negative")
			}
			cfg.Layout.TabBarHeight = *v
		}
	}

	if hclCfg.Locate != nil {
		if cfg.Locate.Deadline, err = parseDuration("locate.deadline",
			hclCfg.Locate.Deadline, cfg.Locate.Deadline); err != nil {
			return nil, err
		}
		if cfg.Locate.PollInterval, err = parseDuration("locate.poll_interval",
			hclCfg.Locate.PollInterval, cfg.Locate.PollInterval); err != nil {
			return nil, err
		}
		if cfg.Locate.StabilizationDelay, err = parseDuration("locate.stabilization_delay",
			hclCfg.Locate.StabilizationDelay, cfg.Locate.StabilizationDelay); err != nil {
			return nil, err
		}
		cfg.Locate.ClassBlacklist = hclCfg.Locate.ClassBlacklist
	}

	if hclCfg.Embed != nil {
		if v := hclCfg.Embed.VerifyChecks; v != nil {
			if *v < 0 {
				return nil, fmt.Errorf("embed.verify_checks must not be negative")
			}
			cfg.Embed.VerifyChecks = *v
		}
		if cfg.Embed.VerifyInterval, err = parseDuration("embed.verify_interval",
			hclCfg.Embed.VerifyInterval, cfg.Embed.VerifyInterval); err != nil {
			return nil, err
		}
	}

	if hclCfg.Watchdog != nil {
		if cfg.Watchdog.Interval, err = parseDuration("watchdog.interval",
			hclCfg.Watchdog.Interval, cfg.Watchdog.Interval); err != nil {
			return nil, err
		}
	}

	if hclCfg.Catalog != nil {
		cfg.Catalog.Roots = hclCfg.Catalog.Roots
		if v := hclCfg.Catalog.MaxDepth; v != nil {
			if *v < 1 {
				return nil, fmt.Errorf("catalog.max_depth must be at least 1")
			}
			cfg.Catalog.MaxDepth = *v
		}
	}

	return cfg, nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", field, value)
	}
	return d, nil
}

// GetDefaultConfig returns a Configuration with default values
func GetDefaultConfig() *Configuration {
	return &Configuration{
		LogLevel: "info",
		Layout: LayoutConfig{
			SidebarWidth: 300,
			HeaderHeight: 50,
			TabBarHeight: 36,
		},
		Locate: LocateConfig{
			Deadline:           30 * time.Second,
			PollInterval:       500 * time.Millisecond,
			StabilizationDelay: time.Second,
		},
		Embed: EmbedConfig{
			VerifyChecks:   3,
			VerifyInterval: 100 * time.Millisecond,
		},
		Watchdog: WatchdogConfig{
			Interval: 5 * time.Second,
		},
		Catalog: CatalogConfig{
			MaxDepth: 2,
		},
	}
}

// DockConfig converts the configuration into the embedding engine's knobs.
func (c *Configuration) DockConfig() dock.Config {
	return dock.Config{
		Insets: dock.Insets{
			Sidebar: c.Layout.SidebarWidth,
			Header:  c.Layout.HeaderHeight,
			TabBar:  c.Layout.TabBarHeight,
		},
		LocateDeadline: c.Locate.Deadline,
		LocateInterval: c.Locate.PollInterval,
		StabilizeDelay: c.Locate.StabilizationDelay,
		VerifyChecks:   c.Embed.VerifyChecks,
		VerifyInterval: c.Embed.VerifyInterval,
		SweepInterval:  c.Watchdog.Interval,
		ClassBlacklist: c.Locate.ClassBlacklist,
	}
}

// SlogLevel maps the configured log level onto slog.
func (c *Configuration) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GetSocketPath returns the daemon control socket path.
func GetSocketPath() string {
	return filepath.Join(Config.ConfigPath, SocketName)
}

// GetPIDFilePath returns the daemon PID file path.
func GetPIDFilePath() string {
	return filepath.Join(Config.ConfigPath, PidFileName)
}

// GetDatabasePath returns the event database path.
func GetDatabasePath() string {
	return filepath.Join(Config.ConfigPath, DatabaseName)
}

// GetConfigFilePath returns the config file path.
func GetConfigFilePath() string {
	return filepath.Join(Config.ConfigPath, ConfigFileName)
}

// DefaultConfigPath returns the per-user configuration directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return BaseDirName
	}
	return filepath.Join(home, BaseDirName)
}

// ConfigExists checks if a config file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return err == nil
}

const defaultConfigHCL = `# windock configuration

# log_level = "info"

# layout {
#   sidebar_width  = 300
#   header_height  = 50
#   tab_bar_height = 36
# }

# locate {
#   deadline            = "30s"
#   poll_interval       = "500ms"
#   stabilization_delay = "1s"
#   class_blacklist     = []
# }

# embed {
#   verify_checks   = 3
#   verify_interval = "100ms"
# }

# watchdog {
#   interval = "5s"
# }

# catalog {
#   roots     = []
#   max_depth = 2
# }
`

// EnsureConfig creates the config directory and a commented default config
// file when none exists yet, and loads whatever ends up on disk.
func EnsureConfig(configPath string) (*Configuration, error) {
	if err := os.MkdirAll(configPath, 0o755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	file := filepath.Join(configPath, ConfigFileName)
	if !ConfigExists(file) {
		if err := os.WriteFile(file, []byte(defaultConfigHCL), 0o644); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}
	cfg, err := LoadConfig(file)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = configPath
	return cfg, nil
}
