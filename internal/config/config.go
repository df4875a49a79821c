package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	DataDir      string        `yaml:"data_dir"`
	RegistryFile string        `yaml:"registry_file"`
	CatalogFile  string        `yaml:"catalog_file"`
	BannersDir   string        `yaml:"banners_dir"`
	IconsDir     string        `yaml:"icons_dir"`
	Store        StoreConfig   `yaml:"store"`
	Steam        SteamConfig   `yaml:"steam"`
	Logging      LoggingConfig `yaml:"logging"`
	Server       ServerConfig  `yaml:"server"`
}

// StoreConfig selects the registry persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "json" or "sqlite"
	Path   string `yaml:"path"`   // sqlite database file
}

// SteamConfig holds catalog service endpoints and fetch behavior.
type SteamConfig struct {
	CatalogURL     string        `yaml:"catalog_url"`
	StoreURL       string        `yaml:"store_url"`
	APIURL         string        `yaml:"api_url"`
	CDNURL         string        `yaml:"cdn_url"`
	Locale         string        `yaml:"locale"`
	UserAgent      string        `yaml:"user_agent"`
	CatalogTimeout time.Duration `yaml:"catalog_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MatchCutoff    float64       `yaml:"match_cutoff"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`
}

// ServerConfig holds settings for the local HTTP API.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	defaultLocale    = "ru"
)

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		RegistryFile: "games.json",
		CatalogFile:  "steam_app_list.json",
		BannersDir:   "game_banners",
		IconsDir:     "game_icons",
		Store: StoreConfig{
			Driver: "json",
			Path:   "games.db",
		},
		Steam: SteamConfig{
			CatalogURL:     "https://api.steampowered.com/ISteamApps/GetAppList/v2/",
			StoreURL:       "https://store.steampowered.com",
			APIURL:         "https://store.steampowered.com/api",
			CDNURL:         "https://cdn.akamai.steamstatic.com/steam/apps",
			Locale:         defaultLocale,
			UserAgent:      defaultUserAgent,
			CatalogTimeout: 15 * time.Second,
			RequestTimeout: 10 * time.Second,
			MatchCutoff:    0.6,
		},
		Logging: LoggingConfig{
			Format: "text",
			Level:  "info",
		},
		Server: ServerConfig{
			Addr:          "127.0.0.1:8765",
			SweepInterval: 10 * time.Minute,
		},
	}
}

// configPaths returns the list of paths to search for config file.
func configPaths() []string {
	paths := []string{
		".librelauncher.yaml",
		".librelauncher.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "librelauncher", "config.yaml"),
			filepath.Join(home, ".config", "librelauncher", "config.yml"),
			filepath.Join(home, ".librelauncher.yaml"),
		)
	}

	return paths
}

// Load loads configuration from file or returns defaults.
// Priority: env LIBRELAUNCHER_CONFIG > search paths > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if envPath := os.Getenv("LIBRELAUNCHER_CONFIG"); envPath != "" {
		if err := cfg.loadFromFile(envPath); err != nil {
			return nil, err
		}
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, err
			}
			break
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadPath loads configuration from path, falling back to Load when path is
// empty. Environment overrides still apply.
func LoadPath(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	cfg := DefaultConfig()
	if err := cfg.loadFromFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from env or fixed search list
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("LIBRELAUNCHER_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if locale := os.Getenv("LIBRELAUNCHER_LOCALE"); locale != "" {
		c.Steam.Locale = locale
	}
	if driver := os.Getenv("LIBRELAUNCHER_STORE"); driver != "" {
		c.Store.Driver = driver
	}
}

// GetDataDir returns the directory all relative paths are resolved against.
func (c *Config) GetDataDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".librelauncher")
	}
	return ".librelauncher"
}

// RegistryPath returns the registry file path.
func (c *Config) RegistryPath() string {
	return c.resolve(c.RegistryFile, "games.json")
}

// CatalogPath returns the catalog snapshot path.
func (c *Config) CatalogPath() string {
	return c.resolve(c.CatalogFile, "steam_app_list.json")
}

// BannersPath returns the banner cache directory.
func (c *Config) BannersPath() string {
	return c.resolve(c.BannersDir, "game_banners")
}

// IconsPath returns the icon cache directory.
func (c *Config) IconsPath() string {
	return c.resolve(c.IconsDir, "game_icons")
}

// StorePath returns the sqlite database path.
func (c *Config) StorePath() string {
	return c.resolve(c.Store.Path, "games.db")
}

// GetMatchCutoff returns the fuzzy match cutoff, applying defaults.
func (c *Config) GetMatchCutoff() float64 {
	if c.Steam.MatchCutoff > 0 && c.Steam.MatchCutoff <= 1 {
		return c.Steam.MatchCutoff
	}
	return 0.6
}

func (c *Config) resolve(p, fallback string) string {
	if p == "" {
		p = fallback
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.GetDataDir(), p)
}
