package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// It is built once at startup and passed to every component that needs it.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Credentials CredentialsConfig `toml:"credentials"`
	Client      ClientConfig      `toml:"client"`
}

// ServerConfig contains TCP server settings.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	LogLevel        string `toml:"log_level"`
	DownloadWorkers int    `toml:"download_workers"`
}

// StorageConfig contains on-disk locations for the cache, secrets and downloaded music.
type StorageConfig struct {
	DataLocation        string `toml:"data_location"`
	SecretsLocation     string `toml:"secrets_location"`
	Database            string `toml:"database"`
	YtDlpOutputTemplate string `toml:"yt_dlp_output_template"`
	YtDlpPath           string `toml:"yt_dlp_path"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
	LastFM  LastFMConfig  `toml:"lastfm"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	APIKey    string   `toml:"api_key"`
	Playlists []string `toml:"playlists"`
}

// LastFMConfig contains the last.fm API key used for download locator lookups.
type LastFMConfig struct {
	APIKey string `toml:"api_key"`
}

// ClientConfig contains settings for the terminal client.
type ClientConfig struct {
	Address string `toml:"address"`
	MpvPath string `toml:"mpv_path"`
	MPRIS   bool   `toml:"mpris"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports settings that would make the server unusable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.DownloadWorkers < 0 {
		return fmt.Errorf("%w: server.download_workers must not be negative", ErrInvalidConfig)
	}
	if c.Storage.DataLocation == "" {
		return fmt.Errorf("%w: storage.data_location is empty", ErrInvalidConfig)
	}
	return nil
}

// Addr is the host:port the server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// DatabasePath is the sqlite cache file, defaulting to <data_location>/db.db3.
func (c *Config) DatabasePath() string {
	if c.Storage.Database != "" {
		return c.Storage.Database
	}
	return filepath.Join(c.Storage.DataLocation, "db.db3")
}

// MusicDir is the root folder for downloaded songs.
func (c *Config) MusicDir() string {
	return filepath.Join(c.Storage.DataLocation, "music")
}

// SpotifyTokenPath is the token cache file for the Spotify adapter.
func (c *Config) SpotifyTokenPath() string {
	return filepath.Join(c.Storage.SecretsLocation, "spotify.cache")
}

// EnsureDirs creates the data and secrets directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Storage.DataLocation, c.Storage.SecretsLocation, c.MusicDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
