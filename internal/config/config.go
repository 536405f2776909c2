// Package config provides configuration management for craftinstall
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration object
type Config struct {
	Debug bool `toml:"debug"`

	Paths         PathsConfig        `toml:"paths"`
	Java          JavaConfig         `toml:"java"`
	HTTP          HTTPConfig         `toml:"http"`
	Install       InstallConfig      `toml:"install"`
	Sources       SourcesConfig      `toml:"sources"`
	Notifications NotificationConfig `toml:"notifications"`
	Logging       LoggingConfig      `toml:"logging"`
}

// PathsConfig defines core directory locations
type PathsConfig struct {
	Servers string `toml:"servers"`
	Cache   string `toml:"cache"`
	Logs    string `toml:"logs"`
}

// JavaConfig holds runtime defaults used when a server record has no override
type JavaConfig struct {
	Path     string   `toml:"path"`
	PreArgs  []string `toml:"pre_args"`
	PostArgs []string `toml:"post_args"`
}

// HTTPConfig tunes the shared upstream client
type HTTPConfig struct {
	Timeout    int     `toml:"timeout"`
	UserAgent  string  `toml:"user_agent"`
	MaxRetries int     `toml:"max_retries"`
	RetryDelay float64 `toml:"retry_delay"`
	CacheTTL   int     `toml:"cache_ttl"`
}

// InstallConfig contains install pipeline policy
type InstallConfig struct {
	OnHashMismatch string `toml:"on_hash_mismatch"`
	MaxHashRetries int    `toml:"max_hash_retries"`
	StopTimeout    int    `toml:"stop_timeout"`
}

// SourcesConfig lists every upstream endpoint
type SourcesConfig struct {
	MojangManifest     string `toml:"mojang_manifest"`
	FabricMeta         string `toml:"fabric_meta"`
	QuiltMeta          string `toml:"quilt_meta"`
	QuiltInstallerRepo string `toml:"quilt_installer_repo"`
	ForgeMaven         string `toml:"forge_maven"`
	NeoForgeMaven      string `toml:"neoforge_maven"`
	SpigotMaven        string `toml:"spigot_maven"`
	PowerNukkitMaven   string `toml:"powernukkit_maven"`
	PaperAPI           string `toml:"paper_api"`
	BedrockManifest    string `toml:"bedrock_manifest"`
	BedrockDownload    string `toml:"bedrock_download"`
	BuildTools         string `toml:"buildtools"`
}

// NotificationConfig contains webhook and alert settings
type NotificationConfig struct {
	DiscordWebhook       string `toml:"discord_webhook"`
	SuccessNotifications bool   `toml:"success_notifications"`
	ErrorNotifications   bool   `toml:"error_notifications"`
}

// LoggingConfig defines log output levels and formats
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	FileEnabled    bool   `toml:"file_enabled"`
	ConsoleEnabled bool   `toml:"console_enabled"`
}

// DefaultConfig returns a configuration with production-ready defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".local", "share", "craftinstall")

	return &Config{
		Paths: PathsConfig{
			Servers: filepath.Join(homeDir, "minecraft", "servers"),
			Cache:   filepath.Join(dataDir, "cache"),
			Logs:    filepath.Join(dataDir, "logs"),
		},
		Java: JavaConfig{
			Path:     "java",
			PreArgs:  []string{"-Xms2G", "-Xmx4G", "-XX:+UseG1GC"},
			PostArgs: []string{},
		},
		HTTP: HTTPConfig{
			Timeout:    60,
			UserAgent:  "craftinstall/1.0",
			MaxRetries: 3,
			RetryDelay: 1.0,
			CacheTTL:   300,
		},
		Install: InstallConfig{
			OnHashMismatch: "retry",
			MaxHashRetries: 3,
			StopTimeout:    60,
		},
		Sources: SourcesConfig{
			MojangManifest:     "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json",
			FabricMeta:         "https://meta.fabricmc.net/v2",
			QuiltMeta:          "https://meta.quiltmc.org/v3",
			QuiltInstallerRepo: "https://maven.quiltmc.org/repository/release/org/quiltmc/quilt-installer",
			ForgeMaven:         "https://maven.minecraftforge.net/net/minecraftforge/forge",
			NeoForgeMaven:      "https://maven.neoforged.net/releases/net/neoforged/neoforge",
			SpigotMaven:        "https://hub.spigotmc.org/nexus/content/repositories/snapshots/org/spigotmc/spigot-api",
			PowerNukkitMaven:   "https://repo1.maven.org/maven2/org/powernukkit/powernukkit",
			PaperAPI:           "https://fill.papermc.io/v3/projects/paper",
			BedrockManifest:    "https://raw.githubusercontent.com/craftinstall/bedrock-manifest/main/versions.txt",
			BedrockDownload:    "https://www.minecraft.net/bedrockdedicatedserver",
			BuildTools:         "https://hub.spigotmc.org/jenkins/job/BuildTools/lastSuccessfulBuild/artifact/target/BuildTools.jar",
		},
		Notifications: NotificationConfig{
			DiscordWebhook:       "",
			SuccessNotifications: true,
			ErrorNotifications:   true,
		},
		Logging: LoggingConfig{
			Level:          "INFO",
			Format:         "text",
			FileEnabled:    true,
			ConsoleEnabled: true,
		},
	}
}

// LoadConfig loads configuration from a file or fallback paths
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if configPath == "" {
		configPath = findDefaultConfig()
	}
	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, config); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration to a TOML file
func (c *Config) SaveConfig(configPath string) error {
	file, err := os.Create(configPath) //nolint:gosec // config path is user-controlled
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return toml.NewEncoder(file).Encode(c)
}

// Validate ensures settings are within supported bounds
func (c *Config) Validate() error {
	if err := c.validateInstall(); err != nil {
		return err
	}
	if err := c.validateHTTP(); err != nil {
		return err
	}
	return c.validateLogging()
}

func findDefaultConfig() string {
	candidates := []string{"craftinstall.toml"}

	if cfgDir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(cfgDir, "craftinstall", "config.toml"))
	}
	candidates = append(candidates, "/etc/craftinstall/config.toml")

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) validateInstall() error {
	valid := []string{"retry", "ignore", "abort"}
	decision := strings.ToLower(c.Install.OnHashMismatch)
	if !slices.Contains(valid, decision) {
		return fmt.Errorf("unsupported on_hash_mismatch: %s. Must be one of %v", c.Install.OnHashMismatch, valid)
	}
	c.Install.OnHashMismatch = decision

	if c.Install.MaxHashRetries < 0 {
		return fmt.Errorf("max_hash_retries must not be negative")
	}
	if c.Install.StopTimeout <= 0 {
		c.Install.StopTimeout = 60
	}
	return nil
}

func (c *Config) validateHTTP() error {
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %d", c.HTTP.Timeout)
	}
	if c.HTTP.MaxRetries < 0 || c.HTTP.CacheTTL < 0 {
		return fmt.Errorf("http max_retries and cache_ttl must not be negative")
	}
	if strings.TrimSpace(c.HTTP.UserAgent) == "" {
		c.HTTP.UserAgent = "craftinstall/1.0"
	}
	return nil
}

func (c *Config) validateLogging() error {
	validLevels := []string{"DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"}
	level := strings.ToUpper(c.Logging.Level)
	if !slices.Contains(validLevels, level) {
		return fmt.Errorf("invalid log level: %s. Must be one of %v", c.Logging.Level, validLevels)
	}
	c.Logging.Level = level

	validFormats := []string{"json", "text"}
	format := strings.ToLower(c.Logging.Format)
	if !slices.Contains(validFormats, format) {
		return fmt.Errorf("invalid log format: %s. Must be one of %v", c.Logging.Format, validFormats)
	}
	c.Logging.Format = format
	return nil
}
