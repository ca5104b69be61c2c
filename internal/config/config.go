package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"lademeter/internal/logger"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Geocoder  GeocoderConfig  `toml:"geocoder"`
	Document  DocumentConfig  `toml:"document"`
	CarryOver CarryOverConfig `toml:"carry_over"`
	UI        UIConfig        `toml:"ui"`
}

type GeocoderConfig struct {
	Endpoint           string `toml:"endpoint"`
	UserAgent          string `toml:"user_agent"`
	AcceptLanguage     string `toml:"accept_language"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

type DocumentConfig struct {
	Path       string `toml:"path"`
	Sheet      string `toml:"sheet"`
	SiteAnchor string `toml:"site_anchor"`
}

type CarryOverConfig struct {
	Template []string `toml:"template"`
}

type UIConfig struct {
	AccentColor string `toml:"accent_color"`
}

// Timeout returns the per-request geocoder timeout.
func (g GeocoderConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// Default returns the configuration written on first start.
func Default() *Config {
	return &Config{
		Geocoder: GeocoderConfig{
			Endpoint:       "https://nominatim.openstreetmap.org/search",
			UserAgent:      "lademeter-rechner/1.0",
			AcceptLanguage: "de",
			TimeoutSeconds: 30,
		},
		Document: DocumentConfig{
			Path:       "vorlagen/rechnung.xlsx",
			Sheet:      "Rechnung",
			SiteAnchor: "E31",
		},
		CarryOver: CarryOverConfig{
			Template: []string{
				"Lademeter: ${fixed(LoadingMeters, 2)} m",
				"Entfernung: ${fixed(DistanceKm, 1)} km",
				"Preis: ${fixed(Price, 2)} €",
			},
		},
		UI: UIConfig{
			AccentColor: "205",
		},
	}
}

// LoadConfig loads configuration from the specified config file path
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		defaultConfig := Default()
		if err := SaveConfig(configPath, defaultConfig); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}

		logger.Info("Created default config file", "path", configPath)
		return defaultConfig, nil
	}

	var config Config
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	applyDefaults(&config)

	if config.Geocoder.InsecureSkipVerify {
		logger.Warn("TLS certificate verification disabled for geocoder", "endpoint", config.Geocoder.Endpoint)
	}

	logger.Info("Loaded configuration", "path", configPath)
	return &config, nil
}

func applyDefaults(config *Config) {
	def := Default()

	if config.Geocoder.Endpoint == "" {
		config.Geocoder.Endpoint = def.Geocoder.Endpoint
	}
	if config.Geocoder.UserAgent == "" {
		config.Geocoder.UserAgent = def.Geocoder.UserAgent
	}
	if config.Geocoder.AcceptLanguage == "" {
		config.Geocoder.AcceptLanguage = def.Geocoder.AcceptLanguage
	}
	if config.Geocoder.TimeoutSeconds <= 0 {
		config.Geocoder.TimeoutSeconds = def.Geocoder.TimeoutSeconds
	}
	if config.Document.Sheet == "" {
		config.Document.Sheet = def.Document.Sheet
	}
	if config.Document.SiteAnchor == "" {
		config.Document.SiteAnchor = def.Document.SiteAnchor
	}
	if len(config.CarryOver.Template) == 0 {
		config.CarryOver.Template = def.CarryOver.Template
	}
	if config.UI.AccentColor == "" {
		config.UI.AccentColor = def.UI.AccentColor
	}
}

// SaveConfig saves configuration to the specified config file path
func SaveConfig(configPath string, config *Config) error {
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	logger.Info("Saved configuration", "path", configPath)
	return nil
}
