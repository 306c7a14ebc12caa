package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Custody  CustodyConfig  `mapstructure:"custody"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Site     SiteConfig     `mapstructure:"site"`
	Gallery  GalleryConfig  `mapstructure:"gallery"`
	Treasury TreasuryConfig `mapstructure:"treasury"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the host:port the API binds to.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// CustodyConfig configures the wallet custody API client.
type CustodyConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Network string        `mapstructure:"network"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ChainConfig configures the chain indexer client used for payment
// verification.
type ChainConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SiteConfig configures where published pages land.
type SiteConfig struct {
	Root string `mapstructure:"root"`
}

// GalleryConfig describes the wallet and contract call used to deliver a
// sold piece.
type GalleryConfig struct {
	Handle      string `mapstructure:"handle"`
	ContractRef string `mapstructure:"contract_ref"`
	Method      string `mapstructure:"method"`
}

// TreasuryConfig configures the optional starter funding of new agent
// wallets. An empty handle disables funding.
type TreasuryConfig struct {
	Handle     string `mapstructure:"handle"`
	FundAmount int64  `mapstructure:"fund_amount"`
}

// AuthConfig configures token signing.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the configuration file at path and overlays environment
// variables (GALLERYFLOW_DATABASE_URL overrides database.url, and so on).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("galleryflow")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("custody.timeout", "10s")
	v.SetDefault("custody.network", "base-sepolia")
	v.SetDefault("chain.timeout", "10s")
	v.SetDefault("site.root", "./public")
	v.SetDefault("gallery.method", "transfer")
	v.SetDefault("log.level", "info")
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("config: database.url is required")
	}
	if c.Custody.BaseURL == "" {
		return fmt.Errorf("config: custody.base_url is required")
	}
	if c.Chain.BaseURL == "" {
		return fmt.Errorf("config: chain.base_url is required")
	}
	if c.Gallery.Handle == "" {
		return fmt.Errorf("config: gallery.handle is required")
	}
	return nil
}
