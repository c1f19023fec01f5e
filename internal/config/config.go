// Package config loads the process configuration from an optional YAML file
// and the environment, with env taking precedence. A .env file in the
// working directory is folded into the environment first, which keeps local
// runs and container deployments on the same variable names.
package config

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/toparuz/marketsync/pkg/errors"
)

// envPrefix namespaces every environment variable, e.g. MARKETSYNC_BILLZ_SECRET_TOKEN.
const envPrefix = "MARKETSYNC"

// Config is the complete process configuration.
type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Billz  Billz  `mapstructure:"billz" yaml:"billz"`
	Yandex Yandex `mapstructure:"yandex" yaml:"yandex"`
	Uzum   Uzum   `mapstructure:"uzum" yaml:"uzum"`
	Mongo  Mongo  `mapstructure:"mongo" yaml:"mongo"`
	Sync   Sync   `mapstructure:"sync" yaml:"sync"`
	Server Server `mapstructure:"server" yaml:"server"`
}

// Billz configures the local POS catalog source.
type Billz struct {
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	AuthURL     string `mapstructure:"auth_url" yaml:"auth_url"`
	SecretToken string `mapstructure:"secret_token" yaml:"secret_token"`

	// Facility is the warehouse tag quantities and prices are scoped to,
	// matched case-insensitively as a substring of the office name.
	Facility string `mapstructure:"facility" yaml:"facility"`
}

// Yandex configures the Yandex Market source and senders.
type Yandex struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	CampaignID string `mapstructure:"campaign_id" yaml:"campaign_id"`
	BusinessID string `mapstructure:"business_id" yaml:"business_id"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	Currency   string `mapstructure:"currency" yaml:"currency"`
}

// CampaignURL returns the campaign-scoped API root.
func (y Yandex) CampaignURL() string {
	return fmt.Sprintf("%s/campaigns/%s", y.BaseURL, y.CampaignID)
}

// BusinessURL returns the business-scoped API root.
func (y Yandex) BusinessURL() string {
	return fmt.Sprintf("%s/businesses/%s", y.BaseURL, y.BusinessID)
}

// Uzum configures the Uzum marketplace source and sender.
type Uzum struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Token   string `mapstructure:"token" yaml:"token"`
	ShopID  int    `mapstructure:"shop_id" yaml:"shop_id"`
}

// Mongo configures the persistence layer. Disabled runs skip run logs and
// unmatched-product persistence.
type Mongo struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	URI      string `mapstructure:"uri" yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

// Sync configures cycle scheduling, diff tolerance and dispatch batching.
type Sync struct {
	// Delay is the pause between the end of one cycle and the start of the
	// next for each pairing.
	Delay time.Duration `mapstructure:"delay" yaml:"delay"`

	// Timeout bounds one full cycle. Zero disables the bound.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	QuantityThreshold float64 `mapstructure:"quantity_threshold" yaml:"quantity_threshold"`
	PriceThreshold    float64 `mapstructure:"price_threshold" yaml:"price_threshold"`

	QuantityBatchSize int `mapstructure:"quantity_batch_size" yaml:"quantity_batch_size"`
	PriceBatchSize    int `mapstructure:"price_batch_size" yaml:"price_batch_size"`
}

// Server configures the inspection HTTP server.
type Server struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// Load reads configuration from marketsync.yaml (working directory or
// /etc/marketsync), the environment, and an optional .env file.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("marketsync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/marketsync")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, &errors.ConfigError{Component: "file", Message: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &errors.ConfigError{Component: "unmarshal", Message: err.Error()}
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("billz.base_url", "https://api-admin.billz.ai")
	v.SetDefault("billz.auth_url", "https://api-admin.billz.ai/v1/auth/login")
	v.SetDefault("billz.facility", "topar.uz")
	v.SetDefault("billz.secret_token", "")

	v.SetDefault("yandex.base_url", "https://api.partner.market.yandex.ru")
	v.SetDefault("yandex.currency", "UZS")
	v.SetDefault("yandex.campaign_id", "")
	v.SetDefault("yandex.business_id", "")
	v.SetDefault("yandex.api_key", "")

	v.SetDefault("uzum.base_url", "https://api-seller.uzum.uz/api/seller-openapi")
	v.SetDefault("uzum.token", "")
	v.SetDefault("uzum.shop_id", 0)

	v.SetDefault("mongo.enabled", true)
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "marketsync")

	v.SetDefault("sync.delay", "15m")
	v.SetDefault("sync.timeout", "10m")
	v.SetDefault("sync.quantity_threshold", 0.0)
	v.SetDefault("sync.price_threshold", 0.0)
	v.SetDefault("sync.quantity_batch_size", 2000)
	v.SetDefault("sync.price_batch_size", 500)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
}

// Validate checks the credentials each enabled integration requires.
func (c *Config) Validate() error {
	if c.Billz.SecretToken == "" {
		return &errors.ConfigError{Component: "billz.secret_token", Message: "required"}
	}
	if c.Yandex.APIKey != "" {
		if c.Yandex.CampaignID == "" {
			return &errors.ConfigError{Component: "yandex.campaign_id", Message: "required when yandex.api_key is set"}
		}
		if c.Yandex.BusinessID == "" {
			return &errors.ConfigError{Component: "yandex.business_id", Message: "required when yandex.api_key is set"}
		}
	}
	if c.Uzum.Token != "" && c.Uzum.ShopID == 0 {
		return &errors.ConfigError{Component: "uzum.shop_id", Message: "required when uzum.token is set"}
	}
	if c.Yandex.APIKey == "" && c.Uzum.Token == "" {
		return &errors.ConfigError{Component: "yandex.api_key", Message: "at least one marketplace credential is required"}
	}
	return nil
}

// Redacted returns the configuration as YAML with credentials masked, for
// the config inspection command.
func (c *Config) Redacted() (string, error) {
	clone := *c
	clone.Billz.SecretToken = mask(clone.Billz.SecretToken)
	clone.Yandex.APIKey = mask(clone.Yandex.APIKey)
	clone.Uzum.Token = mask(clone.Uzum.Token)

	out, err := yaml.Marshal(&clone)
	if err != nil {
		return "", &errors.ConfigError{Component: "marshal", Message: err.Error()}
	}
	return string(out), nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
