package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toparuz/marketsync/pkg/errors"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "topar.uz", cfg.Billz.Facility)
	assert.Equal(t, "UZS", cfg.Yandex.Currency)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Delay)
	assert.Equal(t, 2000, cfg.Sync.QuantityBatchSize)
	assert.Equal(t, 500, cfg.Sync.PriceBatchSize)
	assert.Zero(t, cfg.Sync.QuantityThreshold)
	assert.True(t, cfg.Mongo.Enabled)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("MARKETSYNC_BILLZ_SECRET_TOKEN", "from-env")
	t.Setenv("MARKETSYNC_YANDEX_CURRENCY", "RUR")
	t.Setenv("MARKETSYNC_SYNC_DELAY", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Billz.SecretToken)
	assert.Equal(t, "RUR", cfg.Yandex.Currency)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Delay)
}

func TestYandexURLs(t *testing.T) {
	y := Yandex{BaseURL: "https://api.partner.market.yandex.ru", CampaignID: "111", BusinessID: "222"}
	assert.Equal(t, "https://api.partner.market.yandex.ru/campaigns/111", y.CampaignURL())
	assert.Equal(t, "https://api.partner.market.yandex.ru/businesses/222", y.BusinessURL())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Billz:  Billz{SecretToken: "s"},
			Yandex: Yandex{APIKey: "k", CampaignID: "111", BusinessID: "222"},
		}
	}

	t.Run("valid yandex-only config", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("valid uzum-only config", func(t *testing.T) {
		cfg := &Config{
			Billz: Billz{SecretToken: "s"},
			Uzum:  Uzum{Token: "t", ShopID: 42},
		}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing billz secret", func(t *testing.T) {
		cfg := valid()
		cfg.Billz.SecretToken = ""
		assertConfigError(t, cfg.Validate(), "billz.secret_token")
	})

	t.Run("yandex key without campaign", func(t *testing.T) {
		cfg := valid()
		cfg.Yandex.CampaignID = ""
		assertConfigError(t, cfg.Validate(), "yandex.campaign_id")
	})

	t.Run("uzum token without shop id", func(t *testing.T) {
		cfg := valid()
		cfg.Uzum.Token = "t"
		assertConfigError(t, cfg.Validate(), "uzum.shop_id")
	})

	t.Run("no marketplace at all", func(t *testing.T) {
		cfg := &Config{Billz: Billz{SecretToken: "s"}}
		assert.Error(t, cfg.Validate())
	})
}

func assertConfigError(t *testing.T, err error, component string) {
	t.Helper()
	var cfgErr *errors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, component, cfgErr.Component)
}

func TestRedacted(t *testing.T) {
	cfg := &Config{
		Billz:  Billz{SecretToken: "super-secret-token"},
		Yandex: Yandex{APIKey: "key-12345"},
		Uzum:   Uzum{Token: "abc"},
	}

	out, err := cfg.Redacted()
	require.NoError(t, err)

	assert.NotContains(t, out, "super-secret-token")
	assert.NotContains(t, out, "key-12345")
	assert.Contains(t, out, "su****en")
	assert.Contains(t, out, "****")
}
