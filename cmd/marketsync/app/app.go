// Package app wires configuration, logging, the store, the marketplace
// clients and the scheduler into the marketsync CLI.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/toparuz/marketsync/internal/config"
	"github.com/toparuz/marketsync/internal/sources/billz"
	"github.com/toparuz/marketsync/internal/sources/uzum"
	"github.com/toparuz/marketsync/internal/sources/yandex"
	"github.com/toparuz/marketsync/internal/store"
	"github.com/toparuz/marketsync/internal/sync"
	"github.com/toparuz/marketsync/pkg/diff"
	"github.com/toparuz/marketsync/pkg/dispatch"
	"github.com/toparuz/marketsync/pkg/logging"
	"github.com/toparuz/marketsync/pkg/scheduler"
)

// App holds everything a command needs after wiring.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    *store.Mongo // nil when persistence is disabled
	Local    *scheduler.SharedCatalog
	Pairings []*sync.Pairing
}

// newApp loads configuration and wires the full pipeline. The store
// connection is the only side effect; everything else is construction.
func newApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := logging.Default().Level(level)
	logging.SetDefault(logger)

	a := &App{Config: cfg, Logger: logger}

	if cfg.Mongo.Enabled {
		st, err := store.NewMongo(ctx, store.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		a.Store = st
	}

	a.Local = scheduler.NewSharedCatalog(billz.New(billz.Config{
		BaseURL:     cfg.Billz.BaseURL,
		AuthURL:     cfg.Billz.AuthURL,
		SecretToken: cfg.Billz.SecretToken,
		Facility:    cfg.Billz.Facility,
	}))

	thresholds := diff.Thresholds{
		Quantity: cfg.Sync.QuantityThreshold,
		Price:    cfg.Sync.PriceThreshold,
	}

	if cfg.Yandex.APIKey != "" {
		yx := yandex.New(yandex.Config{
			CampaignURL: cfg.Yandex.CampaignURL(),
			BusinessURL: cfg.Yandex.BusinessURL(),
			APIKey:      cfg.Yandex.APIKey,
			Currency:    cfg.Yandex.Currency,
		})
		p := &sync.Pairing{
			Name:   "billz-yandex",
			Local:  a.Local,
			Remote: yx,
			Quantity: dispatch.New(yx.StocksSender(), dispatch.Options{
				BatchSize: cfg.Sync.QuantityBatchSize,
			}),
			Price: dispatch.New(yx.PricesSender(), dispatch.Options{
				BatchSize:       cfg.Sync.PriceBatchSize,
				RequirePositive: true,
			}),
			Thresholds: thresholds,
		}
		a.Pairings = append(a.Pairings, p)
	}

	if cfg.Uzum.Token != "" {
		uz := uzum.New(uzum.Config{
			BaseURL: cfg.Uzum.BaseURL,
			Token:   cfg.Uzum.Token,
			ShopID:  cfg.Uzum.ShopID,
		})
		p := &sync.Pairing{
			Name:   "billz-uzum",
			Local:  a.Local,
			Remote: uz,
			Quantity: dispatch.New(uz.StockSender(), dispatch.Options{
				BatchSize: cfg.Sync.QuantityBatchSize,
			}),
			// Uzum exposes no price update API; price dispatch stays off.
			Thresholds: thresholds,
		}
		a.Pairings = append(a.Pairings, p)
	}

	if a.Store != nil {
		for _, p := range a.Pairings {
			p.Store = a.Store
		}
	}

	if len(a.Pairings) == 0 {
		return nil, fmt.Errorf("no marketplace pairings configured")
	}
	return a, nil
}

// Close releases held resources.
func (a *App) Close(ctx context.Context) {
	if a.Store != nil {
		if err := a.Store.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Store close failed")
		}
	}
}
