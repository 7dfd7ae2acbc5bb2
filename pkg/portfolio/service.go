package portfolio

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stellarcompass/compass/pkg/horizon"
	"github.com/stellarcompass/compass/pkg/logger"
	"github.com/stellarcompass/compass/pkg/metrics"
	"github.com/stellarcompass/compass/pkg/models"
	"github.com/stellarcompass/compass/pkg/prices"
	"github.com/stellarcompass/compass/pkg/redisclient"
	"go.uber.org/zap"
)

const snapshotPrefix = "portfolio:snapshot:"

// ChainClient is the slice of the Horizon client this service needs.
type ChainClient interface {
	GetAccount(ctx context.Context, address string) (*horizon.Account, error)
	LastActivity(ctx context.Context, address string) (time.Time, error)
}

// Service assembles valued portfolios from Horizon data.
type Service struct {
	chain         ChainClient
	oracle        *prices.Oracle
	rdb           *redisclient.Client
	idleThreshold time.Duration
	snapshotTTL   time.Duration
}

func NewService(chain ChainClient, oracle *prices.Oracle, rdb *redisclient.Client, idleThresholdDays int, snapshotTTL time.Duration) *Service {
	return &Service{
		chain:         chain,
		oracle:        oracle,
		rdb:           rdb,
		idleThreshold: time.Duration(idleThresholdDays) * 24 * time.Hour,
		snapshotTTL:   snapshotTTL,
	}
}

// Fetch recomputes the portfolio for an address from Horizon and caches the
// snapshot. Every entity here is derived per request; the cache only absorbs
// dashboard refresh bursts.
func (s *Service) Fetch(ctx context.Context, address string) (models.Portfolio, error) {
	start := time.Now()
	defer metrics.PortfolioLatency.Observe(time.Since(start).Seconds())

	acct, err := s.chain.GetAccount(ctx, address)
	if err != nil {
		metrics.PortfolioErrors.Inc()
		return models.Portfolio{}, fmt.Errorf("account fetch: %w", err)
	}

	// One activity probe per account: Stellar transactions are account
	// scoped, not asset scoped
	lastActive, err := s.chain.LastActivity(ctx, address)
	if err != nil {
		// Idle classification degrades, valuation still works
		logger.Log.Warn("last activity probe failed", zap.String("address", address), zap.Error(err))
		lastActive = time.Now()
	}
	accountIdle := lastActive.IsZero() || time.Since(lastActive) >= s.idleThreshold

	// Both slices start non-nil so the JSON renders arrays, never null
	p := models.Portfolio{
		PublicKey:  address,
		Sequence:   acct.Sequence,
		FetchedAt:  time.Now().UnixMilli(),
		Assets:     []models.AssetBalance{},
		IdleAssets: []models.AssetBalance{},
	}

	total := decimal.Zero
	for _, b := range acct.Balances {
		code := b.AssetCode
		if b.AssetType == "native" {
			code = "XLM"
		}
		amount, perr := decimal.NewFromString(b.Balance)
		if perr != nil {
			logger.Log.Warn("unparseable balance from horizon",
				zap.String("address", address), zap.String("asset", code), zap.String("balance", b.Balance))
			continue
		}

		value := s.oracle.Price(ctx, code).Mul(amount)
		total = total.Add(value)

		asset := models.AssetBalance{
			Asset:     code,
			AssetType: b.AssetType,
			Balance:   amount,
			Value:     value,
		}
		p.Assets = append(p.Assets, asset)

		if accountIdle && amount.IsPositive() {
			p.IdleAssets = append(p.IdleAssets, asset)
		}
	}
	p.TotalValue = total

	// Largest holdings first
	sort.Slice(p.Assets, func(i, j int) bool {
		return p.Assets[i].Value.GreaterThan(p.Assets[j].Value)
	})

	metrics.PortfolioFetches.Inc()
	s.cache(ctx, p)
	return p, nil
}

// Snapshot returns the cached portfolio if one is fresh enough, falling back
// to a full Fetch.
func (s *Service) Snapshot(ctx context.Context, address string) (models.Portfolio, error) {
	if s.rdb != nil {
		val, err := s.rdb.Client().Get(ctx, snapshotPrefix+address).Result()
		if err == nil {
			if p, perr := models.PortfolioFromJSON(val); perr == nil {
				return p, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("snapshot read failed", zap.String("address", address), zap.Error(err))
		}
	}
	return s.Fetch(ctx, address)
}

// IdleValue sums the USD value of the idle subset.
func IdleValue(p models.Portfolio) decimal.Decimal {
	total := decimal.Zero
	for _, a := range p.IdleAssets {
		total = total.Add(a.Value)
	}
	return total
}

func (s *Service) cache(ctx context.Context, p models.Portfolio) {
	if s.rdb == nil {
		return
	}
	payload, err := p.ToJSON()
	if err != nil {
		logger.Log.Error("snapshot marshal failed", zap.Error(err))
		return
	}
	if err := s.rdb.SetEx(ctx, snapshotPrefix+p.PublicKey, payload, s.snapshotTTL); err != nil {
		logger.Log.Warn("snapshot write failed", zap.String("address", p.PublicKey), zap.Error(err))
	}
}
