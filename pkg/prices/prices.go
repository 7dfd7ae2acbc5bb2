package prices

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stellarcompass/compass/pkg/logger"
	"github.com/stellarcompass/compass/pkg/redisclient"
	"go.uber.org/zap"
)

// defaults is the static USD price table. Overrides in Redis win, so an
// external price feed can be layered on without touching this package.
var defaults = map[string]decimal.Decimal{
	"XLM":  decimal.RequireFromString("0.12"),
	"USDC": decimal.RequireFromString("1.00"),
	"USDT": decimal.RequireFromString("1.00"),
	"AQUA": decimal.RequireFromString("0.0015"),
	"yXLM": decimal.RequireFromString("0.12"),
	"BTC":  decimal.RequireFromString("45000.00"),
	"ETH":  decimal.RequireFromString("2500.00"),
}

const keyPrefix = "prices:"

// Oracle resolves asset codes to USD prices. Assets without a known price
// value to zero rather than guessing.
type Oracle struct {
	rdb *redisclient.Client
}

func New(rdb *redisclient.Client) *Oracle {
	return &Oracle{rdb: rdb}
}

// Price returns the USD price for an asset code.
func (o *Oracle) Price(ctx context.Context, assetCode string) decimal.Decimal {
	if o.rdb != nil {
		val, err := o.rdb.Client().Get(ctx, keyPrefix+assetCode).Result()
		if err == nil {
			if p, perr := decimal.NewFromString(val); perr == nil {
				return p
			}
			logger.Log.Warn("malformed cached price", zap.String("asset", assetCode), zap.String("value", val))
		} else if err != redis.Nil {
			logger.Log.Warn("price cache read failed", zap.String("asset", assetCode), zap.Error(err))
		}
	}

	if p, ok := defaults[assetCode]; ok {
		return p
	}
	return decimal.Zero
}

// SetOverride caches a price with a TTL, shadowing the static table.
func (o *Oracle) SetOverride(ctx context.Context, assetCode string, price decimal.Decimal, ttl time.Duration) error {
	return o.rdb.SetEx(ctx, keyPrefix+assetCode, price.String(), ttl)
}

// Known returns the asset codes the oracle has default prices for. Used by
// the price-movement agent as its watch list.
func Known() []string {
	codes := make([]string, 0, len(defaults))
	for code := range defaults {
		codes = append(codes, code)
	}
	return codes
}
