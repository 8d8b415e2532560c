package marketdata

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/pkg/logger"
	"github.com/siftlabs/sift/pkg/redis"
)

const (
	priceFreshness = 30 * time.Minute

	minPrice        = 1.0
	minDollarVolume = 3_000_000.0
)

// Untradability reasons.
const (
	ReasonMissingData  = "missing_market_data"
	ReasonPennyStock   = "penny_stock"
	ReasonLowLiquidity = "dollar_volume_too_low"
)

// Gateway serves prices and tradability checks from the redis price
// cache, falling back to the latest ingested quote row.
type Gateway struct {
	cache  *redis.Client
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewGateway creates a market data gateway.
func NewGateway(cache *redis.Client, pool *pgxpool.Pool, log *logger.Logger) *Gateway {
	return &Gateway{cache: cache, pool: pool, logger: log}
}

// Price returns the current price for a symbol, or nil when no
// sufficiently fresh quote exists.
func (g *Gateway) Price(ctx context.Context, symbol string) (*float64, error) {
	if symbol == "" || symbol == contracts.MarketSymbol {
		return nil, nil
	}

	if g.cache != nil && g.cache.Enabled() {
		raw, err := g.cache.Redis().Get(ctx, redis.PriceKey(symbol)).Result()
		if err == nil {
			if p, perr := strconv.ParseFloat(raw, 64); perr == nil && p > 0 {
				return &p, nil
			}
		}
	}

	if g.pool == nil {
		return nil, nil
	}

	query := `
		SELECT price
		FROM quotes
		WHERE symbol = $1 AND captured_at > $2
		ORDER BY captured_at DESC
		LIMIT 1
	`

	var price float64
	err := g.pool.QueryRow(ctx, query, symbol, time.Now().Add(-priceFreshness)).Scan(&price)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if price <= 0 {
		return nil, nil
	}
	return &price, nil
}

// Assess checks whether the symbol can realistically be traded right
// now: a known fresh price above penny territory with enough daily
// dollar volume behind it.
func (g *Gateway) Assess(ctx context.Context, symbol string) (*contracts.Tradability, error) {
	out := &contracts.Tradability{
		PrimarySymbol: symbol,
		AsOf:          time.Now().UTC().Format(time.RFC3339),
	}

	price, err := g.Price(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if price == nil {
		out.Reasons = append(out.Reasons, ReasonMissingData)
		return out, nil
	}
	out.Price = price

	if *price < minPrice {
		out.Reasons = append(out.Reasons, ReasonPennyStock)
	}

	dv, err := g.dollarVolume(ctx, symbol, *price)
	if err != nil {
		g.logger.WithError(err).WithField("symbol", symbol).Warn("Dollar volume lookup failed")
	}
	if dv != nil {
		out.DollarVolume = dv
		if *dv < minDollarVolume {
			out.Reasons = append(out.Reasons, ReasonLowLiquidity)
		}
	}

	out.Pass = len(out.Reasons) == 0
	return out, nil
}

// dollarVolume estimates daily traded dollars from the latest volume row.
func (g *Gateway) dollarVolume(ctx context.Context, symbol string, price float64) (*float64, error) {
	if g.pool == nil {
		return nil, nil
	}

	query := `
		SELECT volume
		FROM quotes
		WHERE symbol = $1 AND volume > 0
		ORDER BY captured_at DESC
		LIMIT 1
	`

	var volume float64
	err := g.pool.QueryRow(ctx, query, symbol).Scan(&volume)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dv := volume * price
	return &dv, nil
}
