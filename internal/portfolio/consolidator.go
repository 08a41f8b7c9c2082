// Package portfolio keeps the client's consolidated holdings for one owner.
//
// The backend is the source of truth for consolidation arithmetic. Every
// successful mutation is followed by a full reload; holdings are never
// patched locally.
package portfolio

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/models"
)

// Consolidator holds the derived holdings of one owner.
type Consolidator struct {
	backend  interfaces.PortfolioBackend
	creds    interfaces.Credentials
	logger   *common.Logger
	readOnly bool

	mu       sync.Mutex
	owner    int64
	seq      uint64
	target   uint64
	loaded   bool
	holdings []models.Holding
}

// New returns a consolidator for the caller's own portfolio.
func New(backend interfaces.PortfolioBackend, creds interfaces.Credentials, logger *common.Logger) *Consolidator {
	return &Consolidator{backend: backend, creds: creds, logger: logger, owner: interfaces.SelfOwner}
}

// NewReadOnly returns a consolidator that only loads. It is retargeted at
// other owners and rejects every mutation.
func NewReadOnly(backend interfaces.PortfolioBackend, creds interfaces.Credentials, logger *common.Logger) *Consolidator {
	c := New(backend, creds, logger)
	c.readOnly = true
	return c
}

// Owner returns the owner currently targeted.
func (c *Consolidator) Owner() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Loaded reports whether a load has completed for the current target.
func (c *Consolidator) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Holdings returns a copy of the current holdings.
func (c *Consolidator) Holdings() []models.Holding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Holding(nil), c.holdings...)
}

// Summary folds the current holdings. It is recomputed on every call.
func (c *Consolidator) Summary() models.PortfolioSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.Summarize(c.holdings)
}

// Buy submits a positive-quantity transaction and reloads.
func (c *Consolidator) Buy(ctx context.Context, symbol string, quantity, price decimal.Decimal) error {
	return c.trade(ctx, "portfolio.buy", symbol, quantity, price, false)
}

// Sell submits a negated-quantity transaction and reloads. Selling at least
// the held quantity removes the holding.
func (c *Consolidator) Sell(ctx context.Context, symbol string, quantity, price decimal.Decimal) error {
	return c.trade(ctx, "portfolio.sell", symbol, quantity, price, true)
}

func (c *Consolidator) trade(ctx context.Context, op, symbol string, quantity, price decimal.Decimal, sell bool) error {
	if c.readOnly {
		return errs.Auth(op, "portfolio is read-only")
	}
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return errs.Validation(op, "stock symbol is required")
	}
	if !quantity.IsPositive() {
		return errs.Validation(op, "quantity must be greater than zero")
	}
	if !price.IsPositive() {
		return errs.Validation(op, "price must be greater than zero")
	}

	tx := models.Transaction{Symbol: symbol, Quantity: quantity, Price: price}
	if sell {
		tx.Quantity = quantity.Neg()
	}
	log := common.FromContext(ctx, c.logger)
	if err := c.backend.ApplyTransaction(ctx, c.creds.Token(), tx); err != nil {
		log.Warn().Str("op", op).Str("symbol", symbol).Str("error", err.Error()).Msg("transaction rejected")
		return err
	}

	log.Info().
		Str("op", op).
		Str("symbol", symbol).
		Str("quantity", tx.Quantity.String()).
		Str("price", price.String()).
		Msg("transaction applied")
	return c.reloadAfter(ctx, op)
}

// Remove deletes every position in symbol and reloads.
func (c *Consolidator) Remove(ctx context.Context, symbol string) error {
	const op = "portfolio.remove"
	if c.readOnly {
		return errs.Auth(op, "portfolio is read-only")
	}
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return errs.Validation(op, "stock symbol is required")
	}

	if err := c.backend.RemoveSymbol(ctx, c.creds.Token(), symbol); err != nil {
		return err
	}
	common.FromContext(ctx, c.logger).Info().Str("symbol", symbol).Msg("symbol removed")
	return c.reloadAfter(ctx, op)
}

func (c *Consolidator) reloadAfter(ctx context.Context, op string) error {
	if err := c.Reload(ctx); err != nil {
		return fmt.Errorf("%s applied but reload failed: %w", op, err)
	}
	return nil
}

// Reload fetches the consolidated view for the current owner. A result that
// arrives after a newer Reload, Retarget or Clear is discarded. On failure
// the previous holdings stay in place.
func (c *Consolidator) Reload(ctx context.Context) error {
	return c.reload(ctx, false, 0)
}

// ReloadTarget is Reload for a target returned by Retarget. When the
// consolidator has been retargeted or cleared since, nothing is requested.
func (c *Consolidator) ReloadTarget(ctx context.Context, target uint64) error {
	return c.reload(ctx, true, target)
}

func (c *Consolidator) reload(ctx context.Context, pinned bool, target uint64) error {
	c.mu.Lock()
	if pinned && target != c.target {
		c.mu.Unlock()
		return nil
	}
	c.seq++
	seq, owner := c.seq, c.owner
	c.mu.Unlock()

	p, err := c.backend.GetPortfolio(ctx, c.creds.Token(), owner)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		common.FromContext(ctx, c.logger).Debug().Int64("owner", owner).Msg("discarding superseded portfolio load")
		return nil
	}
	if err != nil {
		return err
	}
	c.holdings = Normalize(p.Holdings)
	c.loaded = true
	return nil
}

// Retarget points the consolidator at owner, clearing current holdings.
// In-flight loads for the previous owner are discarded. The returned target
// identifies this retarget for ReloadTarget.
func (c *Consolidator) Retarget(owner int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owner = owner
	c.reset()
	return c.target
}

// Clear drops all holdings and invalidates in-flight loads.
func (c *Consolidator) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Consolidator) reset() {
	c.seq++
	c.target++
	c.loaded = false
	c.holdings = nil
}

// Normalize merges duplicate symbols, drops closed rows and recomputes every
// derived field. Order of first appearance is kept.
func Normalize(in []models.Holding) []models.Holding {
	index := make(map[string]int, len(in))
	merged := make([]models.Holding, 0, len(in))

	for _, h := range in {
		h.Stock = models.NormalizeSymbol(h.Stock)
		i, seen := index[h.Stock]
		if !seen {
			index[h.Stock] = len(merged)
			merged = append(merged, h)
			continue
		}
		prev := merged[i]
		total := prev.Quantity.Add(h.Quantity)
		if total.IsPositive() {
			prev.CostBasis = prev.Quantity.Mul(prev.CostBasis).Add(h.Quantity.Mul(h.CostBasis)).Div(total)
		}
		prev.Quantity = total
		if !h.CurrentPrice.IsZero() {
			prev.CurrentPrice = h.CurrentPrice
		}
		merged[i] = prev
	}

	out := merged[:0]
	for _, h := range merged {
		if h.Open() {
			out = append(out, h.Derive())
		}
	}
	return out
}
