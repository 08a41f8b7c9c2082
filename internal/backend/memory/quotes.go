package memory

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/models"
)

// PriceTable is a fixed quote book keyed by upper-case symbol.
type PriceTable struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewPriceTable builds a quote book from configured prices. Non-positive
// prices are skipped.
func NewPriceTable(prices map[string]float64) *PriceTable {
	t := &PriceTable{prices: make(map[string]decimal.Decimal, len(prices))}
	for symbol, p := range prices {
		if p <= 0 {
			continue
		}
		t.prices[models.NormalizeSymbol(symbol)] = decimal.NewFromFloat(p)
	}
	return t
}

// Price returns the current price for symbol.
func (t *PriceTable) Price(symbol string) (decimal.Decimal, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.prices[models.NormalizeSymbol(symbol)]
	return p, ok
}

// Set updates the price for symbol.
func (t *PriceTable) Set(symbol string, price decimal.Decimal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prices[models.NormalizeSymbol(symbol)] = price
}
