// Package models defines data structures for vire-desk
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Transaction is one signed entry of the backend ledger. A positive quantity
// is a buy, a negative quantity a sell.
type Transaction struct {
	Symbol   string          `json:"stock_symbol"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"purchase_price"`
}

// Holding is the consolidated position for one symbol.
type Holding struct {
	Stock         string          `json:"stock"`
	Quantity      decimal.Decimal `json:"quantity"`
	CostBasis     decimal.Decimal `json:"purchase_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	TotalValue    decimal.Decimal `json:"total_value"`
	ProfitLoss    decimal.Decimal `json:"profit_loss"`
	ProfitLossPct decimal.Decimal `json:"profit_loss_pct"`
}

// Derive recomputes the value and profit/loss fields from quantity, cost
// basis and current price. The returned copy never carries stale figures.
func (h Holding) Derive() Holding {
	h.TotalValue = h.Quantity.Mul(h.CurrentPrice)
	h.ProfitLoss = h.CurrentPrice.Sub(h.CostBasis).Mul(h.Quantity)
	if h.CostBasis.IsZero() {
		h.ProfitLossPct = decimal.Zero
	} else {
		h.ProfitLossPct = h.CurrentPrice.Sub(h.CostBasis).Div(h.CostBasis).Mul(hundred)
	}
	return h
}

// Open reports whether the holding still has a positive quantity.
func (h Holding) Open() bool {
	return h.Quantity.IsPositive()
}

// PortfolioSummary is derived from the holdings of one owner and never stored
// on its own.
type PortfolioSummary struct {
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalProfitLoss decimal.Decimal `json:"total_profit_loss"`
	TotalPositions  int             `json:"total_positions"`
}

// Summarize folds holdings into a summary. Only open holdings count.
func Summarize(holdings []Holding) PortfolioSummary {
	s := PortfolioSummary{
		TotalValue:      decimal.Zero,
		TotalProfitLoss: decimal.Zero,
	}
	for _, h := range holdings {
		if !h.Open() {
			continue
		}
		d := h.Derive()
		s.TotalValue = s.TotalValue.Add(d.TotalValue)
		s.TotalProfitLoss = s.TotalProfitLoss.Add(d.ProfitLoss)
		s.TotalPositions++
	}
	return s
}

// Portfolio is the consolidated view returned by the backend.
type Portfolio struct {
	Holdings []Holding        `json:"portfolio"`
	Summary  PortfolioSummary `json:"summary"`
}
