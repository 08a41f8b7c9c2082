// Package ledger consolidates a signed transaction ledger into holdings.
//
// This is the backend half of the portfolio contract: a buy moves the cost
// basis to the weighted average of the old position and the new lot, a sell
// leaves it unchanged, and a position whose quantity reaches zero or below is
// closed. The client never runs this arithmetic itself; the offline backend
// and tests do.
package ledger

import (
	"sort"

	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/shopspring/decimal"
)

// Position is an open consolidated position without market valuation.
type Position struct {
	Symbol    string
	Quantity  decimal.Decimal
	CostBasis decimal.Decimal
}

// Apply folds one transaction into a position. The returned bool is false
// when the position is closed by the transaction.
//
// A sell larger than the open quantity closes the position; the excess is
// not carried as a short.
func Apply(p Position, tx models.Transaction) (Position, bool) {
	if tx.Quantity.IsPositive() {
		newQty := p.Quantity.Add(tx.Quantity)
		if p.Quantity.IsPositive() {
			weighted := p.Quantity.Mul(p.CostBasis).Add(tx.Quantity.Mul(tx.Price))
			p.CostBasis = weighted.Div(newQty)
		} else {
			p.CostBasis = tx.Price
		}
		p.Quantity = newQty
	} else {
		p.Quantity = p.Quantity.Add(tx.Quantity)
	}
	if !p.Quantity.IsPositive() {
		return Position{Symbol: p.Symbol}, false
	}
	return p, true
}

// Consolidate replays transactions in order and returns the open positions,
// one per symbol, sorted by symbol.
func Consolidate(txs []models.Transaction) []Position {
	open := make(map[string]Position)
	for _, tx := range txs {
		symbol := models.NormalizeSymbol(tx.Symbol)
		if symbol == "" || tx.Quantity.IsZero() {
			continue
		}
		p, ok := open[symbol]
		if !ok {
			p = Position{Symbol: symbol}
		}
		tx.Symbol = symbol
		next, stillOpen := Apply(p, tx)
		if stillOpen {
			open[symbol] = next
		} else {
			delete(open, symbol)
		}
	}

	positions := make([]Position, 0, len(open))
	for _, p := range open {
		positions = append(positions, p)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	return positions
}

// Remove drops every transaction for symbol, independent of the sign of its
// net quantity.
func Remove(txs []models.Transaction, symbol string) []models.Transaction {
	symbol = models.NormalizeSymbol(symbol)
	kept := txs[:0:0]
	for _, tx := range txs {
		if models.NormalizeSymbol(tx.Symbol) != symbol {
			kept = append(kept, tx)
		}
	}
	return kept
}

// PriceFunc returns the current price for a symbol. ok=false means no quote,
// in which case the position is valued at its cost basis.
type PriceFunc func(symbol string) (decimal.Decimal, bool)

// Value turns positions into derived holdings and their summary.
func Value(positions []Position, price PriceFunc) models.Portfolio {
	holdings := make([]models.Holding, 0, len(positions))
	for _, p := range positions {
		current := p.CostBasis
		if price != nil {
			if q, ok := price(p.Symbol); ok {
				current = q
			}
		}
		holdings = append(holdings, models.Holding{
			Stock:        p.Symbol,
			Quantity:     p.Quantity,
			CostBasis:    p.CostBasis,
			CurrentPrice: current,
		}.Derive())
	}
	return models.Portfolio{
		Holdings: holdings,
		Summary:  models.Summarize(holdings),
	}
}
