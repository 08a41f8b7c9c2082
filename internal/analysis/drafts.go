package analysis

import (
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/errs"
)

// DefaultDraftQuantity is the quantity offered for an entry nobody edited.
var DefaultDraftQuantity = decimal.NewFromInt(1)

// Draft is the ephemeral trade input attached to one log entry.
type Draft struct {
	EntryID  string
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Total    decimal.Decimal
}

// SetQuantity records the quantity typed for entry id.
func (l *Log) SetQuantity(id string, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return errs.Validation("draft", "quantity must be greater than zero")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.find(id); !ok {
		return errs.Validation("draft", "unknown analysis entry %q", id)
	}
	l.drafts[id] = quantity
	return nil
}

// Draft returns the trade input for entry id. Total is quantity times the
// analyzed price.
func (l *Log) Draft(id string) (Draft, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.find(id)
	if !ok {
		return Draft{}, false
	}
	qty, ok := l.drafts[id]
	if !ok {
		qty = DefaultDraftQuantity
	}
	return Draft{
		EntryID:  id,
		Symbol:   entry.Symbol,
		Quantity: qty,
		Price:    entry.Price,
		Total:    qty.Mul(entry.Price),
	}, true
}
