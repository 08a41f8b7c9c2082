// Package analysis holds the session-scoped analysis log, the per-entry trade
// drafts and the report history list.
package analysis

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/models"
)

var (
	// ErrInFlight rejects an analyze issued while another is outstanding.
	ErrInFlight = errors.New("an analysis is already in progress")
	// ErrDiscarded is returned to an analyze whose session was reset before
	// the backend answered.
	ErrDiscarded = errors.New("analysis discarded: session was reset")
)

// Log is the append-only, in-memory record of analyses for one session.
// Entries are never mutated or removed until Reset.
type Log struct {
	backend  interfaces.AnalysisBackend
	creds    interfaces.Credentials
	question string
	logger   *common.Logger

	mu       sync.Mutex
	entries  []models.AnalysisResult
	drafts   map[string]decimal.Decimal
	inFlight string
	epoch    uint64
}

// NewLog creates an empty log. question accompanies every request.
func NewLog(backend interfaces.AnalysisBackend, creds interfaces.Credentials, question string, logger *common.Logger) *Log {
	return &Log{
		backend:  backend,
		creds:    creds,
		question: question,
		logger:   logger,
		drafts:   make(map[string]decimal.Decimal),
	}
}

// Analyze requests an analysis of symbol and appends the result. Only one
// request may be outstanding; a failed request leaves the log unchanged and
// is not retried.
func (l *Log) Analyze(ctx context.Context, symbol string) (models.AnalysisResult, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return models.AnalysisResult{}, errs.Validation("analyze", "stock symbol is required")
	}

	log := common.FromContext(ctx, l.logger)

	l.mu.Lock()
	if l.inFlight != "" {
		pending := l.inFlight
		l.mu.Unlock()
		log.Debug().Str("symbol", symbol).Str("pending", pending).Msg("analyze rejected, request in flight")
		return models.AnalysisResult{}, ErrInFlight
	}
	l.inFlight = symbol
	epoch := l.epoch
	l.mu.Unlock()

	res, err := l.backend.Analyze(ctx, l.creds.Token(), symbol, l.question)

	l.mu.Lock()
	defer l.mu.Unlock()
	if epoch != l.epoch {
		return models.AnalysisResult{}, ErrDiscarded
	}
	l.inFlight = ""
	if err != nil {
		log.Warn().Str("symbol", symbol).Str("error", err.Error()).Msg("analysis failed")
		return models.AnalysisResult{}, err
	}

	res.ID = uuid.NewString()
	if res.Symbol == "" {
		res.Symbol = symbol
	}
	l.entries = append(l.entries, res)

	log.Info().
		Str("symbol", res.Symbol).
		Str("recommendation", res.Recommendation).
		Int("entries", len(l.entries)).
		Msg("analysis appended")
	return res, nil
}

// Entries returns a copy of the log in append order.
func (l *Log) Entries() []models.AnalysisResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.AnalysisResult(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entry returns the entry with id.
func (l *Log) Entry(id string) (models.AnalysisResult, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.find(id)
}

// Pending returns the symbol of the outstanding request, if any.
func (l *Log) Pending() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight, l.inFlight != ""
}

// Reset empties the log and its drafts. An outstanding request is ignored
// when it completes.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.drafts = make(map[string]decimal.Decimal)
	l.inFlight = ""
	l.epoch++
}

func (l *Log) find(id string) (models.AnalysisResult, bool) {
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return models.AnalysisResult{}, false
}
