// Package interfaces declares the contracts between the client components and
// their external collaborators.
package interfaces

import (
	"context"

	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/shopspring/decimal"
)

// SelfOwner addresses the authenticated user's own portfolio and reports.
const SelfOwner int64 = 0

// AuthBackend authenticates users.
type AuthBackend interface {
	Login(ctx context.Context, username, password string) (models.Session, error)
	Register(ctx context.Context, username, password string, role models.Role) error
}

// AnalysisBackend produces analyses and serves report history.
type AnalysisBackend interface {
	Analyze(ctx context.Context, token, symbol, question string) (models.AnalysisResult, error)
	GetReports(ctx context.Context, token string, owner int64) ([]models.Report, error)
}

// PortfolioBackend holds the transaction ledger and serves its consolidation.
type PortfolioBackend interface {
	ApplyTransaction(ctx context.Context, token string, tx models.Transaction) error
	RemoveSymbol(ctx context.Context, token, symbol string) error
	GetPortfolio(ctx context.Context, token string, owner int64) (models.Portfolio, error)
}

// InvestorBackend lists investors visible to an analyst.
type InvestorBackend interface {
	ListInvestors(ctx context.Context, token string) ([]models.InvestorRef, error)
}

// Backend is the full backend collaborator.
type Backend interface {
	AuthBackend
	AnalysisBackend
	PortfolioBackend
	InvestorBackend
}

// ReportSource is the read side used by report lists.
type ReportSource interface {
	GetReports(ctx context.Context, token string, owner int64) ([]models.Report, error)
}

// Credentials supplies the token attached to each backend call.
type Credentials interface {
	Token() string
}

// QuoteBook supplies current prices to the offline backend.
type QuoteBook interface {
	Price(symbol string) (decimal.Decimal, bool)
}
