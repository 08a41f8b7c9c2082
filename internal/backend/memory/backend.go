// Package memory is an in-process implementation of interfaces.Backend used
// for offline runs and tests. It mirrors the REST backend's rules: investors
// own a transaction ledger, analysts read any investor's data, and every
// analysis is recorded in the caller's report history.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/ledger"
	"github.com/bobmcallan/vire-desk/internal/models"
)

const (
	selfReportLimit  = 10
	ownerReportLimit = 20
)

type user struct {
	id       int64
	username string
	hash     []byte
	role     models.Role
}

type report struct {
	models.Report
	seq int64
}

// Backend holds users, ledgers and report history in memory.
type Backend struct {
	mu      sync.Mutex
	quotes  interfaces.QuoteBook
	logger  *common.Logger
	now     func() time.Time
	cost    int
	nextID  int64
	nextSeq int64

	users   map[string]*user
	tokens  map[string]*user
	ledgers map[int64][]models.Transaction
	reports map[int64][]report
}

// New creates an empty backend pricing symbols from quotes.
func New(quotes interfaces.QuoteBook, logger *common.Logger) *Backend {
	return &Backend{
		quotes:  quotes,
		logger:  logger,
		now:     time.Now,
		cost:    bcrypt.DefaultCost,
		users:   make(map[string]*user),
		tokens:  make(map[string]*user),
		ledgers: make(map[int64][]models.Transaction),
		reports: make(map[int64][]report),
	}
}

// authenticate resolves token to its user. Callers hold b.mu.
func (b *Backend) authenticate(op, token string) (*user, error) {
	u, ok := b.tokens[token]
	if !ok || token == "" {
		return nil, errs.Auth(op, "Invalid token")
	}
	return u, nil
}

// Register creates an account.
func (b *Backend) Register(ctx context.Context, username, password string, role models.Role) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errs.Validation("register", "username and password are required")
	}
	if !role.Valid() {
		return errs.Validation("register", "unknown role %q", role)
	}
	// bcrypt rejects longer inputs
	if len(password) > 72 {
		return errs.Validation("register", "password must be at most 72 bytes")
	}

	b.mu.Lock()
	cost := b.cost
	b.mu.Unlock()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return errs.Server("register", "failed to hash password")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.users[username]; exists {
		return errs.Conflict("register", "Username already exists")
	}
	b.nextID++
	b.users[username] = &user{id: b.nextID, username: username, hash: hash, role: role}

	common.FromContext(ctx, b.logger).Debug().Str("username", username).Str("role", string(role)).Int64("id", b.nextID).Msg("user registered")
	return nil
}

// Login verifies credentials and issues a fresh token.
func (b *Backend) Login(_ context.Context, username, password string) (models.Session, error) {
	b.mu.Lock()
	u, ok := b.users[strings.TrimSpace(username)]
	b.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(password)) != nil {
		return models.Session{}, errs.Auth("login", "Invalid credentials")
	}

	token := uuid.NewString()
	b.mu.Lock()
	b.tokens[token] = u
	b.mu.Unlock()

	return models.Session{Token: token, Role: u.role}, nil
}

// Analyze prices symbol, records a report for the caller and returns the
// analysis. Unknown symbols fail with "Stock not found".
func (b *Backend) Analyze(_ context.Context, token, symbol, _ string) (models.AnalysisResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.authenticate("analyze", token)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	symbol = models.NormalizeSymbol(symbol)
	price, ok := b.quotes.Price(symbol)
	if !ok || !price.IsPositive() {
		return models.AnalysisResult{}, errs.Server("analyze", "Stock not found")
	}

	result := analyze(symbol, price)

	b.nextSeq++
	b.reports[u.id] = append(b.reports[u.id], report{
		Report: models.Report{
			Stock:          symbol,
			Analysis:       result.AnalysisText,
			Recommendation: result.Recommendation,
			Timestamp:      models.Timestamp{Time: b.now()},
		},
		seq: b.nextSeq,
	})
	return result, nil
}

// GetReports returns report history, newest first. Investors may only read
// their own.
func (b *Backend) GetReports(_ context.Context, token string, owner int64) ([]models.Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.authenticate("reports", token)
	if err != nil {
		return nil, err
	}

	limit := ownerReportLimit
	target := owner
	if owner == interfaces.SelfOwner {
		target, limit = u.id, selfReportLimit
	} else if u.role == models.RoleInvestor && owner != u.id {
		return nil, errs.Auth("reports", "Can only view your own reports")
	}

	stored := append([]report(nil), b.reports[target]...)
	sort.SliceStable(stored, func(i, j int) bool {
		if !stored[i].Timestamp.Equal(stored[j].Timestamp.Time) {
			return stored[i].Timestamp.After(stored[j].Timestamp.Time)
		}
		return stored[i].seq > stored[j].seq
	})
	if len(stored) > limit {
		stored = stored[:limit]
	}

	out := make([]models.Report, len(stored))
	for i, r := range stored {
		out[i] = r.Report
	}
	return out, nil
}

// ApplyTransaction appends a signed ledger entry for the calling investor.
func (b *Backend) ApplyTransaction(ctx context.Context, token string, tx models.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.authenticate("portfolio.add", token)
	if err != nil {
		return err
	}
	if u.role != models.RoleInvestor {
		return errs.Auth("portfolio.add", "Only investors can add to portfolio")
	}

	tx.Symbol = models.NormalizeSymbol(tx.Symbol)
	if tx.Symbol == "" {
		return errs.Validation("portfolio.add", "stock_symbol is required")
	}
	b.ledgers[u.id] = append(b.ledgers[u.id], tx)
	common.FromContext(ctx, b.logger).Debug().
		Int64("investor", u.id).
		Str("symbol", tx.Symbol).
		Str("quantity", tx.Quantity.String()).
		Msg("transaction recorded")
	return nil
}

// RemoveSymbol drops every ledger entry for symbol.
func (b *Backend) RemoveSymbol(_ context.Context, token, symbol string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.authenticate("portfolio.remove", token)
	if err != nil {
		return err
	}
	if u.role != models.RoleInvestor {
		return errs.Auth("portfolio.remove", "Only investors can modify portfolio")
	}
	b.ledgers[u.id] = ledger.Remove(b.ledgers[u.id], models.NormalizeSymbol(symbol))
	return nil
}

// GetPortfolio consolidates the owner's ledger and prices it.
func (b *Backend) GetPortfolio(_ context.Context, token string, owner int64) (models.Portfolio, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.authenticate("portfolio.get", token)
	if err != nil {
		return models.Portfolio{}, err
	}

	target := owner
	if owner == interfaces.SelfOwner {
		target = u.id
	} else if u.role == models.RoleInvestor && owner != u.id {
		return models.Portfolio{}, errs.Auth("portfolio.get", "Can only view your own portfolio")
	}

	positions := ledger.Consolidate(b.ledgers[target])
	return ledger.Value(positions, b.quotes.Price), nil
}

// ListInvestors returns every investor, ordered by id. Analysts only.
func (b *Backend) ListInvestors(_ context.Context, token string) ([]models.InvestorRef, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.authenticate("investors", token)
	if err != nil {
		return nil, err
	}
	if u.role != models.RoleAnalyst {
		return nil, errs.Auth("investors", "Analysts only")
	}

	var out []models.InvestorRef
	for _, candidate := range b.users {
		if candidate.role == models.RoleInvestor {
			out = append(out, models.InvestorRef{ID: candidate.id, Username: candidate.username})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UserID returns the id assigned to username.
func (b *Backend) UserID(username string) (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[username]
	if !ok {
		return 0, false
	}
	return u.id, true
}

// SetHashCost overrides the bcrypt cost used for new accounts.
func (b *Backend) SetHashCost(cost int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cost = cost
}
