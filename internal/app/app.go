// Package app wires the client components into one controller. Callers drive
// it with user actions and re-render from Snapshot.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/analysis"
	"github.com/bobmcallan/vire-desk/internal/backend/memory"
	"github.com/bobmcallan/vire-desk/internal/cache"
	"github.com/bobmcallan/vire-desk/internal/client"
	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/config"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/bobmcallan/vire-desk/internal/navigator"
	"github.com/bobmcallan/vire-desk/internal/oversight"
	"github.com/bobmcallan/vire-desk/internal/portfolio"
	"github.com/bobmcallan/vire-desk/internal/seed"
	"github.com/bobmcallan/vire-desk/internal/session"
	"github.com/bobmcallan/vire-desk/internal/storage"
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Backend interfaces.Backend

	Session   *session.Store
	Navigator *navigator.Navigator
	Portfolio *portfolio.Consolidator
	Analysis  *analysis.Log
	Reports   *analysis.Reports
	Oversight *oversight.Oversight

	storage interfaces.StorageManager
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu         sync.Mutex
	loadErrors map[navigator.Load]string
}

const responseCacheEntries = 256

// NewBackend returns the backend selected by cfg.API.Mode.
func NewBackend(cfg *config.Config, logger *common.Logger) (interfaces.Backend, error) {
	switch strings.ToLower(cfg.API.Mode) {
	case "", "http":
		timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
		c := client.NewBackendClient(cfg.API.URL, timeout, logger)
		if cfg.API.CacheTTLSeconds > 0 {
			c.SetCache(cache.New(time.Duration(cfg.API.CacheTTLSeconds)*time.Second, responseCacheEntries))
		}
		return c, nil
	case "memory":
		return memory.New(memory.NewPriceTable(cfg.Offline.Prices), logger), nil
	default:
		return nil, fmt.Errorf("unknown api mode %q", cfg.API.Mode)
	}
}

// NewFromConfig builds the storage and backend described by cfg, seeds dev
// users when running in dev mode, and returns the wired application.
func NewFromConfig(cfg *config.Config, logger *common.Logger) (*App, error) {
	store, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	backend, err := NewBackend(cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE: dev users are seeded, do not use in production")
		if cfg.IsOffline() {
			seed.DevUsers(context.Background(), backend, logger)
		} else {
			go seed.DevUsers(context.Background(), backend, logger)
		}
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	a := New(cfg, logger, backend, store.KeyValueStorage())
	a.storage = store
	return a, nil
}

// New wires the components around backend and kv.
func New(cfg *config.Config, logger *common.Logger, backend interfaces.Backend, kv interfaces.KeyValueStorage) *App {
	ctx, cancel := context.WithCancel(context.Background())

	sess := session.NewStore(backend, kv, logger)
	a := &App{
		Config:     cfg,
		Logger:     logger,
		Backend:    backend,
		Session:    sess,
		Navigator:  navigator.New(),
		Portfolio:  portfolio.New(backend, sess, logger),
		Analysis:   analysis.NewLog(backend, sess, cfg.API.Question, logger),
		Reports:    analysis.NewReports(backend, sess, logger),
		Oversight:  oversight.New(backend, sess, logger),
		ctx:        ctx,
		cancel:     cancel,
		loadErrors: make(map[navigator.Load]string),
	}

	sess.OnLogout(a.reset)

	logger.Info().Str("mode", cfg.API.Mode).Msg("application initialization complete")
	return a
}

// Start restores a persisted session and, when one exists, enters its
// landing view.
func (a *App) Start(ctx context.Context) (models.Session, error) {
	sess, err := a.Session.Restore(ctx)
	if err != nil {
		return models.Session{}, err
	}
	if sess.Authenticated() {
		state, err := a.Navigator.Enter(sess.Role)
		if err != nil {
			return models.Session{}, err
		}
		a.enter(state)
	}
	return sess, nil
}

// Login authenticates and enters the role's landing view. Logging in over an
// existing session replaces it: nothing from the previous user survives.
// A failed login leaves the current session untouched.
func (a *App) Login(ctx context.Context, username, password string) (models.Session, error) {
	ctx = a.action(ctx, "login")
	sess, err := a.Session.Login(ctx, username, password)
	if err != nil {
		return models.Session{}, err
	}
	a.reset()
	state, err := a.Navigator.Enter(sess.Role)
	if err != nil {
		return models.Session{}, err
	}
	a.enter(state)
	return sess, nil
}

// Register creates an account. The caller logs in afterwards.
func (a *App) Register(ctx context.Context, username, password string, role models.Role) error {
	return a.Session.Register(a.action(ctx, "register"), username, password, role)
}

// Logout clears the session and every session-scoped component.
func (a *App) Logout(ctx context.Context) error {
	return a.Session.Logout(a.action(ctx, "logout"))
}

// Navigate moves to view when the role offers it.
func (a *App) Navigate(view navigator.View) error {
	state, err := a.Navigator.Go(view)
	if err != nil {
		return err
	}
	a.enter(state)
	return nil
}

// SelectInvestor opens the detail view of ref.
func (a *App) SelectInvestor(ref models.InvestorRef) error {
	state, err := a.Navigator.Select(ref)
	if err != nil {
		return err
	}
	a.enter(state)
	return nil
}

// SelectInvestorByID opens the detail view of a listed investor.
func (a *App) SelectInvestorByID(id int64) error {
	for _, ref := range a.Oversight.Investors() {
		if ref.ID == id {
			return a.SelectInvestor(ref)
		}
	}
	return errs.Validation("select", "investor %d is not in the list", id)
}

// Back returns from investor detail to the list.
func (a *App) Back() error {
	state, err := a.Navigator.Back()
	if err != nil {
		return err
	}
	a.enter(state)
	return nil
}

// Analyze appends an analysis of symbol to the session log.
func (a *App) Analyze(ctx context.Context, symbol string) (models.AnalysisResult, error) {
	if !a.Session.Authenticated() {
		return models.AnalysisResult{}, errs.Auth("analyze", "not logged in")
	}
	return a.Analysis.Analyze(a.action(ctx, "analyze"), symbol)
}

// SetDraftQuantity sets the trade quantity attached to a log entry.
func (a *App) SetDraftQuantity(entryID string, quantity decimal.Decimal) error {
	return a.Analysis.SetQuantity(entryID, quantity)
}

// Buy adds quantity of symbol at price to the caller's portfolio.
func (a *App) Buy(ctx context.Context, symbol string, quantity, price decimal.Decimal) error {
	if err := a.requireInvestor("portfolio.buy"); err != nil {
		return err
	}
	return a.Portfolio.Buy(a.action(ctx, "buy"), symbol, quantity, price)
}

// Sell removes quantity of symbol at price from the caller's portfolio.
func (a *App) Sell(ctx context.Context, symbol string, quantity, price decimal.Decimal) error {
	if err := a.requireInvestor("portfolio.sell"); err != nil {
		return err
	}
	return a.Portfolio.Sell(a.action(ctx, "sell"), symbol, quantity, price)
}

// BuyEntry buys the drafted quantity of a log entry at its analyzed price.
func (a *App) BuyEntry(ctx context.Context, entryID string) error {
	d, err := a.draft("portfolio.buy", entryID)
	if err != nil {
		return err
	}
	return a.Buy(ctx, d.Symbol, d.Quantity, d.Price)
}

// SellEntry sells the drafted quantity of a log entry at its analyzed price.
func (a *App) SellEntry(ctx context.Context, entryID string) error {
	d, err := a.draft("portfolio.sell", entryID)
	if err != nil {
		return err
	}
	return a.Sell(ctx, d.Symbol, d.Quantity, d.Price)
}

// Remove liquidates every position in symbol.
func (a *App) Remove(ctx context.Context, symbol string) error {
	if err := a.requireInvestor("portfolio.remove"); err != nil {
		return err
	}
	return a.Portfolio.Remove(a.action(ctx, "remove"), symbol)
}

// Wait blocks until every background load has finished.
func (a *App) Wait() {
	a.wg.Wait()
}

// Close stops background work and releases storage.
func (a *App) Close() error {
	a.cancel()
	a.wg.Wait()
	if a.storage != nil {
		return a.storage.Close()
	}
	return nil
}

// reset clears every session-scoped component.
func (a *App) reset() {
	a.Navigator.Reset()
	a.Analysis.Reset()
	a.Portfolio.Clear()
	a.Reports.Clear()
	a.Oversight.Reset()
	a.clearLoadErrors()
}

// action returns ctx carrying a logger with a fresh correlation ID, so the
// session, portfolio, client and backend lines of one user action share it.
func (a *App) action(ctx context.Context, name string) context.Context {
	log, _ := a.Logger.ForAction()
	log.Debug().Str("action", name).Msg("action started")
	return common.WithLogger(ctx, log)
}

func (a *App) draft(op, entryID string) (analysis.Draft, error) {
	d, ok := a.Analysis.Draft(entryID)
	if !ok {
		return analysis.Draft{}, errs.Validation(op, "unknown analysis entry %q", entryID)
	}
	return d, nil
}

func (a *App) requireInvestor(op string) error {
	switch a.Session.Role() {
	case models.RoleInvestor:
		return nil
	case models.RoleAnalyst:
		return errs.Auth(op, "Only investors can modify a portfolio")
	default:
		return errs.Auth(op, "not logged in")
	}
}
