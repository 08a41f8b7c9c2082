package portfolio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/vire-desk/internal/backend/memory"
	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type staticToken string

func (s staticToken) Token() string { return string(s) }

func investor(t *testing.T) (*memory.Backend, staticToken) {
	t.Helper()
	ctx := context.Background()
	b := memory.New(memory.NewPriceTable(map[string]float64{"AAPL": 130, "TSLA": 200}), common.NewSilentLogger())
	b.SetHashCost(bcrypt.MinCost)
	if err := b.Register(ctx, "ivan", "pw", models.RoleInvestor); err != nil {
		t.Fatal(err)
	}
	sess, err := b.Login(ctx, "ivan", "pw")
	if err != nil {
		t.Fatal(err)
	}
	return b, staticToken(sess.Token)
}

func holding(t *testing.T, c *Consolidator, symbol string) (models.Holding, bool) {
	t.Helper()
	for _, h := range c.Holdings() {
		if h.Stock == symbol {
			return h, true
		}
	}
	return models.Holding{}, false
}

func TestConsolidation_WeightedAverage(t *testing.T) {
	b, tok := investor(t)
	c := New(b, tok, common.NewSilentLogger())
	ctx := context.Background()

	if err := c.Buy(ctx, "aapl", d("10"), d("100")); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if err := c.Buy(ctx, "AAPL", d("10"), d("120")); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	h, ok := holding(t, c, "AAPL")
	if !ok {
		t.Fatal("expected AAPL holding")
	}
	if !h.Quantity.Equal(d("20")) || !h.CostBasis.Equal(d("110")) {
		t.Errorf("expected 20 @ 110, got %s @ %s", h.Quantity, h.CostBasis)
	}

	if err := c.Sell(ctx, "AAPL", d("15"), d("130")); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	h, _ = holding(t, c, "AAPL")
	if !h.Quantity.Equal(d("5")) || !h.CostBasis.Equal(d("110")) {
		t.Errorf("expected 5 @ 110 after sell, got %s @ %s", h.Quantity, h.CostBasis)
	}
	if !h.ProfitLoss.Equal(d("100")) {
		t.Errorf("expected profit/loss 100, got %s", h.ProfitLoss)
	}
}

func TestRemoval(t *testing.T) {
	b, tok := investor(t)
	c := New(b, tok, common.NewSilentLogger())
	ctx := context.Background()

	c.Buy(ctx, "AAPL", d("5"), d("100"))
	if err := c.Sell(ctx, "AAPL", d("8"), d("120")); err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if _, ok := holding(t, c, "AAPL"); ok {
		t.Error("expected holding removed once quantity <= 0")
	}

	c.Buy(ctx, "TSLA", d("3"), d("150"))
	if err := c.Remove(ctx, "tsla"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, ok := holding(t, c, "TSLA"); ok {
		t.Error("expected TSLA absent after remove")
	}
	if c.Summary().TotalPositions != 0 {
		t.Errorf("expected 0 positions, got %d", c.Summary().TotalPositions)
	}
}

func TestSummary(t *testing.T) {
	b, tok := investor(t)
	c := New(b, tok, common.NewSilentLogger())
	ctx := context.Background()

	c.Buy(ctx, "AAPL", d("5"), d("110"))
	c.Buy(ctx, "TSLA", d("2"), d("250"))

	s := c.Summary()
	if s.TotalPositions != 2 {
		t.Errorf("expected 2 positions, got %d", s.TotalPositions)
	}
	if !s.TotalValue.Equal(d("1050")) {
		t.Errorf("expected total value 1050, got %s", s.TotalValue)
	}
	if !s.TotalProfitLoss.Equal(d("0")) {
		t.Errorf("expected total profit/loss 0, got %s", s.TotalProfitLoss)
	}
	if again := c.Summary(); !again.TotalValue.Equal(s.TotalValue) || again.TotalPositions != s.TotalPositions {
		t.Error("expected repeated summary to be identical")
	}
}

// recordingBackend counts calls and can fail or block them.
type recordingBackend struct {
	mu        sync.Mutex
	applied   int
	applyErr  error
	reloadErr error
	portfolio models.Portfolio
	gates     map[int64]chan struct{}
	entered   chan int64
}

func (r *recordingBackend) ApplyTransaction(ctx context.Context, token string, tx models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied++
	return r.applyErr
}

func (r *recordingBackend) RemoveSymbol(ctx context.Context, token, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied++
	return r.applyErr
}

func (r *recordingBackend) GetPortfolio(ctx context.Context, token string, owner int64) (models.Portfolio, error) {
	r.mu.Lock()
	gate := r.gates[owner]
	entered := r.entered
	r.mu.Unlock()
	if entered != nil {
		entered <- owner
	}
	if gate != nil {
		<-gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reloadErr != nil {
		return models.Portfolio{}, r.reloadErr
	}
	p := r.portfolio
	p.Holdings = append([]models.Holding(nil), r.portfolio.Holdings...)
	// Tag the first row with the owner so tests can tell loads apart
	if owner != 0 && len(p.Holdings) > 0 {
		p.Holdings[0].Quantity = decimal.NewFromInt(owner)
	}
	return p, nil
}

func TestValidation_NotSent(t *testing.T) {
	rb := &recordingBackend{}
	c := New(rb, staticToken("tok"), common.NewSilentLogger())
	ctx := context.Background()

	cases := []struct {
		name   string
		symbol string
		qty    string
		price  string
	}{
		{"empty symbol", "  ", "1", "1"},
		{"zero quantity", "AAPL", "0", "1"},
		{"negative quantity", "AAPL", "-1", "1"},
		{"zero price", "AAPL", "1", "0"},
	}
	for _, tc := range cases {
		if err := c.Buy(ctx, tc.symbol, d(tc.qty), d(tc.price)); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
		if err := c.Sell(ctx, tc.symbol, d(tc.qty), d(tc.price)); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("%s: expected validation error on sell, got %v", tc.name, err)
		}
	}
	if err := c.Remove(ctx, ""); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected validation error for empty remove, got %v", err)
	}
	if rb.applied != 0 {
		t.Errorf("expected no backend calls, got %d", rb.applied)
	}
}

func TestFailedMutationKeepsHoldings(t *testing.T) {
	rb := &recordingBackend{portfolio: models.Portfolio{Holdings: []models.Holding{
		{Stock: "AAPL", Quantity: d("5"), CostBasis: d("100"), CurrentPrice: d("110")},
	}}}
	c := New(rb, staticToken("tok"), common.NewSilentLogger())
	ctx := context.Background()
	if err := c.Reload(ctx); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	rb.applyErr = errs.Server("portfolio.add", "database locked")
	err := c.Buy(ctx, "AAPL", d("1"), d("1"))
	if !errors.Is(err, errs.ErrServer) || err.Error() != "database locked" {
		t.Fatalf("expected backend reason verbatim, got %v", err)
	}
	if h, ok := holding(t, c, "AAPL"); !ok || !h.Quantity.Equal(d("5")) {
		t.Errorf("expected holdings intact, got %+v", c.Holdings())
	}
}

func TestReloadFailureAfterMutation(t *testing.T) {
	rb := &recordingBackend{reloadErr: errs.Network("portfolio.get", errors.New("connection refused"))}
	c := New(rb, staticToken("tok"), common.NewSilentLogger())

	err := c.Buy(context.Background(), "AAPL", d("1"), d("1"))
	if !errors.Is(err, errs.ErrNetwork) {
		t.Errorf("expected wrapped network error, got %v", err)
	}
	if rb.applied != 1 {
		t.Errorf("expected transaction to be sent once, got %d", rb.applied)
	}
}

func TestReload_DerivesAndMerges(t *testing.T) {
	rb := &recordingBackend{portfolio: models.Portfolio{Holdings: []models.Holding{
		{Stock: "AAPL", Quantity: d("10"), CostBasis: d("100"), CurrentPrice: d("130"), ProfitLoss: d("999")},
		{Stock: "aapl", Quantity: d("10"), CostBasis: d("120"), CurrentPrice: d("130")},
		{Stock: "GONE", Quantity: d("0"), CostBasis: d("10"), CurrentPrice: d("10")},
	}}}
	c := New(rb, staticToken("tok"), common.NewSilentLogger())
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	hs := c.Holdings()
	if len(hs) != 1 {
		t.Fatalf("expected 1 merged holding, got %d", len(hs))
	}
	if !hs[0].Quantity.Equal(d("20")) || !hs[0].CostBasis.Equal(d("110")) {
		t.Errorf("expected 20 @ 110, got %s @ %s", hs[0].Quantity, hs[0].CostBasis)
	}
	if !hs[0].ProfitLoss.Equal(d("400")) {
		t.Errorf("expected recomputed profit/loss 400, got %s", hs[0].ProfitLoss)
	}
}

func TestReadOnlyRejectsMutations(t *testing.T) {
	rb := &recordingBackend{}
	c := NewReadOnly(rb, staticToken("tok"), common.NewSilentLogger())
	ctx := context.Background()

	if err := c.Buy(ctx, "AAPL", d("1"), d("1")); !errors.Is(err, errs.ErrAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
	if err := c.Sell(ctx, "AAPL", d("1"), d("1")); !errors.Is(err, errs.ErrAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
	if err := c.Remove(ctx, "AAPL"); !errors.Is(err, errs.ErrAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
	if rb.applied != 0 {
		t.Errorf("expected no backend calls, got %d", rb.applied)
	}
}

func TestRetarget_DiscardsStaleLoad(t *testing.T) {
	gate := make(chan struct{})
	rb := &recordingBackend{
		portfolio: models.Portfolio{Holdings: []models.Holding{
			{Stock: "AAPL", Quantity: d("1"), CostBasis: d("100"), CurrentPrice: d("100")},
		}},
		gates:   map[int64]chan struct{}{1: gate},
		entered: make(chan int64, 2),
	}
	c := NewReadOnly(rb, staticToken("tok"), common.NewSilentLogger())
	ctx := context.Background()

	c.Retarget(1)
	done := make(chan error)
	go func() { done <- c.Reload(ctx) }()

	if owner := <-rb.entered; owner != 1 {
		t.Fatalf("expected first load for owner 1, got %d", owner)
	}
	c.Retarget(2)
	if err := c.Reload(ctx); err != nil {
		t.Fatalf("reload for owner 2 failed: %v", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("stale reload returned error: %v", err)
	}

	hs := c.Holdings()
	if len(hs) != 1 || !hs[0].Quantity.Equal(d("2")) {
		t.Errorf("expected owner 2 data to survive, got %+v", hs)
	}
	if c.Owner() != 2 {
		t.Errorf("expected owner 2, got %d", c.Owner())
	}
}

func TestReloadTarget_SkipsSupersededTarget(t *testing.T) {
	rb := &recordingBackend{
		portfolio: models.Portfolio{Holdings: []models.Holding{
			{Stock: "AAPL", Quantity: d("1"), CostBasis: d("100"), CurrentPrice: d("100")},
		}},
		entered: make(chan int64, 2),
	}
	c := NewReadOnly(rb, staticToken("tok"), common.NewSilentLogger())
	ctx := context.Background()

	old := c.Retarget(1)
	current := c.Retarget(2)
	if err := c.ReloadTarget(ctx, old); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rb.entered) != 0 || c.Loaded() {
		t.Fatalf("expected no request for a superseded target")
	}

	c.Clear()
	if err := c.ReloadTarget(ctx, current); err != nil || len(rb.entered) != 0 {
		t.Fatalf("expected no request after clear, err=%v", err)
	}

	current = c.Retarget(2)
	if err := c.ReloadTarget(ctx, current); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner := <-rb.entered; owner != 2 || !c.Loaded() {
		t.Errorf("expected a load for owner 2, got owner %d loaded=%v", owner, c.Loaded())
	}
}

func TestClear(t *testing.T) {
	b, tok := investor(t)
	c := New(b, tok, common.NewSilentLogger())
	c.Buy(context.Background(), "AAPL", d("1"), d("100"))

	c.Clear()
	if len(c.Holdings()) != 0 || c.Loaded() {
		t.Error("expected cleared consolidator")
	}
}
