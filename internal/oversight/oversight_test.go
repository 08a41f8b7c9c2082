package oversight

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/errs"
	"github.com/bobmcallan/vire-desk/internal/models"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// fakeBackend serves per-owner data. Loads for owners with a gate block until
// the gate is closed; each load announces itself on entered.
type fakeBackend struct {
	mu          sync.Mutex
	gates       map[int64]chan struct{}
	entered     chan int64
	investors   []models.InvestorRef
	investorErr error
	reportsErr  error
}

func (f *fakeBackend) wait(owner int64) {
	f.mu.Lock()
	gate, entered := f.gates[owner], f.entered
	f.mu.Unlock()
	if entered != nil {
		entered <- owner
	}
	if gate != nil {
		<-gate
	}
}

func (f *fakeBackend) Login(ctx context.Context, u, p string) (models.Session, error) {
	return models.Session{}, nil
}

func (f *fakeBackend) Register(ctx context.Context, u, p string, role models.Role) error {
	return nil
}

func (f *fakeBackend) Analyze(ctx context.Context, token, symbol, q string) (models.AnalysisResult, error) {
	return models.AnalysisResult{}, nil
}

func (f *fakeBackend) GetReports(ctx context.Context, token string, owner int64) ([]models.Report, error) {
	f.wait(owner)
	if f.reportsErr != nil {
		return nil, f.reportsErr
	}
	return []models.Report{{Stock: stockFor(owner), Recommendation: "HOLD"}}, nil
}

func (f *fakeBackend) ApplyTransaction(ctx context.Context, token string, tx models.Transaction) error {
	return nil
}

func (f *fakeBackend) RemoveSymbol(ctx context.Context, token, symbol string) error {
	return nil
}

func (f *fakeBackend) GetPortfolio(ctx context.Context, token string, owner int64) (models.Portfolio, error) {
	f.wait(owner)
	return models.Portfolio{Holdings: []models.Holding{{
		Stock:        stockFor(owner),
		Quantity:     decimal.NewFromInt(owner),
		CostBasis:    decimal.NewFromInt(10),
		CurrentPrice: decimal.NewFromInt(12),
	}}}, nil
}

func (f *fakeBackend) ListInvestors(ctx context.Context, token string) ([]models.InvestorRef, error) {
	return f.investors, f.investorErr
}

func stockFor(owner int64) string {
	if owner == 1 {
		return "AAAA"
	}
	return "BBBB"
}

func TestSelect_LoadsBoth(t *testing.T) {
	o := New(&fakeBackend{}, staticToken("tok"), common.NewSilentLogger())

	if err := o.Select(context.Background(), models.InvestorRef{ID: 2, Username: "ines"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := o.Snapshot()
	if !s.Loaded {
		t.Error("expected detail fully loaded")
	}
	if s.Selected == nil || s.Selected.ID != 2 {
		t.Fatalf("unexpected selection: %+v", s.Selected)
	}
	if len(s.Holdings) != 1 || s.Holdings[0].Stock != "BBBB" {
		t.Errorf("unexpected holdings: %+v", s.Holdings)
	}
	if len(s.Reports) != 1 || s.Reports[0].Stock != "BBBB" {
		t.Errorf("unexpected reports: %+v", s.Reports)
	}
	if !s.Summary.TotalValue.Equal(decimal.NewFromInt(24)) {
		t.Errorf("expected total value 24, got %s", s.Summary.TotalValue)
	}
}

func TestSelect_StaleResponsesDiscarded(t *testing.T) {
	gate := make(chan struct{})
	fb := &fakeBackend{
		gates:   map[int64]chan struct{}{1: gate},
		entered: make(chan int64, 4),
	}
	o := New(fb, staticToken("tok"), common.NewSilentLogger())
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- o.Select(ctx, models.InvestorRef{ID: 1, Username: "ivan"}) }()

	// Both loads for investor 1 are now parked.
	<-fb.entered
	<-fb.entered

	if err := o.Select(ctx, models.InvestorRef{ID: 2, Username: "ines"}); err != nil {
		t.Fatalf("select B failed: %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("select A returned error: %v", err)
	}

	s := o.Snapshot()
	if s.Selected == nil || s.Selected.ID != 2 {
		t.Fatalf("expected investor 2 selected, got %+v", s.Selected)
	}
	for _, h := range s.Holdings {
		if h.Stock == "AAAA" {
			t.Error("stale portfolio for investor 1 leaked into investor 2's view")
		}
	}
	for _, r := range s.Reports {
		if r.Stock == "AAAA" {
			t.Error("stale reports for investor 1 leaked into investor 2's view")
		}
	}
	if len(s.Holdings) != 1 || len(s.Reports) != 1 {
		t.Errorf("expected investor 2 data, got %d holdings %d reports", len(s.Holdings), len(s.Reports))
	}
}

func TestSelect_PartialFailure(t *testing.T) {
	fb := &fakeBackend{reportsErr: errs.Server("reports", "boom")}
	o := New(fb, staticToken("tok"), common.NewSilentLogger())

	err := o.Select(context.Background(), models.InvestorRef{ID: 2})
	if !errors.Is(err, errs.ErrServer) {
		t.Errorf("expected server error, got %v", err)
	}
	s := o.Snapshot()
	if len(s.Holdings) != 1 {
		t.Errorf("expected portfolio visible despite report failure, got %d", len(s.Holdings))
	}
	if len(s.Reports) != 0 {
		t.Errorf("expected reports degraded to empty, got %d", len(s.Reports))
	}
}

func TestDeselect(t *testing.T) {
	o := New(&fakeBackend{}, staticToken("tok"), common.NewSilentLogger())
	o.Select(context.Background(), models.InvestorRef{ID: 2})

	o.Deselect()
	s := o.Snapshot()
	if s.Selected != nil || len(s.Holdings) != 0 || len(s.Reports) != 0 || s.Loaded {
		t.Errorf("expected cleared oversight, got %+v", s)
	}
}

func TestDeselect_DropsInFlight(t *testing.T) {
	gate := make(chan struct{})
	fb := &fakeBackend{gates: map[int64]chan struct{}{1: gate}, entered: make(chan int64, 2)}
	o := New(fb, staticToken("tok"), common.NewSilentLogger())

	done := make(chan error)
	go func() { done <- o.Select(context.Background(), models.InvestorRef{ID: 1}) }()
	<-fb.entered
	<-fb.entered

	o.Deselect()
	close(gate)
	<-done

	if s := o.Snapshot(); len(s.Holdings) != 0 || len(s.Reports) != 0 {
		t.Errorf("expected late results dropped after deselect, got %+v", s)
	}
}

func TestLoadInvestors(t *testing.T) {
	fb := &fakeBackend{investors: []models.InvestorRef{{ID: 1, Username: "ivan"}}}
	o := New(fb, staticToken("tok"), common.NewSilentLogger())
	ctx := context.Background()

	if err := o.LoadInvestors(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(o.Investors()) != 1 {
		t.Errorf("expected 1 investor, got %d", len(o.Investors()))
	}

	fb.investorErr = errs.Auth("investors", "Analysts only")
	if err := o.LoadInvestors(ctx); !errors.Is(err, errs.ErrAuth) {
		t.Errorf("expected auth error, got %v", err)
	}
	if len(o.Investors()) != 0 {
		t.Errorf("expected list degraded to empty, got %d", len(o.Investors()))
	}
}

func TestLoad_SupersededSelectionRequestsNothing(t *testing.T) {
	fb := &fakeBackend{entered: make(chan int64, 4)}
	o := New(fb, staticToken("tok"), common.NewSilentLogger())
	ctx := context.Background()

	first := o.Retarget(models.InvestorRef{ID: 1, Username: "ivan"})
	second := o.Retarget(models.InvestorRef{ID: 2, Username: "ines"})

	if err := o.Load(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(fb.entered); n != 0 {
		t.Fatalf("expected no requests for a superseded selection, got %d", n)
	}
	if s := o.Snapshot(); s.Selected == nil || s.Selected.ID != 2 || s.Loaded {
		t.Fatalf("expected investor 2 selected and not loaded, got %+v", s)
	}

	if err := o.Load(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := o.Snapshot()
	if !s.Loaded || len(s.Holdings) != 1 || s.Holdings[0].Stock != "BBBB" {
		t.Errorf("expected investor 2 loaded, got %+v", s)
	}
}

func TestLoad_AfterDeselectRequestsNothing(t *testing.T) {
	fb := &fakeBackend{entered: make(chan int64, 2)}
	o := New(fb, staticToken("tok"), common.NewSilentLogger())

	sel := o.Retarget(models.InvestorRef{ID: 1})
	o.Deselect()
	if err := o.Load(context.Background(), sel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(fb.entered); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
	if s := o.Snapshot(); s.Selected != nil || len(s.Holdings) != 0 {
		t.Errorf("expected nothing selected, got %+v", s)
	}
}

func TestRefresh(t *testing.T) {
	fb := &fakeBackend{entered: make(chan int64, 4)}
	o := New(fb, staticToken("tok"), common.NewSilentLogger())
	ctx := context.Background()

	if err := o.Refresh(ctx); err != nil || len(fb.entered) != 0 {
		t.Fatalf("expected no-op refresh without selection, err=%v requests=%d", err, len(fb.entered))
	}

	o.Select(ctx, models.InvestorRef{ID: 2})
	<-fb.entered
	<-fb.entered
	if err := o.Refresh(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(fb.entered); n != 2 {
		t.Errorf("expected both views reloaded, got %d requests", n)
	}
}
