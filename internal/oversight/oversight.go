// Package oversight gives analysts a read-only view of one investor at a
// time: the investor list, and the selected investor's portfolio and
// report history.
package oversight

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/vire-desk/internal/analysis"
	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/interfaces"
	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/bobmcallan/vire-desk/internal/portfolio"
)

// Snapshot is the oversight state at one instant.
type Snapshot struct {
	Investors []models.InvestorRef
	Selected  *models.InvestorRef
	Holdings  []models.Holding
	Summary   models.PortfolioSummary
	Reports   []models.Report
	// Loaded is true once both detail loads have completed.
	Loaded bool
}

// Oversight composes a read-only consolidator and a report list scoped to the
// selected investor.
type Oversight struct {
	investors interfaces.InvestorBackend
	creds     interfaces.Credentials
	logger    *common.Logger

	Portfolio *portfolio.Consolidator
	Reports   *analysis.Reports

	// selectMu orders Retarget and Deselect; mu guards the fields below.
	selectMu sync.Mutex
	mu       sync.Mutex
	list     []models.InvestorRef
	listSeq  uint64
	selected *Selection
}

// New wires oversight over backend.
func New(backend interfaces.Backend, creds interfaces.Credentials, logger *common.Logger) *Oversight {
	return &Oversight{
		investors: backend,
		creds:     creds,
		logger:    logger,
		Portfolio: portfolio.NewReadOnly(backend, creds, logger),
		Reports:   analysis.NewReports(backend, creds, logger),
	}
}

// LoadInvestors refreshes the investor list. Failure degrades to an empty
// list; the error is returned for display.
func (o *Oversight) LoadInvestors(ctx context.Context) error {
	o.mu.Lock()
	o.listSeq++
	seq := o.listSeq
	o.mu.Unlock()

	list, err := o.investors.ListInvestors(ctx, o.creds.Token())

	o.mu.Lock()
	defer o.mu.Unlock()
	if seq != o.listSeq {
		return nil
	}
	if err != nil {
		o.list = nil
		o.logger.Warn().Str("error", err.Error()).Msg("investor list load failed")
		return err
	}
	o.list = list
	return nil
}

// Investors returns a copy of the investor list.
func (o *Oversight) Investors() []models.InvestorRef {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.InvestorRef(nil), o.list...)
}

// Selection identifies one retarget of the detail views. Loads made for a
// Selection are skipped or dropped once another Retarget or Deselect runs.
type Selection struct {
	Ref       models.InvestorRef
	portfolio uint64
	reports   uint64
}

// Retarget makes ref the active investor and points both detail views at it
// without loading. Navigation calls it synchronously so selections take
// effect in the order they were made.
func (o *Oversight) Retarget(ref models.InvestorRef) Selection {
	o.selectMu.Lock()
	defer o.selectMu.Unlock()

	sel := Selection{
		Ref:       ref,
		portfolio: o.Portfolio.Retarget(ref.ID),
		reports:   o.Reports.Retarget(ref.ID),
	}
	o.mu.Lock()
	o.selected = &sel
	o.mu.Unlock()

	o.logger.Debug().Int64("investor", ref.ID).Str("username", ref.Username).Msg("investor selected")
	return sel
}

// Load fetches the portfolio and reports of sel in parallel. Either result
// may become visible before the other.
func (o *Oversight) Load(ctx context.Context, sel Selection) error {
	// Both loads always run to completion so one failure does not hide the
	// other's data.
	var g errgroup.Group
	g.Go(func() error { return o.Portfolio.ReloadTarget(ctx, sel.portfolio) })
	g.Go(func() error { return o.Reports.LoadTarget(ctx, sel.reports) })
	return g.Wait()
}

// Select retargets to ref and loads it.
func (o *Oversight) Select(ctx context.Context, ref models.InvestorRef) error {
	return o.Load(ctx, o.Retarget(ref))
}

// Refresh reloads the current selection, if any.
func (o *Oversight) Refresh(ctx context.Context) error {
	o.mu.Lock()
	sel := o.selected
	o.mu.Unlock()
	if sel == nil {
		return nil
	}
	return o.Load(ctx, *sel)
}

// Deselect clears the selection and both result sets.
func (o *Oversight) Deselect() {
	o.selectMu.Lock()
	defer o.selectMu.Unlock()

	o.mu.Lock()
	o.selected = nil
	o.mu.Unlock()

	o.Portfolio.Clear()
	o.Reports.Clear()
}

// Reset clears everything, including the investor list.
func (o *Oversight) Reset() {
	o.Deselect()
	o.mu.Lock()
	o.list = nil
	o.listSeq++
	o.mu.Unlock()
}

// Selected returns the active investor.
func (o *Oversight) Selected() (models.InvestorRef, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selected == nil {
		return models.InvestorRef{}, false
	}
	return o.selected.Ref, true
}

// Snapshot returns the current state.
func (o *Oversight) Snapshot() Snapshot {
	s := Snapshot{
		Investors: o.Investors(),
		Holdings:  o.Portfolio.Holdings(),
		Summary:   o.Portfolio.Summary(),
		Reports:   o.Reports.Items(),
		Loaded:    o.Portfolio.Loaded() && o.Reports.Loaded(),
	}
	if ref, ok := o.Selected(); ok {
		s.Selected = &ref
	}
	return s
}
