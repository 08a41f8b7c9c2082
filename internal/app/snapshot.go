package app

import (
	"github.com/bobmcallan/vire-desk/internal/analysis"
	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/bobmcallan/vire-desk/internal/navigator"
	"github.com/bobmcallan/vire-desk/internal/oversight"
)

// Snapshot is everything a surface needs to render.
type Snapshot struct {
	Authenticated bool
	Role          models.Role
	State         navigator.State
	Allowed       []navigator.View

	Entries []models.AnalysisResult
	Drafts  map[string]analysis.Draft
	Pending string

	Holdings []models.Holding
	Summary  models.PortfolioSummary
	Reports  []models.Report

	Oversight oversight.Snapshot

	// LoadErrors holds the failure message of each load of the current view
	// that failed. Failed views render empty.
	LoadErrors map[navigator.Load]string
}

// Snapshot returns the current application state.
func (a *App) Snapshot() Snapshot {
	sess := a.Session.Current()
	pending, _ := a.Analysis.Pending()

	a.mu.Lock()
	loadErrors := make(map[navigator.Load]string, len(a.loadErrors))
	for k, v := range a.loadErrors {
		loadErrors[k] = v
	}
	a.mu.Unlock()

	entries := a.Analysis.Entries()
	drafts := make(map[string]analysis.Draft, len(entries))
	for _, e := range entries {
		if d, ok := a.Analysis.Draft(e.ID); ok {
			drafts[e.ID] = d
		}
	}

	return Snapshot{
		Authenticated: sess.Authenticated(),
		Role:          sess.Role,
		State:         a.Navigator.State(),
		Allowed:       a.Navigator.Allowed(),
		Entries:       entries,
		Drafts:        drafts,
		Pending:       pending,
		Holdings:      a.Portfolio.Holdings(),
		Summary:       a.Portfolio.Summary(),
		Reports:       a.Reports.Items(),
		Oversight:     a.Oversight.Snapshot(),
		LoadErrors:    loadErrors,
	}
}
