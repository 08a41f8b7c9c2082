package app

import (
	"context"

	"github.com/bobmcallan/vire-desk/internal/navigator"
)

// enter retargets the components for state and starts the loads it
// triggers. Retargets happen here, in navigation order; only the loads run
// in the background. Results for a state that is no longer current are
// dropped by the components themselves, and their errors are not recorded.
func (a *App) enter(state navigator.State) {
	a.clearLoadErrors()

	if state.View != navigator.ViewInvestorDetail {
		a.Oversight.Deselect()
	}

	loads := navigator.LoadsFor(state)
	if len(loads) == 0 {
		return
	}

	a.Logger.Debug().
		Str("view", string(state.View)).
		Str("key", state.Key()).
		Int("loads", len(loads)).
		Msg("entering view")

	if state.View == navigator.ViewInvestorDetail && state.Selected != nil {
		sel := a.Oversight.Retarget(*state.Selected)
		a.background(state, func(ctx context.Context) error {
			return a.Oversight.Load(ctx, sel)
		}, loads...)
		return
	}

	for _, load := range loads {
		switch load {
		case navigator.LoadPortfolio:
			a.background(state, a.Portfolio.Reload, load)
		case navigator.LoadReports:
			a.background(state, a.Reports.Load, load)
		case navigator.LoadInvestors:
			a.background(state, a.Oversight.LoadInvestors, load)
		}
	}
}

func (a *App) background(state navigator.State, fn func(context.Context) error, loads ...navigator.Load) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := fn(a.ctx)
		if err == nil || !a.Navigator.Current(state) {
			return
		}
		a.Logger.Warn().Str("view", string(state.View)).Str("error", err.Error()).Msg("view load failed")

		a.mu.Lock()
		defer a.mu.Unlock()
		for _, l := range loads {
			a.loadErrors[l] = err.Error()
		}
	}()
}

func (a *App) clearLoadErrors() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loadErrors = make(map[navigator.Load]string)
}
