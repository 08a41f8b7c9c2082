// Package navigator implements the role-gated view state machine.
//
// States are keyed by (authenticated, role, view). Investors move between
// chat, portfolio and reports; analysts between chat, the investor list and
// the detail view of one selected investor. Out-of-role views are never
// offered and requests for them leave the state unchanged.
package navigator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bobmcallan/vire-desk/internal/models"
)

// View names a screen.
type View string

const (
	ViewNone           View = ""
	ViewChat           View = "chat"
	ViewPortfolio      View = "portfolio"
	ViewReports        View = "reports"
	ViewInvestors      View = "investors"
	ViewInvestorDetail View = "investor-detail"
)

// ErrUnreachable is returned for transitions the current state does not offer.
var ErrUnreachable = errors.New("view not reachable")

// Load names a backend read triggered by entering a state.
type Load string

const (
	LoadPortfolio         Load = "portfolio"
	LoadReports           Load = "reports"
	LoadInvestors         Load = "investors"
	LoadInvestorPortfolio Load = "investor-portfolio"
	LoadInvestorReports   Load = "investor-reports"
)

// State is an immutable snapshot of the navigator.
type State struct {
	Authenticated bool
	Role          models.Role
	View          View
	Selected      *models.InvestorRef
	Generation    uint64
}

// Key identifies the state for stale-result checks. Two states with the same
// key render the same data.
func (s State) Key() string {
	if s.Selected != nil {
		return fmt.Sprintf("%d:%s:%d", s.Generation, s.View, s.Selected.ID)
	}
	return fmt.Sprintf("%d:%s", s.Generation, s.View)
}

var allowed = map[models.Role][]View{
	models.RoleInvestor: {ViewChat, ViewPortfolio, ViewReports},
	models.RoleAnalyst:  {ViewChat, ViewInvestors},
}

// Landing returns the view entered right after login.
func Landing(role models.Role) View {
	switch role {
	case models.RoleAnalyst:
		return ViewInvestors
	case models.RoleInvestor:
		return ViewPortfolio
	}
	return ViewNone
}

// LoadsFor names the loads entering s triggers.
func LoadsFor(s State) []Load {
	if !s.Authenticated {
		return nil
	}
	switch s.View {
	case ViewPortfolio:
		return []Load{LoadPortfolio}
	case ViewReports:
		return []Load{LoadReports}
	case ViewInvestors:
		return []Load{LoadInvestors}
	case ViewInvestorDetail:
		return []Load{LoadInvestorPortfolio, LoadInvestorReports}
	}
	return nil
}

// Navigator holds the current state. It is safe for concurrent use.
type Navigator struct {
	mu    sync.RWMutex
	state State
}

// New returns a navigator in the unauthenticated state.
func New() *Navigator {
	return &Navigator{}
}

// State returns the current snapshot.
func (n *Navigator) State() State {
	n.mu.RLock()
	defer n.mu.RUnlock()
	s := n.state
	if s.Selected != nil {
		ref := *s.Selected
		s.Selected = &ref
	}
	return s
}

// Allowed returns the views Go accepts from the current state.
func (n *Navigator) Allowed() []View {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if !n.state.Authenticated {
		return nil
	}
	return append([]View(nil), allowed[n.state.Role]...)
}

// Enter moves from unauthenticated to the role's landing view.
func (n *Navigator) Enter(role models.Role) (State, error) {
	if !role.Valid() {
		return n.State(), fmt.Errorf("%w: unknown role %q", ErrUnreachable, role)
	}
	n.mu.Lock()
	n.transition(State{Authenticated: true, Role: role, View: Landing(role)})
	n.mu.Unlock()
	return n.State(), nil
}

// Go moves to view if the role offers it. Investor detail is only reachable
// through Select.
func (n *Navigator) Go(view View) (State, error) {
	n.mu.Lock()
	if !n.state.Authenticated || !offers(n.state.Role, view) {
		n.mu.Unlock()
		return n.State(), fmt.Errorf("%w: %s", ErrUnreachable, view)
	}
	n.transition(State{Authenticated: true, Role: n.state.Role, View: view})
	n.mu.Unlock()
	return n.State(), nil
}

// Select opens the detail view of ref from the investor list.
func (n *Navigator) Select(ref models.InvestorRef) (State, error) {
	n.mu.Lock()
	if !n.state.Authenticated || n.state.Role != models.RoleAnalyst ||
		(n.state.View != ViewInvestors && n.state.View != ViewInvestorDetail) {
		n.mu.Unlock()
		return n.State(), fmt.Errorf("%w: %s", ErrUnreachable, ViewInvestorDetail)
	}
	n.transition(State{Authenticated: true, Role: models.RoleAnalyst, View: ViewInvestorDetail, Selected: &ref})
	n.mu.Unlock()
	return n.State(), nil
}

// Back returns from investor detail to the list and clears the selection.
func (n *Navigator) Back() (State, error) {
	n.mu.Lock()
	if n.state.View != ViewInvestorDetail {
		n.mu.Unlock()
		return n.State(), fmt.Errorf("%w: back from %s", ErrUnreachable, n.state.View)
	}
	n.transition(State{Authenticated: true, Role: models.RoleAnalyst, View: ViewInvestors})
	n.mu.Unlock()
	return n.State(), nil
}

// Reset returns to the unauthenticated state.
func (n *Navigator) Reset() State {
	n.mu.Lock()
	n.transition(State{})
	n.mu.Unlock()
	return n.State()
}

// Current reports whether s is still the live state.
func (n *Navigator) Current(s State) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state.Generation == s.Generation
}

// transition installs next with a bumped generation. Callers hold n.mu.
func (n *Navigator) transition(next State) {
	next.Generation = n.state.Generation + 1
	n.state = next
}

func offers(role models.Role, view View) bool {
	for _, v := range allowed[role] {
		if v == view {
			return true
		}
	}
	return false
}
