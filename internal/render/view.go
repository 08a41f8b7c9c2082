package render

import (
	"strings"

	"github.com/bobmcallan/vire-desk/internal/app"
	"github.com/bobmcallan/vire-desk/internal/navigator"
)

// View renders the screen the snapshot's navigator state points at,
// followed by any failed loads.
func View(snap app.Snapshot) string {
	if !snap.Authenticated {
		return "Not logged in. Use `login` or `register`.\n"
	}

	var sb strings.Builder
	switch snap.State.View {
	case navigator.ViewChat:
		sb.WriteString(Chat(snap.Entries, snap.Drafts, snap.Pending))
	case navigator.ViewPortfolio:
		sb.WriteString(Holdings("Portfolio", snap.Holdings, snap.Summary))
	case navigator.ViewReports:
		sb.WriteString(Reports("Reports", snap.Reports))
	case navigator.ViewInvestors:
		sb.WriteString(Investors(snap.Oversight.Investors))
	case navigator.ViewInvestorDetail:
		name := ""
		if snap.Oversight.Selected != nil {
			name = snap.Oversight.Selected.Username
		}
		sb.WriteString(Holdings("Portfolio: "+name, snap.Oversight.Holdings, snap.Oversight.Summary))
		sb.WriteString("\n")
		sb.WriteString(Reports("Reports: "+name, snap.Oversight.Reports))
	}
	sb.WriteString(LoadErrors(snap.LoadErrors))
	return sb.String()
}
