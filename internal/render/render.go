// Package render formats client state as markdown for the terminal and tool
// surfaces.
package render

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-desk/internal/analysis"
	"github.com/bobmcallan/vire-desk/internal/common"
	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/bobmcallan/vire-desk/internal/navigator"
)

// Session formats who is logged in and where.
func Session(authenticated bool, role models.Role, state navigator.State, allowed []navigator.View) string {
	if !authenticated {
		return "Not logged in.\n"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Role:** %s\n", role))
	sb.WriteString(fmt.Sprintf("**View:** %s", state.View))
	if state.Selected != nil {
		sb.WriteString(fmt.Sprintf(" (%s)", state.Selected.Username))
	}
	sb.WriteString("\n")
	views := make([]string, len(allowed))
	for i, v := range allowed {
		views[i] = string(v)
	}
	sb.WriteString(fmt.Sprintf("**Views:** %s\n", strings.Join(views, ", ")))
	return sb.String()
}

// Analysis formats one analysis result with its chart range.
func Analysis(r models.AnalysisResult) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## %s", r.Symbol))
	if r.Name != "" && r.Name != r.Symbol {
		sb.WriteString(fmt.Sprintf(" (%s)", r.Name))
	}
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("**Price:** %s  %s (%s)\n",
		common.FormatMoney(r.Price), common.FormatSignedMoney(r.ChangeAbs), common.FormatSignedPct(r.ChangePct)))
	sb.WriteString(fmt.Sprintf("**Recommendation:** %s [%s]\n", r.Recommendation, r.Badge()))
	sb.WriteString(fmt.Sprintf("**Suggested Allocation:** %s\n", common.FormatPct(r.AllocationPct)))

	if len(r.Chart) > 0 {
		lo, hi := r.Chart[0].Price, r.Chart[0].Price
		for _, p := range r.Chart {
			if p.Price.LessThan(lo) {
				lo = p.Price
			}
			if p.Price.GreaterThan(hi) {
				hi = p.Price
			}
		}
		sb.WriteString(fmt.Sprintf("**Chart:** %d points, %s to %s, range %s - %s\n",
			len(r.Chart), r.Chart[0].Label, r.Chart[len(r.Chart)-1].Label, common.FormatMoney(lo), common.FormatMoney(hi)))
	}

	if r.AnalysisText != "" {
		sb.WriteString("\n")
		sb.WriteString(r.AnalysisText)
		sb.WriteString("\n")
	}
	if r.Reasoning != "" {
		sb.WriteString(fmt.Sprintf("\n**Reasoning:** %s\n", r.Reasoning))
	}
	return sb.String()
}

// Chat formats the session log, numbering entries from 1, with each entry's
// trade draft.
func Chat(entries []models.AnalysisResult, drafts map[string]analysis.Draft, pending string) string {
	var sb strings.Builder
	sb.WriteString("# Analysis Session\n\n")

	if len(entries) == 0 && pending == "" {
		sb.WriteString("No analyses yet. Try `analyze AAPL`.\n")
		return sb.String()
	}

	for i, e := range entries {
		sb.WriteString(fmt.Sprintf("### [%d]\n", i+1))
		sb.WriteString(Analysis(e))
		if d, ok := drafts[e.ID]; ok {
			sb.WriteString(fmt.Sprintf("\n**Trade:** %s x %s = %s\n",
				common.FormatQuantity(d.Quantity), common.FormatMoney(d.Price), common.FormatMoney(d.Total)))
		}
		sb.WriteString("\n")
	}
	if pending != "" {
		sb.WriteString(fmt.Sprintf("_Analyzing %s..._\n", pending))
	}
	return sb.String()
}

// Holdings formats a consolidated portfolio table and its summary.
func Holdings(title string, holdings []models.Holding, summary models.PortfolioSummary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("**Total Value:** %s\n", common.FormatMoney(summary.TotalValue)))
	sb.WriteString(fmt.Sprintf("**Total P/L:** %s\n", common.FormatSignedMoney(summary.TotalProfitLoss)))
	sb.WriteString(fmt.Sprintf("**Positions:** %d\n\n", summary.TotalPositions))

	if len(holdings) == 0 {
		sb.WriteString("No holdings.\n")
		return sb.String()
	}

	sb.WriteString("| Symbol | Qty | Avg Cost | Price | Value | P/L | P/L % |\n")
	sb.WriteString("|--------|-----|----------|-------|-------|-----|-------|\n")
	for _, h := range holdings {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
			h.Stock,
			common.FormatQuantity(h.Quantity),
			common.FormatMoney(h.CostBasis),
			common.FormatMoney(h.CurrentPrice),
			common.FormatMoney(h.TotalValue),
			common.FormatSignedMoney(h.ProfitLoss),
			common.FormatSignedPct(h.ProfitLossPct),
		))
	}
	return sb.String()
}

// Reports formats report history, newest first as received.
func Reports(title string, reports []models.Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))

	if len(reports) == 0 {
		sb.WriteString("No reports.\n")
		return sb.String()
	}

	sb.WriteString("| Date | Symbol | Recommendation | Analysis |\n")
	sb.WriteString("|------|--------|----------------|----------|\n")
	for _, r := range reports {
		date := "-"
		if !r.Timestamp.IsZero() {
			date = r.Timestamp.Format("2006-01-02 15:04")
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s [%s] | %s |\n",
			date, r.Stock, r.Recommendation, r.Badge(), truncate(r.Analysis, 80)))
	}
	return sb.String()
}

// Investors formats the analyst's investor list.
func Investors(investors []models.InvestorRef) string {
	var sb strings.Builder
	sb.WriteString("# Investors\n\n")

	if len(investors) == 0 {
		sb.WriteString("No investors.\n")
		return sb.String()
	}

	sb.WriteString("| ID | Username |\n")
	sb.WriteString("|----|----------|\n")
	for _, inv := range investors {
		sb.WriteString(fmt.Sprintf("| %d | %s |\n", inv.ID, inv.Username))
	}
	return sb.String()
}

// LoadErrors formats failed loads of the current view.
func LoadErrors(errs map[navigator.Load]string) string {
	if len(errs) == 0 {
		return ""
	}
	var sb strings.Builder
	for load, msg := range errs {
		sb.WriteString(fmt.Sprintf("> %s load failed: %s\n", load, msg))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
