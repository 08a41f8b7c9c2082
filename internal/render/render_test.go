package render

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/analysis"
	"github.com/bobmcallan/vire-desk/internal/app"
	"github.com/bobmcallan/vire-desk/internal/models"
	"github.com/bobmcallan/vire-desk/internal/navigator"
	"github.com/bobmcallan/vire-desk/internal/oversight"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestHoldings(t *testing.T) {
	holdings := []models.Holding{
		models.Holding{Stock: "AAPL", Quantity: d("5"), CostBasis: d("110"), CurrentPrice: d("130")}.Derive(),
	}
	out := Holdings("Portfolio", holdings, models.Summarize(holdings))

	for _, want := range []string{"# Portfolio", "$650.00", "+$100.00", "+18.18%", "| AAPL | 5 |", "**Positions:** 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHoldings_Empty(t *testing.T) {
	out := Holdings("Portfolio", nil, models.Summarize(nil))
	if !strings.Contains(out, "No holdings.") {
		t.Errorf("expected empty marker, got:\n%s", out)
	}
}

func TestChat(t *testing.T) {
	entries := []models.AnalysisResult{{
		ID:             "e1",
		Symbol:         "AAPL",
		Name:           "Apple Inc.",
		Price:          d("190.5"),
		ChangeAbs:      d("1.25"),
		ChangePct:      d("0.66"),
		Recommendation: "Strong Buy",
		AllocationPct:  d("20"),
		AnalysisText:   "Momentum is positive.",
		Chart:          []models.ChartPoint{{Label: "Day 1", Price: d("180")}, {Label: "Day 2", Price: d("190.5")}},
	}}
	drafts := map[string]analysis.Draft{"e1": {Quantity: d("2"), Price: d("190.5"), Total: d("381")}}

	out := Chat(entries, drafts, "MSFT")
	for _, want := range []string{"### [1]", "## AAPL (Apple Inc.)", "[strong-buy]", "20.00%", "2 x $190.50 = $381.00", "Analyzing MSFT", "Day 1 to Day 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReports(t *testing.T) {
	reports := []models.Report{{
		Stock:          "TSLA",
		Analysis:       strings.Repeat("x", 200),
		Recommendation: "SELL",
		Timestamp:      models.Timestamp{Time: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)},
	}}
	out := Reports("Reports", reports)
	if !strings.Contains(out, "2026-03-01 09:30") || !strings.Contains(out, "SELL [sell]") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Error("expected long analysis to be truncated")
	}
}

func TestSession(t *testing.T) {
	if out := Session(false, "", navigator.State{}, nil); out != "Not logged in.\n" {
		t.Errorf("unexpected output: %q", out)
	}
	state := navigator.State{Authenticated: true, Role: models.RoleAnalyst, View: navigator.ViewInvestorDetail,
		Selected: &models.InvestorRef{ID: 2, Username: "ines"}}
	out := Session(true, models.RoleAnalyst, state, []navigator.View{navigator.ViewChat, navigator.ViewInvestors})
	if !strings.Contains(out, "investor-detail (ines)") || !strings.Contains(out, "chat, investors") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestInvestors(t *testing.T) {
	out := Investors([]models.InvestorRef{{ID: 3, Username: "ivan"}})
	if !strings.Contains(out, "| 3 | ivan |") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestView(t *testing.T) {
	if out := View(app.Snapshot{}); !strings.HasPrefix(out, "Not logged in.") {
		t.Errorf("unexpected unauthenticated view: %q", out)
	}

	ines := models.InvestorRef{ID: 2, Username: "ines"}
	snap := app.Snapshot{
		Authenticated: true,
		Role:          models.RoleAnalyst,
		State:         navigator.State{Authenticated: true, Role: models.RoleAnalyst, View: navigator.ViewInvestorDetail, Selected: &ines},
		Oversight:     oversight.Snapshot{Selected: &ines},
		LoadErrors:    map[navigator.Load]string{navigator.LoadInvestorReports: "Invalid token"},
	}
	out := View(snap)
	for _, want := range []string{"# Portfolio: ines", "# Reports: ines", "investor-reports load failed: Invalid token"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
