package memory

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-desk/internal/models"
)

const chartDays = 30

var (
	hundred     = decimal.NewFromInt(100)
	strongTrend = decimal.NewFromInt(5)
	mildTrend   = decimal.NewFromInt(2)
)

// drift returns a deterministic 30-day move for symbol in [-8%, +8%].
func drift(symbol string) decimal.Decimal {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return decimal.NewFromInt(int64(h.Sum32()%161) - 80).Div(decimal.NewFromInt(10))
}

// series builds a chart ending at price whose first point sits drift% below
// (or above) it. Points are evenly spaced.
func series(symbol string, price decimal.Decimal) []models.ChartPoint {
	start := price.Div(decimal.NewFromInt(1).Add(drift(symbol).Div(hundred))).Round(2)
	step := price.Sub(start).Div(decimal.NewFromInt(chartDays - 1))

	points := make([]models.ChartPoint, chartDays)
	for i := range points {
		p := start.Add(step.Mul(decimal.NewFromInt(int64(i)))).Round(2)
		if i == chartDays-1 {
			p = price
		}
		points[i] = models.ChartPoint{Label: fmt.Sprintf("Day %d", i+1), Price: p}
	}
	return points
}

// trendPct is the percentage move from the first to the last chart point.
func trendPct(points []models.ChartPoint) decimal.Decimal {
	if len(points) < 2 || points[0].Price.IsZero() {
		return decimal.Zero
	}
	first, last := points[0].Price, points[len(points)-1].Price
	return last.Sub(first).Div(first).Mul(hundred)
}

// classify maps a 30-day trend to a description, a recommendation and a
// starting allocation.
func classify(trend decimal.Decimal) (desc, rec string, alloc int64) {
	switch {
	case trend.GreaterThan(strongTrend):
		return "strong upward trend", "STRONG BUY", 22
	case trend.GreaterThan(mildTrend):
		return "moderate upward trend", "BUY", 15
	case trend.GreaterThan(mildTrend.Neg()):
		return "sideways/consolidating", "HOLD", 8
	case trend.GreaterThan(strongTrend.Neg()):
		return "moderate downward trend", "SELL", 3
	default:
		return "strong downward trend", "STRONG SELL", 0
	}
}

// consistentAllocation forces the allocation into the band implied by the
// recommendation.
func consistentAllocation(rec string, alloc decimal.Decimal) decimal.Decimal {
	r := strings.ToUpper(rec)
	switch {
	case strings.Contains(r, "STRONG BUY") && alloc.LessThan(decimal.NewFromInt(10)):
		return decimal.NewFromInt(20)
	case strings.Contains(r, "BUY") && !strings.Contains(r, "STRONG") && alloc.LessThan(decimal.NewFromInt(10)):
		return decimal.NewFromInt(12)
	case strings.Contains(r, "SELL") && alloc.GreaterThan(decimal.NewFromInt(5)):
		return decimal.Zero
	case strings.Contains(r, "HOLD") && (alloc.LessThan(decimal.NewFromInt(5)) || alloc.GreaterThan(decimal.NewFromInt(12))):
		return decimal.NewFromInt(8)
	}
	return alloc
}

// analyze produces a deterministic result for symbol at price.
func analyze(symbol string, price decimal.Decimal) models.AnalysisResult {
	chart := series(symbol, price)
	prev := chart[len(chart)-2].Price
	change := price.Sub(prev).Round(2)
	changePct := decimal.Zero
	if !prev.IsZero() {
		changePct = change.Div(prev).Mul(hundred).Round(2)
	}

	trend := trendPct(chart).Round(2)
	desc, rec, alloc := classify(trend)

	return models.AnalysisResult{
		Symbol:    symbol,
		Name:      symbol,
		Price:     price,
		ChangeAbs: change,
		ChangePct: changePct,
		AnalysisText: fmt.Sprintf(
			"Technical analysis of %s: a %s over 30 days (%s%%) with a %s%% move today.",
			symbol, desc, trend.StringFixed(2), changePct.StringFixed(2)),
		Recommendation: rec,
		AllocationPct:  consistentAllocation(rec, decimal.NewFromInt(alloc)),
		Reasoning:      fmt.Sprintf("30-day trend %s%%; daily change %s%%.", trend.StringFixed(2), changePct.StringFixed(2)),
		Chart:          chart,
	}
}
