package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ChartPoint is one labelled closing price of a chart series.
type ChartPoint struct {
	Label string          `json:"label"`
	Price decimal.Decimal `json:"price"`
}

// AnalysisResult bundles the quote, AI analysis, recommendation and optional
// chart series for one analyzed symbol. It is immutable once appended to the
// session log; ID identifies the entry within the log.
type AnalysisResult struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	ChangeAbs      decimal.Decimal `json:"change"`
	ChangePct      decimal.Decimal `json:"percent_change"`
	AnalysisText   string          `json:"analysis"`
	Recommendation string          `json:"recommendation"`
	AllocationPct  decimal.Decimal `json:"portfolio_percent"`
	Reasoning      string          `json:"reasoning,omitempty"`
	Chart          []ChartPoint    `json:"chart,omitempty"`
}

// Badge returns the display class for the result's recommendation.
func (r AnalysisResult) Badge() string {
	return BadgeClass(r.Recommendation)
}

// Report is a previously persisted analysis retrieved from backend history.
type Report struct {
	Stock          string    `json:"stock"`
	Analysis       string    `json:"analysis"`
	Recommendation string    `json:"recommendation"`
	Timestamp      Timestamp `json:"timestamp"`
}

// Badge returns the display class for the report's recommendation.
func (r Report) Badge() string {
	return BadgeClass(r.Recommendation)
}

// InvestorRef identifies an investor visible to an analyst.
type InvestorRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// BadgeClass maps a free-form recommendation to a display class:
// "Strong Buy" -> "strong-buy". Presentation only.
func BadgeClass(recommendation string) string {
	fields := strings.Fields(strings.ToLower(recommendation))
	return strings.Join(fields, "-")
}
