package models

import (
	"sort"
	"strings"
	"time"
)

// PriceCondition is the grading scale shared by listings and price points.
type PriceCondition string

const (
	PriceConditionNM  PriceCondition = "NM"  // Near Mint
	PriceConditionLP  PriceCondition = "LP"  // Lightly Played
	PriceConditionMP  PriceCondition = "MP"  // Moderately Played
	PriceConditionHP  PriceCondition = "HP"  // Heavily Played
	PriceConditionDMG PriceCondition = "DMG" // Damaged
)

// AllPriceConditions returns all valid price conditions
func AllPriceConditions() []PriceCondition {
	return []PriceCondition{
		PriceConditionNM,
		PriceConditionLP,
		PriceConditionMP,
		PriceConditionHP,
		PriceConditionDMG,
	}
}

// ParseCondition accepts the short codes and the spelled-out grades used by
// marketplaces ("NEAR MINT", "lightly played"). Empty input means NM.
func ParseCondition(s string) (PriceCondition, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NM", "NEAR MINT", "M", "MINT":
		return PriceConditionNM, true
	case "LP", "LIGHTLY PLAYED", "EX", "EXCELLENT":
		return PriceConditionLP, true
	case "MP", "MODERATELY PLAYED", "GD", "GOOD":
		return PriceConditionMP, true
	case "HP", "HEAVILY PLAYED", "PL", "PLAYED":
		return PriceConditionHP, true
	case "DMG", "DAMAGED", "PR", "POOR":
		return PriceConditionDMG, true
	default:
		return "", false
	}
}

// PricePoint is one observed market price for a card. RecordedAt is when the
// price was observed at the source, which may differ from insertion order.
type PricePoint struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	CardID     string         `json:"card_id" gorm:"not null;index:idx_price_card_recorded"`
	Condition  PriceCondition `json:"condition" gorm:"not null;default:'NM'"`
	PriceUSD   float64        `json:"price_usd"`
	Source     string         `json:"source"`
	RecordedAt time.Time      `json:"recorded_at" gorm:"not null;index:idx_price_card_recorded"`
	CreatedAt  time.Time      `json:"created_at"`
}

// PriceSummary aggregates a bounded window of recent price points.
type PriceSummary struct {
	Count     int        `json:"count"`
	Latest    float64    `json:"latest"`
	LatestAt  *time.Time `json:"latest_at"`
	Average   float64    `json:"average"`
	Min       float64    `json:"min"`
	Max       float64    `json:"max"`
	Window    int        `json:"window"`
	Condition string     `json:"condition,omitempty"`
}

// SummarizePrices computes latest/average/min/max over points. "Latest" is
// the point with the greatest RecordedAt (highest ID on ties) regardless of
// the order points are passed in. Only the newest window points are used
// when window > 0.
func SummarizePrices(points []PricePoint, window int) PriceSummary {
	summary := PriceSummary{Window: window}
	if len(points) == 0 {
		return summary
	}

	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].RecordedAt.Equal(sorted[j].RecordedAt) {
			return sorted[i].RecordedAt.After(sorted[j].RecordedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if window > 0 && len(sorted) > window {
		sorted = sorted[:window]
	}

	latestAt := sorted[0].RecordedAt
	summary.Count = len(sorted)
	summary.Latest = sorted[0].PriceUSD
	summary.LatestAt = &latestAt
	summary.Min = sorted[0].PriceUSD
	summary.Max = sorted[0].PriceUSD

	var total float64
	for _, p := range sorted {
		total += p.PriceUSD
		if p.PriceUSD < summary.Min {
			summary.Min = p.PriceUSD
		}
		if p.PriceUSD > summary.Max {
			summary.Max = p.PriceUSD
		}
	}
	summary.Average = total / float64(len(sorted))
	return summary
}
