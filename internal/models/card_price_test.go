package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		input    string
		expected PriceCondition
		ok       bool
	}{
		{"NM", PriceConditionNM, true},
		{"", PriceConditionNM, true},
		{"near mint", PriceConditionNM, true},
		{"LIGHTLY PLAYED", PriceConditionLP, true},
		{"mp", PriceConditionMP, true},
		{"Heavily Played", PriceConditionHP, true},
		{"DAMAGED", PriceConditionDMG, true},
		{"graded 10", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseCondition(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAllPriceConditions(t *testing.T) {
	conditions := AllPriceConditions()
	assert.Len(t, conditions, 5)
	for _, c := range conditions {
		parsed, ok := ParseCondition(string(c))
		assert.True(t, ok)
		assert.Equal(t, c, parsed)
	}
}

func TestSummarizePricesUsesRecency(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// Inserted 300, 100, 200 but observed 100, 200, 300 in time.
	points := []PricePoint{
		{ID: 1, PriceUSD: 300, RecordedAt: base.Add(2 * time.Hour)},
		{ID: 2, PriceUSD: 100, RecordedAt: base},
		{ID: 3, PriceUSD: 200, RecordedAt: base.Add(time.Hour)},
	}

	summary := SummarizePrices(points, 30)
	require.Equal(t, 3, summary.Count)
	assert.Equal(t, 300.0, summary.Latest)
	assert.Equal(t, base.Add(2*time.Hour), *summary.LatestAt)
	assert.InDelta(t, 200.0, summary.Average, 1e-9)
	assert.Equal(t, 100.0, summary.Min)
	assert.Equal(t, 300.0, summary.Max)

	// Latest is not the last inserted point.
	reordered := []PricePoint{points[0], points[2], points[1]}
	assert.Equal(t, 300.0, SummarizePrices(reordered, 30).Latest)
}

func TestSummarizePricesWindow(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	var points []PricePoint
	for i := 0; i < 5; i++ {
		points = append(points, PricePoint{ID: uint(i + 1), PriceUSD: float64(10 * (i + 1)), RecordedAt: base.AddDate(0, 0, i)})
	}

	summary := SummarizePrices(points, 2)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 50.0, summary.Latest)
	assert.Equal(t, 40.0, summary.Min)
	assert.InDelta(t, 45.0, summary.Average, 1e-9)
}

func TestSummarizePricesTieBreaksOnID(t *testing.T) {
	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []PricePoint{
		{ID: 7, PriceUSD: 5, RecordedAt: at},
		{ID: 9, PriceUSD: 6, RecordedAt: at},
	}
	assert.Equal(t, 6.0, SummarizePrices(points, 0).Latest)
}

func TestSummarizePricesEmpty(t *testing.T) {
	summary := SummarizePrices(nil, 10)
	assert.Equal(t, 0, summary.Count)
	assert.Nil(t, summary.LatestAt)
	assert.Equal(t, 10, summary.Window)
}

func TestSplitListRoundTrip(t *testing.T) {
	card := Card{Types: "Fire" + ListDelimiter + "Flying"}
	assert.Equal(t, []string{"Fire", "Flying"}, card.TypeList())
	assert.Nil(t, SplitList("   "))
}

func TestCardLabel(t *testing.T) {
	assert.Equal(t, "Pikachu #25", (&Card{Name: "Pikachu", CardNumber: "25"}).Label())
	assert.Equal(t, "Pikachu", (&Card{Name: "Pikachu"}).Label())
	assert.Equal(t, "<unnamed> #7", (&Card{CardNumber: "7"}).Label())
}

func TestSearchKey(t *testing.T) {
	assert.Equal(t, "flabebe", SearchKey("Flabébé"))
	assert.Equal(t, "nidoran f", SearchKey("Nidoran♀"))
	assert.Equal(t, "pokemon center lady", SearchKey("  Pokémon   Center Lady "))
}
