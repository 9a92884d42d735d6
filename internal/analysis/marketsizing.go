package analysis

import (
	"context"
	"strings"
	"unicode/utf8"

	"clarity-workers/internal/models"
)

const (
	MarketSizingAnalyzerID = "marketSizingAnalyzer"
	segmentMaxLength       = 50
	countThreshold         = 1000
)

// MarketSizingAnalyzer derives one market sizing record from market and
// customer answers: the first short text answer names the segment, and
// number answers are read as a customer count (above 1000) or a price.
type MarketSizingAnalyzer struct{}

func (MarketSizingAnalyzer) ID() string { return MarketSizingAnalyzerID }

func (MarketSizingAnalyzer) Analyze(_ context.Context, s *models.Session, catalog Catalog) Result {
	res := Result{AnalyzerID: MarketSizingAnalyzerID, Outputs: []models.AnalyzerOutput{}}

	var (
		segment, segmentQID string
		price, count        *float64
		refs                []string
	)

	answered(s, catalog, func(q models.Question, a models.RawAnswer) {
		category := strings.ToLower(q.Category)
		if !strings.Contains(category, "market") && !strings.Contains(category, "customer") {
			return
		}

		if n, ok := numeric(a.Value); ok && q.InputType == models.InputTypeNumber {
			switch {
			case n > countThreshold && count == nil:
				count = &n
				refs = append(refs, q.ID)
			case n < countThreshold && price == nil:
				price = &n
				refs = append(refs, q.ID)
			}
			return
		}

		val := stringify(a.Value)
		if segment == "" && utf8.RuneCountInString(val) < segmentMaxLength {
			segment, segmentQID = val, q.ID
			refs = append(refs, q.ID)
		}
	})

	if segment == "" {
		res.Confidence = models.LevelLow
		res.Warnings = []string{"No market segment identified"}
		return res
	}

	sizing := models.MarketSizing{
		ID:      "ms_" + segmentQID,
		Segment: segment,
		Notes:   "Estimated from market inputs",
	}
	if price != nil && count != nil {
		tam := *price * *count
		sizing.TAM = &tam
		sizing.Notes += " (TAM calculated as " + formatNumber(*price) + " * " + formatNumber(*count) + ")"
	}

	res.Confidence = models.LevelMedium
	res.Outputs = append(res.Outputs, models.NewOutput(sizing, models.Provenance{
		Source:      models.SourceUserInput,
		References:  refs,
		Assumptions: []string{"Assuming provided numbers represent generic market volume and price"},
	}))
	return res
}
