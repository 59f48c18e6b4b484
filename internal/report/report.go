// Package report turns a result record into the display form shown to a
// test taker: factor rows in canonical order with rounded averages and the
// interpretation of each factor.
package report

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TJerry3s/SCI-90test/internal/domain"
	"github.com/TJerry3s/SCI-90test/internal/scoring"
)

// DisplayPlaces is the number of decimal places shown for averages.
const DisplayPlaces = 2

func init() {
	// Averages are JSON numbers in rendered reports.
	decimal.MarshalJSONWithoutQuotes = true
}

// FactorRow is one factor line of a report.
type FactorRow struct {
	Name           string                `json:"name"`
	DisplayName    string                `json:"display_name"`
	Score          int                   `json:"score"`
	ItemCount      int                   `json:"item_count"`
	Average        decimal.Decimal       `json:"average"`
	Level          domain.FactorLevel    `json:"level"`
	Tone           string                `json:"tone"`
	Interpretation domain.Interpretation `json:"interpretation"`
}

// Report is the rendered view of a result record.
type Report struct {
	TotalScore       int              `json:"total_score"`
	TotalAverage     decimal.Decimal  `json:"total_average"`
	PositiveItems    int              `json:"positive_items"`
	RiskLevel        domain.RiskLevel `json:"risk_level"`
	MainIssueDisplay string           `json:"main_issue_display,omitempty"`
	Factors          []FactorRow      `json:"factors"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Round rounds a score average for display.
func Round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(DisplayPlaces)
}

// Build assembles a report for result using the engine's factor order and
// interpretation texts. Factor rows missing from result are skipped.
func Build(engine *scoring.Engine, result *domain.ResultRecord) *Report {
	rows := make([]FactorRow, 0, len(result.Factors))
	for _, fr := range engine.OrderedFactors(result) {
		interp := engine.InterpretFactor(fr.Name, fr.Average)
		rows = append(rows, FactorRow{
			Name:           fr.Name,
			DisplayName:    interp.DisplayName,
			Score:          fr.Score,
			ItemCount:      fr.ItemCount,
			Average:        Round(fr.Average),
			Level:          interp.Level,
			Tone:           interp.Tone,
			Interpretation: interp,
		})
	}

	r := &Report{
		TotalScore:    result.TotalScore,
		TotalAverage:  Round(result.TotalAverage),
		PositiveItems: result.PositiveItems,
		RiskLevel:     result.RiskLevel,
		Factors:       rows,
		CreatedAt:     result.CreatedAt,
	}
	if issue := result.RiskLevel.MainIssue; issue != nil {
		r.MainIssueDisplay = *issue
		if f, ok := engine.Scale().Factor(*issue); ok {
			r.MainIssueDisplay = f.DisplayName
		}
	}
	return r
}

// Text renders the report as plain text.
func (r *Report) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Risk level: %s\n", r.RiskLevel.Level)
	fmt.Fprintf(&b, "%s\n", r.RiskLevel.Description)
	fmt.Fprintf(&b, "Total score: %d (average %s)\n", r.TotalScore, r.TotalAverage.StringFixed(DisplayPlaces))
	fmt.Fprintf(&b, "Positive items: %d\n", r.PositiveItems)
	fmt.Fprintf(&b, "Elevated factors: %d\n", r.RiskLevel.HighFactorCount)
	if r.MainIssueDisplay != "" {
		fmt.Fprintf(&b, "Main issue: %s\n", r.MainIssueDisplay)
	}
	b.WriteString("\n")

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Factor\tScore\tAverage\tLevel")
	for _, row := range r.Factors {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			row.DisplayName, row.Score, row.Average.StringFixed(DisplayPlaces), row.Level)
	}
	tw.Flush()

	for _, row := range r.Factors {
		if row.Level == domain.FactorNormal {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%s)\n", row.DisplayName, row.Tone)
		fmt.Fprintf(&b, "%s\n", row.Interpretation.HighScoreMeaning)
		for _, s := range row.Interpretation.Suggestions {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}

	b.WriteString("\n")
	b.WriteString(r.RiskLevel.Advice)
	b.WriteString("\n")
	if r.RiskLevel.RecommendProfessional {
		b.WriteString("A consultation with a mental health professional is recommended.\n")
	}
	return b.String()
}
