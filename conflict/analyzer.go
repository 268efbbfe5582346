// Package conflict scores a day's provisional timeline against operating
// hours and the traveler's pace, producing the risk report review UIs show
// before a change is committed.
package conflict

import (
	"fmt"
	"math"
	"sort"

	"roamio/globals"
	"roamio/models"
	"roamio/timeparse"
)

type Analyzer struct {
	// ClosureMargin is how many minutes before closing an item may still
	// comfortably end. Ending strictly later than close-margin is flagged;
	// ending exactly at close-margin is not.
	ClosureMargin int
	Buffer        int
	// Enricher optionally rewrites summary and suggestions; the analyzer is
	// fully functional without it.
	Enricher Enricher
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		ClosureMargin: globals.ClosureMargin,
		Buffer:        globals.TravelBuffer,
	}
}

// activeMinutesLimit is the pace-derived fatigue threshold.
func activeMinutesLimit(pace models.Pace) int {
	switch pace {
	case models.PaceRelaxed:
		return 360
	case models.PacePacked:
		return 600
	default:
		return 480
	}
}

// Analyze computes the risk report for one day. It is pure and synchronous;
// operating hours must already be resolved on the items. Items with unknown
// hours never produce a closure risk: absence of data is evidence of nothing.
func (a *Analyzer) Analyze(day models.DayPlan, pace models.Pace) models.RiskReport {
	items := make([]models.ItineraryItem, len(day.Items))
	copy(items, day.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].StartTime < items[j].StartTime })

	var risks []models.ItemRisk
	limit := activeMinutesLimit(pace)
	active := 0
	fatigueFlagged := false

	for i, item := range items {
		active += item.DurationMinutes

		if r, ok := a.closureRisk(item); ok {
			risks = append(risks, r)
		}

		if i > 0 {
			prev := items[i-1]
			if prev.EndTime > item.StartTime {
				risks = append(risks, models.ItemRisk{
					ItemID:   item.ItemID,
					Title:    item.Title,
					Severity: models.SeverityHigh,
					Reason:   fmt.Sprintf("overlaps %q, which runs until %s", prev.Title, timeparse.FormatClockTime(prev.EndTime)),
					Category: models.RiskTimeConflict,
				})
			} else if r, ok := a.travelRisk(prev, item); ok {
				risks = append(risks, r)
			}
		}

		if !fatigueFlagged && active > limit && item.Kind != models.KindTransit {
			fatigueFlagged = true
			risks = append(risks, models.ItemRisk{
				ItemID:   item.ItemID,
				Title:    item.Title,
				Severity: models.SeverityMedium,
				Reason:   fmt.Sprintf("cumulative active time reaches %d min here, past the %s-pace limit of %d", active, pace, limit),
				Category: models.RiskFatigue,
			})
		}
	}

	report := models.RiskReport{
		FatigueScore: fatigueScore(active, limit),
		Risks:        risks,
	}
	report.ShouldWarn = fatigueFlagged
	for _, r := range risks {
		if r.Severity != models.SeverityLow {
			report.ShouldWarn = true
		}
	}
	report.Summary, report.Suggestions = a.describe(day, report, active, limit)
	return report
}

// FlaggedItems lists the ids that should carry a conflict marker: every item
// with a medium or high risk in the report. Recomputing after an edit drops
// the marker from items whose risk is gone.
func FlaggedItems(report models.RiskReport) map[string]bool {
	flagged := make(map[string]bool, len(report.Risks))
	for _, r := range report.Risks {
		if r.Severity != models.SeverityLow {
			flagged[r.ItemID] = true
		}
	}
	return flagged
}

func (a *Analyzer) closureRisk(item models.ItineraryItem) (models.ItemRisk, bool) {
	if item.Kind == models.KindTransit || item.OpenTime == nil || item.CloseTime == nil {
		return models.ItemRisk{}, false
	}
	open, close := *item.OpenTime, *item.CloseTime

	switch {
	case item.EndTime > close:
		return models.ItemRisk{
			ItemID:   item.ItemID,
			Title:    item.Title,
			Severity: models.SeverityHigh,
			Reason:   fmt.Sprintf("scheduled until %s but closes at %s", timeparse.FormatClockTime(item.EndTime), timeparse.FormatClockTime(close)),
			Category: models.RiskClosure,
		}, true
	case item.EndTime > close-a.ClosureMargin:
		return models.ItemRisk{
			ItemID:   item.ItemID,
			Title:    item.Title,
			Severity: models.SeverityMedium,
			Reason:   fmt.Sprintf("ends at %s, within %d min of the %s close", timeparse.FormatClockTime(item.EndTime), a.ClosureMargin, timeparse.FormatClockTime(close)),
			Category: models.RiskClosure,
		}, true
	case item.StartTime < open:
		return models.ItemRisk{
			ItemID:   item.ItemID,
			Title:    item.Title,
			Severity: models.SeverityMedium,
			Reason:   fmt.Sprintf("scheduled from %s but opens at %s", timeparse.FormatClockTime(item.StartTime), timeparse.FormatClockTime(open)),
			Category: models.RiskClosure,
		}, true
	}
	return models.ItemRisk{}, false
}

// travelRisk is a best-effort heuristic: far-apart consecutive stops with a
// thin gap between them. Distance is great-circle, not routed.
func (a *Analyzer) travelRisk(prev, next models.ItineraryItem) (models.ItemRisk, bool) {
	if prev.Location == nil || next.Location == nil {
		return models.ItemRisk{}, false
	}
	km := haversineKm(*prev.Location, *next.Location)
	gap := next.StartTime - prev.EndTime
	if km > 2 && gap < a.Buffer {
		return models.ItemRisk{
			ItemID:   next.ItemID,
			Title:    next.Title,
			Severity: models.SeverityMedium,
			Reason:   fmt.Sprintf("%.1f km from the previous stop with only %d min between them", km, gap),
			Category: models.RiskTravel,
		}, true
	}
	return models.ItemRisk{}, false
}

// fatigueScore maps active minutes onto 0-100 against the pace limit; the
// limit itself lands at 80, leaving headroom for overloaded days.
func fatigueScore(active, limit int) int {
	score := int(math.Round(float64(active) * 80 / float64(limit)))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (a *Analyzer) describe(day models.DayPlan, report models.RiskReport, active, limit int) (string, string) {
	summary := fmt.Sprintf("%s: %d items, %d active minutes", day.Date, len(day.Items), active)
	var suggestion string

	byCat := map[models.RiskCategory]int{}
	for _, r := range report.Risks {
		byCat[r.Category]++
	}
	switch {
	case byCat[models.RiskClosure] > 0:
		summary += fmt.Sprintf(", %d closing-time issue(s)", byCat[models.RiskClosure])
		suggestion = "Shift the flagged visits earlier or swap them with a nearby stop that stays open later."
	case byCat[models.RiskTimeConflict] > 0:
		summary += fmt.Sprintf(", %d overlap(s)", byCat[models.RiskTimeConflict])
		suggestion = "Resequence the day or shorten the overlapping items."
	case active > limit:
		suggestion = "The day runs past your pace; consider dropping an item or splitting it across days."
	}
	return summary, suggestion
}

func haversineKm(a, b models.Coordinates) float64 {
	const earthRadiusKm = 6371.0
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
