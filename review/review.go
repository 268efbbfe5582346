// Package review runs the snapshot / propose / confirm loop around an edit
// session: before-and-after plans per day plus the risk report, accepted or
// rejected as one unit.
package review

import (
	"context"
	"errors"
	"log"

	"roamio/conflict"
	"roamio/models"
	"roamio/timeline"
)

// ErrSessionConflict tells the caller to restart the edit: canonical state
// moved while the session was open. Never force-applied.
var ErrSessionConflict = errors.New("plan changed during review; retry the edit")

type Protocol struct {
	session  *timeline.Session
	analyzer *conflict.Analyzer
	before   map[string]models.DayPlan
}

func NewProtocol(session *timeline.Session, analyzer *conflict.Analyzer) *Protocol {
	return &Protocol{session: session, analyzer: analyzer}
}

// BeginEdit snapshots canonical plans for the given dates and opens the edit
// session on them.
func (p *Protocol) BeginEdit(dates ...string) error {
	before := make(map[string]models.DayPlan, len(dates))
	for _, date := range dates {
		day, err := p.session.CanonicalDay(date)
		if err != nil {
			return err
		}
		before[date] = day
	}
	if err := p.session.BeginEdit(dates...); err != nil {
		return err
	}
	p.before = before
	return nil
}

// ProposeEnd analyzes every edited day's provisional state and returns the
// change set for confirmation. A panicking analysis degrades to a
// flag-for-manual-review report rather than passing silently.
func (p *Protocol) ProposeEnd(ctx context.Context) (models.ChangeSet, error) {
	dates := p.session.EditedDates()
	if len(dates) == 0 {
		return models.ChangeSet{}, timeline.ErrNotEditing
	}

	cs := models.ChangeSet{SessionID: p.session.ID}
	for _, date := range dates {
		after, err := p.session.Provisional(date)
		if err != nil {
			return models.ChangeSet{}, err
		}

		report := p.analyzeSafely(ctx, after)

		// carry the report's verdict onto the items so the After snapshot
		// (and, once applied, the canonical plan) marks what was flagged
		if err := p.session.UpdateConflictFlags(date, conflict.FlaggedItems(report)); err != nil {
			return models.ChangeSet{}, err
		}
		if after, err = p.session.Provisional(date); err != nil {
			return models.ChangeSet{}, err
		}

		cs.Changes = append(cs.Changes, models.DayChange{
			Date:   date,
			Before: p.before[date],
			After:  after,
			Report: report,
		})
	}
	return cs, nil
}

func (p *Protocol) analyzeSafely(ctx context.Context, day models.DayPlan) (report models.RiskReport) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("review: analysis failed for %s: %v", day.Date, r)
			report = models.RiskReport{
				ShouldWarn: true,
				Summary:    "Automatic analysis failed; review this day manually.",
			}
		}
	}()

	report = p.analyzer.Analyze(day, p.session.Pace)
	p.analyzer.EnrichReport(ctx, day, p.session.Pace, &report)
	return report
}

// Apply commits the change set's dates atomically. On ErrSessionConflict
// nothing was mutated and the edit session stays open for inspection.
func (p *Protocol) Apply(cs models.ChangeSet) error {
	if cs.SessionID != p.session.ID {
		return errors.New("change set belongs to another session")
	}
	if err := p.session.Apply(); err != nil {
		if errors.Is(err, timeline.ErrConcurrentEdit) {
			return ErrSessionConflict
		}
		return err
	}
	p.before = nil
	return nil
}

// Discard drops the provisional state; canonical plans are untouched.
func (p *Protocol) Discard() error {
	if err := p.session.Discard(); err != nil {
		return err
	}
	p.before = nil
	return nil
}
