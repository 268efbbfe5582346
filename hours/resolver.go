// Package hours refreshes itinerary items with real operating hours from the
// place service. Resolution is best effort: any failure leaves the item
// untouched, and the whole pass is idempotent and safe to re-run.
package hours

import (
	"context"
	"log"
	"time"

	"roamio/conmap"
	"roamio/globals"
	"roamio/models"
	"roamio/placeapi"
	"roamio/retry"
	"roamio/timeparse"
)

type Resolver struct {
	Places placeapi.Service
	// Limit bounds concurrent upstream lookups.
	Limit        int
	MaxAttempts  int
	InitialDelay time.Duration
}

func NewResolver(places placeapi.Service) *Resolver {
	return &Resolver{
		Places:       places,
		Limit:        globals.HoursLookupLimit,
		MaxAttempts:  globals.HoursLookupAttempts,
		InitialDelay: globals.HoursLookupBaseDelay * time.Millisecond,
	}
}

// Resolve returns the items with OpenTime/CloseTime refreshed where the
// lookup succeeded. Transit items and untitled items are skipped. Resolve
// never returns an error; per-item failures degrade to the unchanged item.
func (r *Resolver) Resolve(ctx context.Context, items []models.ItineraryItem, destination, date string) []models.ItineraryItem {
	weekday, ok := weekdayOf(date)
	if !ok {
		log.Printf("hours: bad date %q; leaving items unchanged", date)
		return items
	}

	results, _ := conmap.Map(ctx, items, r.Limit, func(ctx context.Context, item models.ItineraryItem) (models.ItineraryItem, error) {
		if item.Kind == models.KindTransit || item.Title == "" {
			return item, nil
		}

		open, close, err := r.lookup(ctx, item.Title, destination, weekday)
		if err != nil {
			log.Printf("hours: %q unresolved: %v", item.Title, err)
			return item, nil
		}
		item.OpenTime = &open
		item.CloseTime = &close
		return item, nil
	})
	return results
}

// lookup runs search -> details -> weekday period for one title.
func (r *Resolver) lookup(ctx context.Context, title, destination string, weekday int) (int, int, error) {
	query := title
	if destination != "" {
		query = title + " " + destination
	}

	candidates, err := retry.Invoke(ctx, "place search", func(ctx context.Context) ([]placeapi.Candidate, error) {
		return r.Places.Search(ctx, query)
	}, r.MaxAttempts, r.InitialDelay)
	if err != nil {
		return 0, 0, err
	}
	if len(candidates) == 0 {
		return 0, 0, errNoMatch
	}

	details, err := retry.Invoke(ctx, "place details", func(ctx context.Context) (*placeapi.Details, error) {
		return r.Places.Details(ctx, candidates[0].PlaceID, []string{"opening_hours", "name"})
	}, r.MaxAttempts, r.InitialDelay)
	if err != nil {
		return 0, 0, err
	}

	for _, p := range details.Periods {
		if p.Weekday != weekday {
			continue
		}
		open, err := timeparse.ParseClockTime(p.Open)
		if err != nil {
			return 0, 0, err
		}
		close, err := timeparse.ParseClockTime(p.Close)
		if err != nil {
			return 0, 0, err
		}
		return open, close, nil
	}
	return 0, 0, errNoPeriod
}

func weekdayOf(date string) (int, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, false
	}
	return int(t.Weekday()), true
}
