package models

// ItemKind classifies a scheduled unit.
type ItemKind string

const (
	KindHotel    ItemKind = "hotel"
	KindFood     ItemKind = "food"
	KindActivity ItemKind = "activity"
	KindTransit  ItemKind = "transit"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// ItineraryItem is one scheduled unit of a day. Start/End/Open/Close are
// minutes of day. OpenTime/CloseTime nil means "unknown", not "always open".
type ItineraryItem struct {
	ItemID          string       `json:"itemid"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	Kind            ItemKind     `json:"kind"`
	StartTime       int          `json:"start_time"`
	EndTime         int          `json:"end_time"`
	DurationMinutes int          `json:"duration_minutes"`
	OpenTime        *int         `json:"open_time,omitempty"`
	CloseTime       *int         `json:"close_time,omitempty"`
	Conflict        bool         `json:"conflict,omitempty"`
	Location        *Coordinates `json:"location,omitempty"`
}

// DayPlan is one calendar date plus its ordered items and the minute-of-day
// anchor the schedule begins at. Deleting every item leaves an empty but
// still-present day.
type DayPlan struct {
	Date     string          `json:"date"` // YYYY-MM-DD
	DayStart int             `json:"day_start"`
	Items    []ItineraryItem `json:"items"`
}

// Clone returns a deep copy; provisional edits always work on a clone so the
// canonical plan is never reachable from a handler.
func (d DayPlan) Clone() DayPlan {
	out := d
	out.Items = make([]ItineraryItem, len(d.Items))
	copy(out.Items, d.Items)
	for i := range out.Items {
		if d.Items[i].OpenTime != nil {
			v := *d.Items[i].OpenTime
			out.Items[i].OpenTime = &v
		}
		if d.Items[i].CloseTime != nil {
			v := *d.Items[i].CloseTime
			out.Items[i].CloseTime = &v
		}
		if d.Items[i].Location != nil {
			loc := *d.Items[i].Location
			out.Items[i].Location = &loc
		}
	}
	return out
}

// Pace is the traveler's stated intensity preference.
type Pace string

const (
	PaceRelaxed  Pace = "relaxed"
	PaceBalanced Pace = "balanced"
	PacePacked   Pace = "packed"
)

// TripConfig carries the onboarding-form fields the engine needs; the rest of
// the form stays with the content-generation collaborator.
type TripConfig struct {
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Pace        Pace   `json:"pace"`
}
