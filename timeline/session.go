// Package timeline owns a trip's canonical day plans and recomputes item
// timing under edits. A session is Stable until BeginEdit clones the chosen
// days into provisional state; mutations touch only the clones, and Apply or
// Discard returns the session to Stable.
package timeline

import (
	"context"
	"sort"
	"sync"

	"roamio/globals"
	"roamio/models"
	"roamio/utils"
)

type Session struct {
	ID          string
	Destination string
	Pace        models.Pace

	// policy knobs, minute units
	Buffer       int
	DurationStep int

	mu        sync.Mutex
	canonical map[string]models.DayPlan
	dates     []string // sorted canonical date keys

	editing     bool
	provisional map[string]models.DayPlan
	editVersion uint64
	version     uint64

	// cancelled when the edit session ends; background work for the edit
	// (hours refresh) runs under it
	editCtx    context.Context
	editCancel context.CancelFunc
}

// NewSession takes ownership of the generated day plans. Items without an id
// get one; a day without an anchor gets the default day start.
func NewSession(cfg models.TripConfig, days []models.DayPlan) *Session {
	s := &Session{
		ID:           utils.GetUUID(),
		Destination:  cfg.Destination,
		Pace:         cfg.Pace,
		Buffer:       globals.TravelBuffer,
		DurationStep: globals.DurationStep,
		canonical:    make(map[string]models.DayPlan, len(days)),
	}
	for _, d := range days {
		day := d.Clone()
		if day.DayStart == 0 {
			day.DayStart = globals.DefaultDayStart
		}
		for i := range day.Items {
			if day.Items[i].ItemID == "" {
				day.Items[i].ItemID = utils.GetUUID()
			}
		}
		s.canonical[day.Date] = day
		s.dates = append(s.dates, day.Date)
	}
	sort.Strings(s.dates)
	return s
}

// Version increments on every successful Apply; edit sessions use it for the
// optimistic-concurrency check.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Canonical returns clones of every day, items in start-time order.
func (s *Session) Canonical() []models.DayPlan {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.DayPlan, 0, len(s.dates))
	for _, date := range s.dates {
		day := s.canonical[date].Clone()
		sort.SliceStable(day.Items, func(i, j int) bool {
			return day.Items[i].StartTime < day.Items[j].StartTime
		})
		out = append(out, day)
	}
	return out
}

// BeginEdit clones the given dates into provisional state. The session must
// be Stable and every date must exist.
func (s *Session) BeginEdit(dates ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editing {
		return ErrAlreadyEditing
	}
	if len(dates) == 0 {
		return validationf("no dates given")
	}

	prov := make(map[string]models.DayPlan, len(dates))
	for _, date := range dates {
		day, ok := s.canonical[date]
		if !ok {
			return validationf("unknown date %q", date)
		}
		prov[date] = day.Clone()
	}

	s.provisional = prov
	s.editing = true
	s.editVersion = s.version
	s.editCtx, s.editCancel = context.WithCancel(context.Background())
	return nil
}

// EditContext is cancelled when the edit session is applied or discarded.
// Outside an edit it is a background context.
func (s *Session) EditContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.editCtx == nil {
		return context.Background()
	}
	return s.editCtx
}

// Editing reports whether an edit session is open.
func (s *Session) Editing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// EditedDates returns the sorted dates in the open edit session.
func (s *Session) EditedDates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	dates := make([]string, 0, len(s.provisional))
	for date := range s.provisional {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// Provisional returns a clone of one provisional day in sequence order.
func (s *Session) Provisional(date string) (models.DayPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return models.DayPlan{}, err
	}
	return day.Clone(), nil
}

// CanonicalDay returns a clone of one canonical day.
func (s *Session) CanonicalDay(date string) (models.DayPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, ok := s.canonical[date]
	if !ok {
		return models.DayPlan{}, validationf("unknown date %q", date)
	}
	return day.Clone(), nil
}

func (s *Session) provisionalDay(date string) (*models.DayPlan, error) {
	if !s.editing {
		return nil, ErrNotEditing
	}
	day, ok := s.provisional[date]
	if !ok {
		return nil, validationf("date %q is not part of this edit session", date)
	}
	return &day, nil
}

// Reorder replaces the item sequence. It never changes times; callers wanting
// re-flow follow up with Resequence.
func (s *Session) Reorder(date string, newOrder []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}
	if len(newOrder) != len(day.Items) {
		return validationf("order has %d ids, day has %d items", len(newOrder), len(day.Items))
	}

	byID := make(map[string]models.ItineraryItem, len(day.Items))
	for _, item := range day.Items {
		byID[item.ItemID] = item
	}

	items := make([]models.ItineraryItem, 0, len(newOrder))
	for _, id := range newOrder {
		item, ok := byID[id]
		if !ok {
			return validationf("unknown item id %q", id)
		}
		delete(byID, id)
		items = append(items, item)
	}

	day.Items = items
	s.provisional[date] = *day
	return nil
}

// InsertAt creates a placeholder item at index and returns it. The caller
// populates content afterwards and retimes or resequences.
func (s *Session) InsertAt(date string, index int) (models.ItineraryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return models.ItineraryItem{}, err
	}
	if index < 0 || index > len(day.Items) {
		return models.ItineraryItem{}, validationf("index %d out of range 0..%d", index, len(day.Items))
	}

	item := models.ItineraryItem{
		ItemID:          utils.GetUUID(),
		Kind:            models.KindActivity,
		DurationMinutes: globals.DefaultDuration,
	}

	day.Items = append(day.Items, models.ItineraryItem{})
	copy(day.Items[index+1:], day.Items[index:])
	day.Items[index] = item
	s.provisional[date] = *day
	return item, nil
}

// Delete removes an item. The timeline is not compacted: the gap keeps later
// items' explicit times, which is what keeps operating-hours conflicts
// meaningful. Callers wanting compaction follow up with Resequence.
func (s *Session) Delete(date, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}

	idx, err := indexOf(day.Items, itemID)
	if err != nil {
		return err
	}
	day.Items = append(day.Items[:idx], day.Items[idx+1:]...)
	s.provisional[date] = *day
	return nil
}

// UpdateDuration sets an item's duration, which must be a positive multiple
// of the policy step, and recomputes its end time.
func (s *Session) UpdateDuration(date, itemID string, minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}
	if minutes <= 0 || minutes%s.DurationStep != 0 {
		return validationf("duration %d is not a positive multiple of %d", minutes, s.DurationStep)
	}

	idx, err := indexOf(day.Items, itemID)
	if err != nil {
		return err
	}
	day.Items[idx].DurationMinutes = minutes
	day.Items[idx].EndTime = day.Items[idx].StartTime + minutes
	s.provisional[date] = *day
	return nil
}

// UpdateItemTime is a manual override of one item's start and end. It does
// not shift neighbors; an override that collides with one is for the conflict
// analyzer to flag, not for the engine to repair.
func (s *Session) UpdateItemTime(date, itemID string, newStart, newEnd int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}
	if newStart < 0 {
		return validationf("start %d is negative", newStart)
	}
	if newEnd <= newStart {
		return validationf("end %d is not after start %d", newEnd, newStart)
	}

	idx, err := indexOf(day.Items, itemID)
	if err != nil {
		return err
	}
	day.Items[idx].StartTime = newStart
	day.Items[idx].EndTime = newEnd
	day.Items[idx].DurationMinutes = newEnd - newStart
	s.provisional[date] = *day
	return nil
}

// Resequence recomputes every item's times from the day anchor forward,
// inserting the travel buffer between items.
func (s *Session) Resequence(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}

	cursor := day.DayStart
	for i := range day.Items {
		if day.Items[i].DurationMinutes <= 0 {
			day.Items[i].DurationMinutes = globals.DefaultDuration
		}
		day.Items[i].StartTime = cursor
		day.Items[i].EndTime = cursor + day.Items[i].DurationMinutes
		cursor = day.Items[i].EndTime + s.Buffer
	}
	s.provisional[date] = *day
	return nil
}

// UpdateDayStart sets the day anchor to an absolute minute of day.
func (s *Session) UpdateDayStart(date string, newStart int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}
	if newStart < 0 || newStart >= 1440 {
		return validationf("day start %d out of range [0,1440)", newStart)
	}
	day.DayStart = newStart
	s.provisional[date] = *day
	return nil
}

// ShiftDayStart moves the anchor by a delta, clamped to [0, 1440).
func (s *Session) ShiftDayStart(date string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}
	start := day.DayStart + delta
	if start < 0 {
		start = 0
	}
	if start >= 1440 {
		start = 1439
	}
	day.DayStart = start
	s.provisional[date] = *day
	return nil
}

// MoveCrossDay removes the item from one provisional day and inserts it at
// index in another. The moved item keeps its old times: they are stale until
// the destination day gets a Resequence or a retime, which is the caller's
// required follow-up.
func (s *Session) MoveCrossDay(fromDate, toDate, itemID string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fromDate == toDate {
		return validationf("source and destination dates are the same")
	}
	from, err := s.provisionalDay(fromDate)
	if err != nil {
		return err
	}
	to, err := s.provisionalDay(toDate)
	if err != nil {
		return err
	}
	if index < 0 || index > len(to.Items) {
		return validationf("index %d out of range 0..%d", index, len(to.Items))
	}

	idx, err := indexOf(from.Items, itemID)
	if err != nil {
		return err
	}
	item := from.Items[idx]
	from.Items = append(from.Items[:idx], from.Items[idx+1:]...)

	to.Items = append(to.Items, models.ItineraryItem{})
	copy(to.Items[index+1:], to.Items[index:])
	to.Items[index] = item

	s.provisional[fromDate] = *from
	s.provisional[toDate] = *to
	return nil
}

// UpdateOperatingHours copies resolved open/close times into the provisional
// day by item id. Items absent from resolved are left alone.
func (s *Session) UpdateOperatingHours(date string, resolved []models.ItineraryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}

	byID := make(map[string]models.ItineraryItem, len(resolved))
	for _, item := range resolved {
		byID[item.ItemID] = item
	}
	for i := range day.Items {
		if r, ok := byID[day.Items[i].ItemID]; ok {
			day.Items[i].OpenTime = r.OpenTime
			day.Items[i].CloseTime = r.CloseTime
		}
	}
	s.provisional[date] = *day
	return nil
}

// UpdateConflictFlags overwrites the per-item conflict markers on a
// provisional day. Ids absent from flagged are cleared, so a resolved risk
// drops its marker on the next analysis.
func (s *Session) UpdateConflictFlags(date string, flagged map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}
	for i := range day.Items {
		day.Items[i].Conflict = flagged[day.Items[i].ItemID]
	}
	s.provisional[date] = *day
	return nil
}

// DismissConflict clears one item's conflict marker without changing the
// plan; the user has seen the risk and accepts it.
func (s *Session) DismissConflict(date, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := s.provisionalDay(date)
	if err != nil {
		return err
	}
	idx, err := indexOf(day.Items, itemID)
	if err != nil {
		return err
	}
	day.Items[idx].Conflict = false
	s.provisional[date] = *day
	return nil
}

// ReplaceCanonicalDay overwrites one canonical day, as when the
// content-generation collaborator regenerates a plan. It bumps the version,
// so an open edit session's later Apply fails the optimistic check.
func (s *Session) ReplaceCanonicalDay(day models.DayPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.canonical[day.Date]; !ok {
		return validationf("unknown date %q", day.Date)
	}
	clone := day.Clone()
	if clone.DayStart == 0 {
		clone.DayStart = globals.DefaultDayStart
	}
	for i := range clone.Items {
		if clone.Items[i].ItemID == "" {
			clone.Items[i].ItemID = utils.GetUUID()
		}
	}
	s.canonical[day.Date] = clone
	s.version++
	return nil
}

// Apply promotes every provisional day to canonical, all or nothing. It fails
// with ErrConcurrentEdit when canonical state moved after the snapshot.
func (s *Session) Apply() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.editing {
		return ErrNotEditing
	}
	if s.version != s.editVersion {
		return ErrConcurrentEdit
	}

	for date, day := range s.provisional {
		s.canonical[date] = day.Clone()
	}
	s.version++
	s.endEdit()
	return nil
}

// Discard drops provisional state and returns the session to Stable.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.editing {
		return ErrNotEditing
	}
	s.endEdit()
	return nil
}

func (s *Session) endEdit() {
	s.editing = false
	s.provisional = nil
	if s.editCancel != nil {
		s.editCancel()
		s.editCancel = nil
	}
}

func indexOf(items []models.ItineraryItem, itemID string) (int, error) {
	for i := range items {
		if items[i].ItemID == itemID {
			return i, nil
		}
	}
	return 0, validationf("unknown item id %q", itemID)
}
