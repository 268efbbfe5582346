package timeline

import (
	"context"
	"testing"

	"roamio/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	days := []models.DayPlan{
		{
			Date:     "2026-05-01",
			DayStart: 540, // 09:00
			Items: []models.ItineraryItem{
				{ItemID: "a1", Title: "Museum", Kind: models.KindActivity, DurationMinutes: 120},
				{ItemID: "a2", Title: "Lunch", Kind: models.KindFood, DurationMinutes: 90},
				{ItemID: "a3", Title: "Park", Kind: models.KindActivity, DurationMinutes: 60},
			},
		},
		{
			Date:     "2026-05-02",
			DayStart: 600,
			Items: []models.ItineraryItem{
				{ItemID: "b1", Title: "Temple", Kind: models.KindActivity, DurationMinutes: 60},
			},
		},
	}
	return NewSession(models.TripConfig{Destination: "Kyoto", Pace: models.PaceBalanced}, days)
}

func editedDay(t *testing.T, s *Session, date string) models.DayPlan {
	t.Helper()
	day, err := s.Provisional(date)
	require.NoError(t, err)
	return day
}

func TestResequenceExactMinuteValues(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))
	require.NoError(t, s.Resequence("2026-05-01"))

	day := editedDay(t, s, "2026-05-01")
	// durations 120/90/60 from 09:00 with 15-minute buffers:
	// 09:00-11:00, 11:15-12:45, 13:00-14:00
	assert.Equal(t, 540, day.Items[0].StartTime)
	assert.Equal(t, 660, day.Items[0].EndTime)
	assert.Equal(t, 675, day.Items[1].StartTime)
	assert.Equal(t, 765, day.Items[1].EndTime)
	assert.Equal(t, 780, day.Items[2].StartTime)
	assert.Equal(t, 840, day.Items[2].EndTime)

	for i := 0; i < len(day.Items)-1; i++ {
		assert.LessOrEqual(t, day.Items[i].EndTime, day.Items[i+1].StartTime)
		assert.Equal(t, s.Buffer, day.Items[i+1].StartTime-day.Items[i].EndTime)
	}
}

func TestReorderChangesSequenceNotTimes(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))
	require.NoError(t, s.Resequence("2026-05-01"))
	before := editedDay(t, s, "2026-05-01")

	require.NoError(t, s.Reorder("2026-05-01", []string{"a3", "a1", "a2"}))
	after := editedDay(t, s, "2026-05-01")

	assert.Equal(t, "a3", after.Items[0].ItemID)
	// each item keeps the times it had before the reorder
	for _, item := range after.Items {
		for _, prev := range before.Items {
			if prev.ItemID == item.ItemID {
				assert.Equal(t, prev.StartTime, item.StartTime)
				assert.Equal(t, prev.EndTime, item.EndTime)
			}
		}
	}
}

func TestReorderRejectsUnknownOrPartialOrder(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))

	var vErr *ValidationError
	err := s.Reorder("2026-05-01", []string{"a1", "a2"})
	require.ErrorAs(t, err, &vErr)

	err = s.Reorder("2026-05-01", []string{"a1", "a2", "zz"})
	require.ErrorAs(t, err, &vErr)

	err = s.Reorder("2026-05-01", []string{"a1", "a1", "a2"})
	require.ErrorAs(t, err, &vErr)
}

func TestDeletePreservesGap(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))
	require.NoError(t, s.Resequence("2026-05-01"))
	require.NoError(t, s.Delete("2026-05-01", "a2"))

	day := editedDay(t, s, "2026-05-01")
	require.Len(t, day.Items, 2)
	// the survivors keep their explicit times; no compaction
	assert.Equal(t, 540, day.Items[0].StartTime)
	assert.Equal(t, 780, day.Items[1].StartTime)

	// compaction only on explicit request
	require.NoError(t, s.Resequence("2026-05-01"))
	day = editedDay(t, s, "2026-05-01")
	assert.Equal(t, 675, day.Items[1].StartTime)
}

func TestDeleteAllItemsLeavesDayPresent(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-02"))
	require.NoError(t, s.Delete("2026-05-02", "b1"))
	require.NoError(t, s.Apply())

	days := s.Canonical()
	require.Len(t, days, 2)
	assert.Empty(t, days[1].Items)
	assert.Equal(t, "2026-05-02", days[1].Date)
}

func TestInsertAtCreatesPlaceholder(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))

	item, err := s.InsertAt("2026-05-01", 1)
	require.NoError(t, err)
	assert.NotEmpty(t, item.ItemID)

	day := editedDay(t, s, "2026-05-01")
	require.Len(t, day.Items, 4)
	assert.Equal(t, item.ItemID, day.Items[1].ItemID)
	assert.Equal(t, "a2", day.Items[2].ItemID)

	_, err = s.InsertAt("2026-05-01", 9)
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestUpdateDurationStepValidation(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))

	var vErr *ValidationError
	assert.ErrorAs(t, s.UpdateDuration("2026-05-01", "a1", -30), &vErr)
	assert.ErrorAs(t, s.UpdateDuration("2026-05-01", "a1", 0), &vErr)
	assert.ErrorAs(t, s.UpdateDuration("2026-05-01", "a1", 50), &vErr)
	assert.ErrorAs(t, s.UpdateDuration("2026-05-01", "zz", 60), &vErr)

	require.NoError(t, s.Resequence("2026-05-01"))
	require.NoError(t, s.UpdateDuration("2026-05-01", "a1", 45))
	day := editedDay(t, s, "2026-05-01")
	assert.Equal(t, 45, day.Items[0].DurationMinutes)
	assert.Equal(t, 585, day.Items[0].EndTime)
}

func TestUpdateItemTimeIsManualOverride(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))
	require.NoError(t, s.Resequence("2026-05-01"))

	var vErr *ValidationError
	assert.ErrorAs(t, s.UpdateItemTime("2026-05-01", "a2", 700, 700), &vErr)
	assert.ErrorAs(t, s.UpdateItemTime("2026-05-01", "a2", 700, 650), &vErr)
	assert.ErrorAs(t, s.UpdateItemTime("2026-05-01", "a2", -5, 60), &vErr)

	// the override may collide with a neighbor; neighbors do not shift
	require.NoError(t, s.UpdateItemTime("2026-05-01", "a2", 600, 720))
	day := editedDay(t, s, "2026-05-01")
	assert.Equal(t, 600, day.Items[1].StartTime)
	assert.Equal(t, 660, day.Items[0].EndTime) // a1 untouched
	assert.Equal(t, 120, day.Items[1].DurationMinutes)
}

func TestDayStartClamping(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))

	var vErr *ValidationError
	assert.ErrorAs(t, s.UpdateDayStart("2026-05-01", -1), &vErr)
	assert.ErrorAs(t, s.UpdateDayStart("2026-05-01", 1440), &vErr)

	require.NoError(t, s.ShiftDayStart("2026-05-01", -2000))
	assert.Equal(t, 0, editedDay(t, s, "2026-05-01").DayStart)

	require.NoError(t, s.ShiftDayStart("2026-05-01", 5000))
	assert.Equal(t, 1439, editedDay(t, s, "2026-05-01").DayStart)

	require.NoError(t, s.UpdateDayStart("2026-05-01", 480))
	require.NoError(t, s.Resequence("2026-05-01"))
	assert.Equal(t, 480, editedDay(t, s, "2026-05-01").Items[0].StartTime)
}

func TestMoveCrossDayTimesStaleUntilResequence(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01", "2026-05-02"))
	require.NoError(t, s.Resequence("2026-05-01"))

	// move day A's third item to the front of day B
	require.NoError(t, s.MoveCrossDay("2026-05-01", "2026-05-02", "a3", 0))

	from := editedDay(t, s, "2026-05-01")
	to := editedDay(t, s, "2026-05-02")
	require.Len(t, from.Items, 2)
	require.Len(t, to.Items, 2)

	// moved item keeps its stale day-A times until the follow-up
	assert.Equal(t, "a3", to.Items[0].ItemID)
	assert.Equal(t, 780, to.Items[0].StartTime)

	// closing the gap on day A is explicit
	require.NoError(t, s.Resequence("2026-05-01"))
	from = editedDay(t, s, "2026-05-01")
	assert.Equal(t, 675, from.Items[1].StartTime)

	// the required follow-up adopts day B's anchor
	require.NoError(t, s.Resequence("2026-05-02"))
	to = editedDay(t, s, "2026-05-02")
	assert.Equal(t, 600, to.Items[0].StartTime)
	assert.Equal(t, 675, to.Items[1].StartTime)
}

func TestMutationsRequireEditSession(t *testing.T) {
	s := newTestSession(t)
	assert.ErrorIs(t, s.Resequence("2026-05-01"), ErrNotEditing)
	assert.ErrorIs(t, s.Delete("2026-05-01", "a1"), ErrNotEditing)

	require.NoError(t, s.BeginEdit("2026-05-01"))
	assert.ErrorIs(t, s.BeginEdit("2026-05-02"), ErrAlreadyEditing)

	// a date outside the edit set is a validation error
	var vErr *ValidationError
	assert.ErrorAs(t, s.Resequence("2026-05-02"), &vErr)
}

func TestBeginEditUnknownDate(t *testing.T) {
	s := newTestSession(t)
	var vErr *ValidationError
	assert.ErrorAs(t, s.BeginEdit("1999-01-01"), &vErr)
	assert.False(t, s.Editing())
}

func TestApplyPromotesProvisional(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))
	require.NoError(t, s.Resequence("2026-05-01"))
	require.NoError(t, s.Apply())

	assert.False(t, s.Editing())
	days := s.Canonical()
	assert.Equal(t, 540, days[0].Items[0].StartTime)
	assert.Equal(t, uint64(1), s.Version())
}

func TestDiscardRestoresCanonical(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))
	require.NoError(t, s.Delete("2026-05-01", "a1"))
	require.NoError(t, s.Discard())

	days := s.Canonical()
	require.Len(t, days[0].Items, 3)
	assert.False(t, s.Editing())
	assert.Equal(t, uint64(0), s.Version())
}

func TestApplyFailsAfterExternalMutation(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01", "2026-05-02"))
	require.NoError(t, s.Delete("2026-05-01", "a1"))
	require.NoError(t, s.Delete("2026-05-02", "b1"))

	// the content service regenerates day two mid-edit
	regenerated := models.DayPlan{
		Date:     "2026-05-02",
		DayStart: 600,
		Items:    []models.ItineraryItem{{ItemID: "b9", Title: "Castle", Kind: models.KindActivity, DurationMinutes: 90}},
	}
	require.NoError(t, s.ReplaceCanonicalDay(regenerated))

	assert.ErrorIs(t, s.Apply(), ErrConcurrentEdit)

	// all-or-nothing: neither date was mutated by the failed apply
	days := s.Canonical()
	assert.Len(t, days[0].Items, 3)
	assert.Equal(t, "b9", days[1].Items[0].ItemID)
}

func TestCanonicalReturnsClones(t *testing.T) {
	s := newTestSession(t)
	days := s.Canonical()
	days[0].Items[0].Title = "tampered"
	assert.Equal(t, "Museum", s.Canonical()[0].Items[0].Title)
}

func TestUpdateOperatingHoursCopiesByID(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))

	open, close := 540, 1020
	resolved := []models.ItineraryItem{
		{ItemID: "a1", OpenTime: &open, CloseTime: &close},
	}
	require.NoError(t, s.UpdateOperatingHours("2026-05-01", resolved))

	day := editedDay(t, s, "2026-05-01")
	require.NotNil(t, day.Items[0].OpenTime)
	assert.Equal(t, 540, *day.Items[0].OpenTime)
	assert.Nil(t, day.Items[1].OpenTime)
}

func TestUpdateConflictFlagsSetsAndClears(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))

	require.NoError(t, s.UpdateConflictFlags("2026-05-01", map[string]bool{"a1": true, "a3": true}))
	day := editedDay(t, s, "2026-05-01")
	assert.True(t, day.Items[0].Conflict)
	assert.False(t, day.Items[1].Conflict)
	assert.True(t, day.Items[2].Conflict)

	// ids absent from the next update are cleared
	require.NoError(t, s.UpdateConflictFlags("2026-05-01", map[string]bool{"a3": true}))
	day = editedDay(t, s, "2026-05-01")
	assert.False(t, day.Items[0].Conflict)
	assert.True(t, day.Items[2].Conflict)
}

func TestDismissConflictClearsOneItem(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))
	require.NoError(t, s.UpdateConflictFlags("2026-05-01", map[string]bool{"a1": true, "a2": true}))

	require.NoError(t, s.DismissConflict("2026-05-01", "a1"))

	day := editedDay(t, s, "2026-05-01")
	assert.False(t, day.Items[0].Conflict)
	assert.True(t, day.Items[1].Conflict)

	assert.Error(t, s.DismissConflict("2026-05-01", "nope"))
}

func TestEditContextCancelledOnDiscard(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))

	ctx := s.EditContext()
	require.NoError(t, ctx.Err())

	require.NoError(t, s.Discard())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestEditContextCancelledOnApply(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.BeginEdit("2026-05-01"))
	ctx := s.EditContext()

	require.NoError(t, s.Apply())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	// a fresh edit gets a fresh, live context
	require.NoError(t, s.BeginEdit("2026-05-01"))
	assert.NoError(t, s.EditContext().Err())
}
