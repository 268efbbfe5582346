// Package schedule exposes the scheduling engine to the UI layer as a JSON
// API: session lifecycle, timeline mutations, hours refresh, and the
// propose/apply/discard review loop.
package schedule

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"roamio/conflict"
	"roamio/hours"
	"roamio/live"
	"roamio/models"
	"roamio/review"
	"roamio/timeline"
	"roamio/timeparse"
	"roamio/utils"

	"github.com/julienschmidt/httprouter"
)

type API struct {
	Store    *Store
	Resolver *hours.Resolver
	Analyzer *conflict.Analyzer
	Hub      *live.Hub
}

func NewAPI(store *Store, resolver *hours.Resolver, analyzer *conflict.Analyzer, hub *live.Hub) *API {
	return &API{Store: store, Resolver: resolver, Analyzer: analyzer, Hub: hub}
}

// respondErr maps engine errors onto HTTP statuses.
func respondErr(w http.ResponseWriter, err error) {
	var vErr *timeline.ValidationError
	switch {
	case errors.As(err, &vErr):
		utils.RespondWithError(w, http.StatusBadRequest, vErr.Msg)
	case errors.Is(err, review.ErrSessionConflict), errors.Is(err, timeline.ErrConcurrentEdit):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, timeline.ErrAlreadyEditing), errors.Is(err, timeline.ErrNotEditing):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func (a *API) entryOr404(w http.ResponseWriter, ps httprouter.Params) (*entry, bool) {
	e, ok := a.Store.Get(ps.ByName("id"))
	if !ok {
		utils.RespondWithError(w, http.StatusNotFound, "Session not found")
	}
	return e, ok
}

// POST /api/schedule/sessions
func (a *API) CreateSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload struct {
		Config models.TripConfig `json:"config"`
		Days   []models.DayPlan  `json:"days"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(payload.Days) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "No days in plan")
		return
	}

	session := timeline.NewSession(payload.Config, payload.Days)
	a.Store.Add(session)

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{
		"sessionid": session.ID,
		"days":      session.Canonical(),
	})
}

// GET /api/schedule/sessions/:id
func (a *API) GetSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"sessionid": e.Session.ID,
		"editing":   e.Session.Editing(),
		"days":      e.Session.Canonical(),
	})
}

// PUT /api/schedule/sessions/:id/days
// Replaces one canonical day with a regenerated plan from the content
// service. An open edit session will fail its apply afterwards and must be
// restarted, which is the intended optimistic-concurrency behavior.
func (a *API) ReplaceDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var day models.DayPlan
	if err := json.NewDecoder(r.Body).Decode(&day); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := e.Session.ReplaceCanonicalDay(day); err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"replaced": day.Date})
}

// POST /api/schedule/sessions/:id/edit
func (a *API) BeginEdit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Dates []string `json:"dates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := e.Protocol.BeginEdit(payload.Dates...); err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"editing": true, "dates": payload.Dates})
}

// POST /api/schedule/sessions/:id/reorder
func (a *API) Reorder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Date  string   `json:"date"`
		Order []string `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := e.Session.Reorder(payload.Date, payload.Order); err != nil {
		respondErr(w, err)
		return
	}
	a.respondDay(w, e.Session, payload.Date)
}

// POST /api/schedule/sessions/:id/insert
func (a *API) Insert(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Date  string `json:"date"`
		Index int    `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	item, err := e.Session.InsertAt(payload.Date, payload.Index)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, item)
}

// POST /api/schedule/sessions/:id/delete
func (a *API) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Date   string `json:"date"`
		ItemID string `json:"itemid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := e.Session.Delete(payload.Date, payload.ItemID); err != nil {
		respondErr(w, err)
		return
	}
	a.respondDay(w, e.Session, payload.Date)
}

// POST /api/schedule/sessions/:id/duration
// Accepts explicit minutes or free-text like "2 hours 30 min"; unrecognized
// text falls back to the engine default of 60.
func (a *API) UpdateDuration(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Date     string `json:"date"`
		ItemID   string `json:"itemid"`
		Minutes  int    `json:"minutes,omitempty"`
		Duration string `json:"duration,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	minutes := payload.Minutes
	if minutes == 0 && payload.Duration != "" {
		if parsed := timeparse.ParseDuration(payload.Duration); parsed != nil {
			minutes = *parsed
		} else {
			minutes = 60
		}
	}
	if err := e.Session.UpdateDuration(payload.Date, payload.ItemID, minutes); err != nil {
		respondErr(w, err)
		return
	}
	a.respondDay(w, e.Session, payload.Date)
}

// POST /api/schedule/sessions/:id/retime
// Start and end arrive as clock text ("14:30", "2:30 pm", "1430").
func (a *API) Retime(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Date   string `json:"date"`
		ItemID string `json:"itemid"`
		Start  string `json:"start"`
		End    string `json:"end"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	start, err := timeparse.ParseClockTime(payload.Start)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := timeparse.ParseClockTime(payload.End)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := e.Session.UpdateItemTime(payload.Date, payload.ItemID, start, end); err != nil {
		respondErr(w, err)
		return
	}
	a.respondDay(w, e.Session, payload.Date)
}

// POST /api/schedule/sessions/:id/resequence
func (a *API) Resequence(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := e.Session.Resequence(payload.Date); err != nil {
		respondErr(w, err)
		return
	}
	a.respondDay(w, e.Session, payload.Date)
}

// POST /api/schedule/sessions/:id/daystart
// Either an absolute clock time or a signed minute delta.
func (a *API) UpdateDayStart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Date  string `json:"date"`
		Start string `json:"start,omitempty"`
		Delta *int   `json:"delta,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var err error
	switch {
	case payload.Start != "":
		var start int
		start, err = timeparse.ParseClockTime(payload.Start)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		err = e.Session.UpdateDayStart(payload.Date, start)
	case payload.Delta != nil:
		err = e.Session.ShiftDayStart(payload.Date, *payload.Delta)
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "start or delta required")
		return
	}
	if err != nil {
		respondErr(w, err)
		return
	}
	a.respondDay(w, e.Session, payload.Date)
}

// POST /api/schedule/sessions/:id/move
// The moved item's times stay stale until the destination day is resequenced
// or the item retimed; the response reminds the caller.
func (a *API) MoveCrossDay(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		FromDate string `json:"from_date"`
		ToDate   string `json:"to_date"`
		ItemID   string `json:"itemid"`
		Index    int    `json:"index"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := e.Session.MoveCrossDay(payload.FromDate, payload.ToDate, payload.ItemID, payload.Index); err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"moved":     payload.ItemID,
		"follow_up": "resequence or retime the destination day; the moved item's times are stale",
	})
}

// POST /api/schedule/sessions/:id/dismiss
// Clears one item's conflict marker; the plan itself is untouched.
func (a *API) DismissConflict(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Date   string `json:"date"`
		ItemID string `json:"itemid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := e.Session.DismissConflict(payload.Date, payload.ItemID); err != nil {
		respondErr(w, err)
		return
	}
	a.respondDay(w, e.Session, payload.Date)
}

// respondDay returns the provisional day after a mutation.
func (a *API) respondDay(w http.ResponseWriter, session *timeline.Session, date string) {
	day, err := session.Provisional(date)
	if err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, day)
}

// POST /api/schedule/sessions/:id/hours/refresh
// Kicks off a best-effort refresh of operating hours for the edited dates and
// returns immediately; refreshed risk reports arrive over the live socket.
func (a *API) RefreshHours(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var payload struct {
		Dates []string `json:"dates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !e.Session.Editing() {
		respondErr(w, timeline.ErrNotEditing)
		return
	}

	dates := payload.Dates
	if len(dates) == 0 {
		dates = e.Session.EditedDates()
	}

	go a.refreshHours(e, dates)
	utils.RespondWithJSON(w, http.StatusAccepted, utils.M{"refreshing": dates})
}

func (a *API) refreshHours(e *entry, dates []string) {
	// cancelled on Apply/Discard, so in-flight lookups stop instead of
	// finishing against a closed session
	ctx := e.Session.EditContext()
	for _, date := range dates {
		if ctx.Err() != nil {
			return
		}
		day, err := e.Session.Provisional(date)
		if err != nil {
			// session was applied or discarded meanwhile; remaining work is unused
			log.Printf("schedule: hours refresh stopped at %s: %v", date, err)
			return
		}

		resolved := a.Resolver.Resolve(ctx, day.Items, e.Session.Destination, date)
		if err := e.Session.UpdateOperatingHours(date, resolved); err != nil {
			log.Printf("schedule: hours refresh stopped at %s: %v", date, err)
			return
		}

		refreshed, err := e.Session.Provisional(date)
		if err != nil {
			return
		}
		report := a.Analyzer.Analyze(refreshed, e.Session.Pace)
		if err := e.Session.UpdateConflictFlags(date, conflict.FlaggedItems(report)); err != nil {
			return
		}
		a.Hub.PublishRisk(e.Session.ID, date, report)
	}
}

// GET /api/schedule/sessions/:id/risk/:date
func (a *API) Risk(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	date := ps.ByName("date")

	day, err := e.Session.Provisional(date)
	if err != nil {
		// outside an edit session, report on the canonical day
		day, err = e.Session.CanonicalDay(date)
		if err != nil {
			respondErr(w, err)
			return
		}
	}

	report := a.Analyzer.Analyze(day, e.Session.Pace)
	a.Analyzer.EnrichReport(r.Context(), day, e.Session.Pace, &report)
	utils.RespondWithJSON(w, http.StatusOK, report)
}

// POST /api/schedule/sessions/:id/propose
func (a *API) Propose(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	cs, err := e.Protocol.ProposeEnd(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	for _, change := range cs.Changes {
		a.Hub.PublishRisk(e.Session.ID, change.Date, change.Report)
	}
	utils.RespondWithJSON(w, http.StatusOK, cs)
}

// POST /api/schedule/sessions/:id/apply
func (a *API) Apply(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	var cs models.ChangeSet
	if err := json.NewDecoder(r.Body).Decode(&cs); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := e.Protocol.Apply(cs); err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"applied": true,
		"days":    e.Session.Canonical(),
	})
}

// POST /api/schedule/sessions/:id/discard
func (a *API) Discard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, ok := a.entryOr404(w, ps)
	if !ok {
		return
	}
	if err := e.Protocol.Discard(); err != nil {
		respondErr(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"discarded": true,
		"days":      e.Session.Canonical(),
	})
}
