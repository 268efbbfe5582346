package conflict

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"roamio/models"
	"roamio/retry"
)

// Enricher may replace a report's summary and suggestions with model-written
// text. Enrichment is decoration: the caller keeps the heuristic report when
// the enricher is absent, slow, or failing.
type Enricher interface {
	Enrich(ctx context.Context, day models.DayPlan, pace models.Pace, report models.RiskReport) (summary, suggestions string, err error)
}

// ModelEnricher calls the feasibility-model service over HTTP.
type ModelEnricher struct {
	baseURL string
	http    *http.Client
}

// NewModelEnricher returns nil when MODEL_API_URL is unset; a nil enricher
// means heuristics only.
func NewModelEnricher() *ModelEnricher {
	base := os.Getenv("MODEL_API_URL")
	if base == "" {
		return nil
	}
	return &ModelEnricher{
		baseURL: base,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type enrichRequest struct {
	Day    models.DayPlan    `json:"day"`
	Pace   models.Pace       `json:"pace"`
	Report models.RiskReport `json:"report"`
}

type enrichResponse struct {
	Summary     string `json:"summary"`
	Suggestions string `json:"suggestions"`
}

func (m *ModelEnricher) Enrich(ctx context.Context, day models.DayPlan, pace models.Pace, report models.RiskReport) (string, string, error) {
	body, err := json.Marshal(enrichRequest{Day: day, Pace: pace, Report: report})
	if err != nil {
		return "", "", err
	}

	out, err := retry.Invoke(ctx, "risk enrichment", func(ctx context.Context) (enrichResponse, error) {
		var resp enrichResponse
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/assess", bytes.NewReader(body))
		if err != nil {
			return resp, err
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := m.http.Do(req)
		if err != nil {
			return resp, err
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			io.Copy(io.Discard, res.Body)
			return resp, &retry.TransientError{Op: "risk enrichment", Err: errStatus(res.StatusCode)}
		}
		return resp, json.NewDecoder(res.Body).Decode(&resp)
	}, 2, 300*time.Millisecond)
	if err != nil {
		return "", "", err
	}
	return out.Summary, out.Suggestions, nil
}

// EnrichReport applies the enricher to a finished report, in place,
// swallowing failures.
func (a *Analyzer) EnrichReport(ctx context.Context, day models.DayPlan, pace models.Pace, report *models.RiskReport) {
	if a.Enricher == nil {
		return
	}
	summary, suggestions, err := a.Enricher.Enrich(ctx, day, pace, *report)
	if err != nil {
		log.Printf("conflict: enrichment skipped: %v", err)
		return
	}
	if summary != "" {
		report.Summary = summary
	}
	if suggestions != "" {
		report.Suggestions = suggestions
	}
}
