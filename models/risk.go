package models

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type RiskCategory string

const (
	RiskTimeConflict RiskCategory = "time_conflict"
	RiskFatigue      RiskCategory = "fatigue"
	RiskTravel       RiskCategory = "travel"
	RiskClosure      RiskCategory = "closure"
	RiskOther        RiskCategory = "other"
)

type ItemRisk struct {
	ItemID   string       `json:"itemid"`
	Title    string       `json:"title"`
	Severity Severity     `json:"severity"`
	Reason   string       `json:"reason"`
	Category RiskCategory `json:"category"`
}

// RiskReport is the per-day output of the conflict analyzer. It is computed
// on demand and superseded by the next analysis, never stored.
type RiskReport struct {
	ShouldWarn   bool       `json:"should_warn"`
	Summary      string     `json:"summary"`
	FatigueScore int        `json:"fatigue_score"` // 0-100
	Risks        []ItemRisk `json:"risks"`
	Suggestions  string     `json:"suggestions,omitempty"`
}

// DayChange pairs a day's pre-edit and proposed plans with the risk report
// for the proposed one.
type DayChange struct {
	Date   string     `json:"date"`
	Before DayPlan    `json:"before"`
	After  DayPlan    `json:"after"`
	Report RiskReport `json:"report"`
}

// ChangeSet is what a review UI confirms or rejects. It is applied or
// discarded atomically, never partially.
type ChangeSet struct {
	SessionID string      `json:"sessionid"`
	Changes   []DayChange `json:"changes"`
}
