package model

import (
	"time"
)

// Status is a company's position in the sales lifecycle.
type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusQualified   Status = "qualified"
	StatusOpportunity Status = "opportunity"
	StatusDead        Status = "dead"
)

// AllStatuses returns the lifecycle statuses in progression order.
func AllStatuses() []Status {
	return []Status{StatusNew, StatusContacted, StatusQualified, StatusOpportunity, StatusDead}
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	for _, v := range AllStatuses() {
		if s == v {
			return true
		}
	}
	return false
}

// Revenue band labels. Ordered from lowest to highest account value.
const (
	BandLow     = "$0-10K"
	BandMid     = "$10-50K"
	BandHigh    = "$50-100K"
	BandTopTier = "$100K+"
)

// RevenueBands returns the four band labels in ascending order.
func RevenueBands() []string {
	return []string{BandLow, BandMid, BandHigh, BandTopTier}
}

// ValidBand reports whether b is one of the fixed revenue band labels.
func ValidBand(b string) bool {
	for _, v := range RevenueBands() {
		if b == v {
			return true
		}
	}
	return false
}

// RevenueEstimate maps a band to its fixed numeric revenue estimate.
func RevenueEstimate(band string) (int64, bool) {
	switch band {
	case BandLow:
		return 5000, true
	case BandMid:
		return 30000, true
	case BandHigh:
		return 75000, true
	case BandTopTier:
		return 150000, true
	}
	return 0, false
}

// Company is a discovered lead keyed by its canonical domain.
type Company struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	Name      string `json:"name"`
	Status    Status `json:"status"`
	SourceTag string `json:"source_tag,omitempty"`

	Attributes

	// Scoring outputs. LeadScore is nil until a score has been persisted.
	LeadScore       *int          `json:"lead_score,omitempty"`
	ARPUBand        string        `json:"arpu_band,omitempty"`
	KeySignals      []string      `json:"key_signals,omitempty"`
	ScoreRationale  string        `json:"score_rationale,omitempty"`
	ScoreFactors    []ScoreFactor `json:"score_factors,omitempty"`
	RevenueEstimate *int64        `json:"revenue_estimate,omitempty"`
	ScoredAt        *time.Time    `json:"scored_at,omitempty"`

	LastActivity   string     `json:"last_activity,omitempty"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Scored reports whether a score has been persisted for the company.
func (c *Company) Scored() bool {
	return c.LeadScore != nil
}

// Attributes are the normalized fields written by attribute resolution.
type Attributes struct {
	Industry         string `json:"industry,omitempty"`
	Location         string `json:"location,omitempty"`
	FoundedYear      int    `json:"founded_year,omitempty"`
	Address          string `json:"address,omitempty"`
	Description      string `json:"description,omitempty"`
	EmployeeRange    string `json:"employee_range,omitempty"`
	EmployeeMidpoint int    `json:"employee_midpoint,omitempty"`
	RevenueBand      string `json:"revenue_band,omitempty"`
}

// Impact is the direction a score factor pushes the score.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// Valid reports whether i is a known impact direction.
func (i Impact) Valid() bool {
	return i == ImpactPositive || i == ImpactNegative || i == ImpactNeutral
}

// ScoreFactor is one weighted contributor to a lead score. Weights are
// advisory and are not required to sum to 1.
type ScoreFactor struct {
	Factor string  `json:"factor"`
	Impact Impact  `json:"impact"`
	Weight float64 `json:"weight"`
}
