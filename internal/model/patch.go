package model

import "time"

// AttributePatch is a partial update of a company's normalized attributes.
// Nil fields are left untouched.
type AttributePatch struct {
	Industry         *string `json:"industry,omitempty"`
	Location         *string `json:"location,omitempty"`
	FoundedYear      *int    `json:"founded_year,omitempty"`
	Address          *string `json:"address,omitempty"`
	Description      *string `json:"description,omitempty"`
	EmployeeRange    *string `json:"employee_range,omitempty"`
	EmployeeMidpoint *int    `json:"employee_midpoint,omitempty"`
	RevenueBand      *string `json:"revenue_band,omitempty"`
}

// Empty reports whether the patch sets no field.
func (p AttributePatch) Empty() bool {
	return p.Industry == nil && p.Location == nil && p.FoundedYear == nil &&
		p.Address == nil && p.Description == nil && p.EmployeeRange == nil &&
		p.EmployeeMidpoint == nil && p.RevenueBand == nil
}

// Fields returns the names of the attributes the patch sets.
func (p AttributePatch) Fields() []string {
	var out []string
	if p.Industry != nil {
		out = append(out, "industry")
	}
	if p.Location != nil {
		out = append(out, "location")
	}
	if p.FoundedYear != nil {
		out = append(out, "founded_year")
	}
	if p.Address != nil {
		out = append(out, "address")
	}
	if p.Description != nil {
		out = append(out, "description")
	}
	if p.EmployeeRange != nil {
		out = append(out, "employee_range")
	}
	if p.EmployeeMidpoint != nil {
		out = append(out, "employee_midpoint")
	}
	if p.RevenueBand != nil {
		out = append(out, "revenue_band")
	}
	return out
}

// Apply copies the set fields of p onto a.
func (p AttributePatch) Apply(a *Attributes) {
	if p.Industry != nil {
		a.Industry = *p.Industry
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.FoundedYear != nil {
		a.FoundedYear = *p.FoundedYear
	}
	if p.Address != nil {
		a.Address = *p.Address
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.EmployeeRange != nil {
		a.EmployeeRange = *p.EmployeeRange
	}
	if p.EmployeeMidpoint != nil {
		a.EmployeeMidpoint = *p.EmployeeMidpoint
	}
	if p.RevenueBand != nil {
		a.RevenueBand = *p.RevenueBand
	}
}

// ScoreUpdate is the full set of scoring outputs written in one step.
type ScoreUpdate struct {
	LeadScore       int           `json:"lead_score"`
	ARPUBand        string        `json:"arpu_band"`
	KeySignals      []string      `json:"key_signals"`
	Rationale       string        `json:"score_rationale"`
	Factors         []ScoreFactor `json:"score_factors"`
	RevenueEstimate int64         `json:"revenue_estimate"`
	ScoredAt        time.Time     `json:"scored_at"`
}

// Activity is a last-activity marker written alongside a company update.
type Activity struct {
	Description string
	At          time.Time
}
