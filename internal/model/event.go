package model

import (
	"encoding/json"
	"time"
)

// EventType classifies an audit log entry.
type EventType string

const (
	EventDiscovery           EventType = "discovery"
	EventEnrichmentCompleted EventType = "enrichment_completed"
	EventEnrichmentError     EventType = "enrichment_error"
	EventScoreUpdated        EventType = "score_updated"
	EventScoringError        EventType = "scoring_error"
	EventStatusChanged       EventType = "status_changed"
	EventDeletion            EventType = "deletion"
)

// EventLogEntry is one append-only audit record for a company.
type EventLogEntry struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id"`
	Type        EventType       `json:"type"`
	Description string          `json:"description,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// RecordStatus is the outcome of a single adapter fetch.
type RecordStatus string

const (
	RecordSuccess RecordStatus = "success"
	RecordFailed  RecordStatus = "failed"
)

// RawEnrichmentRecord holds one adapter outcome for one enrichment attempt.
// Payload is the encoded SourcePayload; it is empty when Status is failed.
type RawEnrichmentRecord struct {
	ID        string       `json:"id"`
	CompanyID string       `json:"company_id"`
	Source    SourceID     `json:"source"`
	Payload   string       `json:"payload,omitempty"`
	Status    RecordStatus `json:"status"`
	Error     string       `json:"error,omitempty"`
	FetchedAt time.Time    `json:"fetched_at"`
}
