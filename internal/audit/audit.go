// Package audit appends lifecycle events to the per-company event log.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
)

// Appender is the write side of the event log.
type Appender interface {
	AppendEvent(ctx context.Context, e *model.EventLogEntry) error
}

// Recorder writes audit events. It never reads the log back.
type Recorder struct {
	store Appender
	now   func() time.Time
}

// NewRecorder creates a Recorder backed by the given appender.
func NewRecorder(store Appender) *Recorder {
	return &Recorder{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends one event. companyID and eventType are required; metadata
// may be nil or any JSON-marshalable value.
func (r *Recorder) Record(ctx context.Context, companyID string, eventType model.EventType, description string, metadata any) (*model.EventLogEntry, error) {
	if companyID == "" {
		return nil, eris.New("audit: company id is required")
	}
	if eventType == "" {
		return nil, eris.New("audit: event type is required")
	}

	var raw json.RawMessage
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, eris.Wrap(err, "audit: marshal metadata")
		}
		raw = b
	}

	e := &model.EventLogEntry{
		CompanyID:   companyID,
		Type:        eventType,
		Description: description,
		Metadata:    raw,
		CreatedAt:   r.now(),
	}
	if err := r.store.AppendEvent(ctx, e); err != nil {
		zap.L().Error("audit: append event failed",
			zap.String("company_id", companyID),
			zap.String("type", string(eventType)),
			zap.Error(err),
		)
		return nil, eris.Wrap(err, "audit: append event")
	}

	zap.L().Debug("audit: event recorded",
		zap.String("company_id", companyID),
		zap.String("type", string(eventType)),
		zap.String("description", description),
	)
	return e, nil
}
