package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/halvard-m/starlanes/server/internal/events"
	"github.com/halvard-m/starlanes/server/internal/platform/metrics"
)

// EventPersister adapts an EventRepository to the event log's Persister
// interface, converting the in-memory event shape to the stored one.
type EventPersister struct {
	repo EventRepository
}

func NewEventPersister(repo EventRepository) *EventPersister {
	return &EventPersister{repo: repo}
}

// Append stores one event and records the write latency.
func (p *EventPersister) Append(event events.SimEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	start := time.Now()
	err = p.repo.Append(context.Background(), StoredEvent{
		ID:        event.ID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		ActorID:   event.ActorID,
		TargetID:  event.TargetID,
		Payload:   string(payload),
		SimTime:   event.SimTime,
	})
	metrics.Get().RecordEventWrite(time.Since(start), err)
	return err
}
