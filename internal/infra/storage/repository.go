// Package storage provides the persistence layer for the simulation
// server. It implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// StoredEvent mirrors the simulation event structure for persistence.
// The domain packages do NOT import this; the engine talks to the event
// log, and the log's persister converts on the way down.
type StoredEvent struct {
	ID        string    `json:"id" db:"id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	EventType string    `json:"event_type" db:"event_type"`
	ActorID   string    `json:"actor_id" db:"actor_id"`
	TargetID  string    `json:"target_id" db:"target_id"`
	Payload   string    `json:"payload" db:"payload"` // JSON blob
	SimTime   float64   `json:"sim_time" db:"sim_time"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event StoredEvent) error

	// GetAll retrieves the full ledger in append order (for replay).
	GetAll(ctx context.Context) ([]StoredEvent, error)

	// GetByActorID retrieves all events performed by an actor.
	GetByActorID(ctx context.Context, actorID string) ([]StoredEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, eventType string) ([]StoredEvent, error)

	// LastSimTime returns the sim clock of the newest persisted event,
	// 0 when the ledger is empty. Startup uses this to resume the clock.
	LastSimTime(ctx context.Context) (float64, error)
}

// StationSnapshot is the current state of a station for quick reads.
// Inventory and offers are stored as JSON blobs; the snapshot table is
// a read model, not a source of truth (the event ledger is).
type StationSnapshot struct {
	StationID   int       `json:"station_id" db:"station_id"`
	Name        string    `json:"name" db:"name"`
	Kind        string    `json:"kind" db:"kind"` // "production" or "warf"
	PosX        float64   `json:"pos_x" db:"pos_x"`
	PosY        float64   `json:"pos_y" db:"pos_y"`
	Inventory   string    `json:"inventory" db:"inventory"`
	BuyOffers   string    `json:"buy_offers" db:"buy_offers"`
	SellOffers  string    `json:"sell_offers" db:"sell_offers"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// ShipSnapshot is the current state of a ship for quick reads.
type ShipSnapshot struct {
	ShipID      int       `json:"ship_id" db:"ship_id"`
	OwnerID     int       `json:"owner_id" db:"owner_id"`
	PosX        float64   `json:"pos_x" db:"pos_x"`
	PosY        float64   `json:"pos_y" db:"pos_y"`
	Hull        float64   `json:"hull" db:"hull"`
	DockedAt    int       `json:"docked_at" db:"docked_at"`
	Cargo       string    `json:"cargo" db:"cargo"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// SnapshotRepository defines the interface for entity state snapshots.
type SnapshotRepository interface {
	// UpsertStation updates or inserts a station snapshot.
	UpsertStation(ctx context.Context, snapshot StationSnapshot) error

	// UpsertShip updates or inserts a ship snapshot.
	UpsertShip(ctx context.Context, snapshot ShipSnapshot) error

	// GetStations retrieves all station snapshots.
	GetStations(ctx context.Context) ([]StationSnapshot, error)

	// GetShips retrieves all ship snapshots.
	GetShips(ctx context.Context) ([]ShipSnapshot, error)

	// DeleteShip removes a destroyed ship's snapshot.
	DeleteShip(ctx context.Context, shipID int) error
}
