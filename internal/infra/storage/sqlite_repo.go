package storage

import (
	"context"
	"database/sql"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event StoredEvent) error {
	query := `
		INSERT INTO events (id, timestamp, event_type, actor_id, target_id, payload, sim_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Timestamp, event.EventType, event.ActorID,
		event.TargetID, event.Payload, event.SimTime,
	)
	return err
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.ActorID, &e.TargetID, &e.Payload, &e.SimTime)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteEventRepository) GetAll(ctx context.Context) ([]StoredEvent, error) {
	query := `SELECT id, timestamp, event_type, actor_id, target_id, payload, sim_time FROM events ORDER BY sim_time ASC, timestamp ASC`
	return r.getMany(ctx, query)
}

func (r *SQLiteEventRepository) GetByActorID(ctx context.Context, actorID string) ([]StoredEvent, error) {
	query := `SELECT id, timestamp, event_type, actor_id, target_id, payload, sim_time FROM events WHERE actor_id = ? ORDER BY sim_time ASC, timestamp ASC`
	return r.getMany(ctx, query, actorID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, eventType string) ([]StoredEvent, error) {
	query := `SELECT id, timestamp, event_type, actor_id, target_id, payload, sim_time FROM events WHERE event_type = ? ORDER BY sim_time ASC, timestamp ASC`
	return r.getMany(ctx, query, eventType)
}

func (r *SQLiteEventRepository) LastSimTime(ctx context.Context) (float64, error) {
	query := `SELECT COALESCE(MAX(sim_time), 0) FROM events`
	var t float64
	if err := r.db.QueryRowContext(ctx, query).Scan(&t); err != nil {
		return 0, err
	}
	return t, nil
}

// ---------------------------------------------------------
// SQLiteSnapshotRepository
// ---------------------------------------------------------

type SQLiteSnapshotRepository struct {
	db *sql.DB
}

func NewSQLiteSnapshotRepository(db *sql.DB) *SQLiteSnapshotRepository {
	return &SQLiteSnapshotRepository{db: db}
}

func (r *SQLiteSnapshotRepository) UpsertStation(ctx context.Context, snapshot StationSnapshot) error {
	query := `
		INSERT INTO station_snapshots (station_id, name, kind, pos_x, pos_y, inventory, buy_offers, sell_offers, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station_id) DO UPDATE SET
			name=excluded.name,
			kind=excluded.kind,
			pos_x=excluded.pos_x,
			pos_y=excluded.pos_y,
			inventory=excluded.inventory,
			buy_offers=excluded.buy_offers,
			sell_offers=excluded.sell_offers,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		snapshot.StationID, snapshot.Name, snapshot.Kind, snapshot.PosX, snapshot.PosY,
		snapshot.Inventory, snapshot.BuyOffers, snapshot.SellOffers, time.Now(),
	)
	return err
}

func (r *SQLiteSnapshotRepository) UpsertShip(ctx context.Context, snapshot ShipSnapshot) error {
	query := `
		INSERT INTO ship_snapshots (ship_id, owner_id, pos_x, pos_y, hull, docked_at, cargo, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ship_id) DO UPDATE SET
			owner_id=excluded.owner_id,
			pos_x=excluded.pos_x,
			pos_y=excluded.pos_y,
			hull=excluded.hull,
			docked_at=excluded.docked_at,
			cargo=excluded.cargo,
			last_updated=excluded.last_updated
	`
	_, err := r.db.ExecContext(ctx, query,
		snapshot.ShipID, snapshot.OwnerID, snapshot.PosX, snapshot.PosY,
		snapshot.Hull, snapshot.DockedAt, snapshot.Cargo, time.Now(),
	)
	return err
}

func (r *SQLiteSnapshotRepository) GetStations(ctx context.Context) ([]StationSnapshot, error) {
	query := `SELECT station_id, name, kind, pos_x, pos_y, inventory, buy_offers, sell_offers, last_updated FROM station_snapshots`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []StationSnapshot
	for rows.Next() {
		var s StationSnapshot
		if err := rows.Scan(&s.StationID, &s.Name, &s.Kind, &s.PosX, &s.PosY, &s.Inventory, &s.BuyOffers, &s.SellOffers, &s.LastUpdated); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func (r *SQLiteSnapshotRepository) GetShips(ctx context.Context) ([]ShipSnapshot, error) {
	query := `SELECT ship_id, owner_id, pos_x, pos_y, hull, docked_at, cargo, last_updated FROM ship_snapshots`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []ShipSnapshot
	for rows.Next() {
		var s ShipSnapshot
		if err := rows.Scan(&s.ShipID, &s.OwnerID, &s.PosX, &s.PosY, &s.Hull, &s.DockedAt, &s.Cargo, &s.LastUpdated); err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func (r *SQLiteSnapshotRepository) DeleteShip(ctx context.Context, shipID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ship_snapshots WHERE ship_id = ?`, shipID)
	return err
}
