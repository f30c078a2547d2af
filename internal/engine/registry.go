package engine

import (
	"fmt"

	"github.com/halvard-m/starlanes/server/internal/domain/ship"
	"github.com/halvard-m/starlanes/server/internal/domain/station"
)

// Registry is the sole owner of all ships and stations. Everything else
// refers to entities by id and resolves them here, which keeps the
// ship<->station<->registry graph cycle free. Slices preserve insertion
// order because the frame loop processes entities in that order.
type Registry struct {
	ships    []*ship.Ship
	stations []station.Entity
	warfs    []*station.WarfStation

	shipsByID    map[int]*ship.Ship
	stationsByID map[int]station.Entity

	nextID int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		shipsByID:    make(map[int]*ship.Ship),
		stationsByID: make(map[int]station.Entity),
	}
}

// NextID hands out the next entity id. Ships and stations share one
// id space.
func (r *Registry) NextID() int {
	id := r.nextID
	r.nextID++
	return id
}

// AddShip registers a ship.
func (r *Registry) AddShip(sh *ship.Ship) {
	r.ships = append(r.ships, sh)
	r.shipsByID[sh.ID()] = sh
}

// RemoveShip unregisters a ship (destruction or external disposal).
func (r *Registry) RemoveShip(shipID int) error {
	if _, ok := r.shipsByID[shipID]; !ok {
		return fmt.Errorf("registry: ship %d not found", shipID)
	}
	delete(r.shipsByID, shipID)
	for i, sh := range r.ships {
		if sh.ID() == shipID {
			r.ships = append(r.ships[:i], r.ships[i+1:]...)
			break
		}
	}
	return nil
}

// AddStation registers a station of either kind.
func (r *Registry) AddStation(st station.Entity) {
	r.stations = append(r.stations, st)
	r.stationsByID[st.Core().ID()] = st
	if warf, ok := st.(*station.WarfStation); ok {
		r.warfs = append(r.warfs, warf)
	}
}

// RemoveStation unregisters a station. Exists for completeness; the
// economic loop never destroys stations.
func (r *Registry) RemoveStation(stationID int) error {
	if _, ok := r.stationsByID[stationID]; !ok {
		return fmt.Errorf("registry: station %d not found", stationID)
	}
	delete(r.stationsByID, stationID)
	for i, st := range r.stations {
		if st.Core().ID() == stationID {
			r.stations = append(r.stations[:i], r.stations[i+1:]...)
			break
		}
	}
	for i, warf := range r.warfs {
		if warf.ID() == stationID {
			r.warfs = append(r.warfs[:i], r.warfs[i+1:]...)
			break
		}
	}
	return nil
}

// ShipByID resolves a ship id, nil if gone.
func (r *Registry) ShipByID(id int) *ship.Ship {
	return r.shipsByID[id]
}

// StationByID resolves a station id, nil if unknown.
func (r *Registry) StationByID(id int) station.Entity {
	return r.stationsByID[id]
}

// Ships returns all ships in insertion order.
func (r *Registry) Ships() []*ship.Ship {
	return r.ships
}

// Stations returns all stations in insertion order.
func (r *Registry) Stations() []station.Entity {
	return r.stations
}

// Warfs returns the construction-station subset.
func (r *Registry) Warfs() []*station.WarfStation {
	return r.warfs
}
