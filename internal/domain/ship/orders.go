package ship

import (
	"github.com/halvard-m/starlanes/server/internal/domain/vec"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
)

// Order is one queued action for a ship. The variant set is closed:
// DockAtStation, TradeWithStation, Undock and MoveToPosition. Execution
// dispatches with a type switch and treats any other type as a
// programming error.
type Order interface {
	isOrder()
}

// DockAtStation sends the ship toward a station and requests a docking
// slot on arrival.
type DockAtStation struct {
	StationID int
}

// TradeWithStation exchanges wares with the station the ship is
// currently docked at. Type is the trade from the ship's point of view:
// Buy loads cargo from the station, Sell unloads into it.
type TradeWithStation struct {
	StationID int
	Type      wares.TradeType
	Ware      wares.Ware
	Quantity  int
}

// Undock releases the ship from its current docking slot.
type Undock struct{}

// MoveToPosition sets a bare movement target with no station intent.
type MoveToPosition struct {
	Position vec.Vec2
}

func (DockAtStation) isOrder()    {}
func (TradeWithStation) isOrder() {}
func (Undock) isOrder()           {}
func (MoveToPosition) isOrder()   {}
