package station

import (
	"github.com/halvard-m/starlanes/server/internal/domain/vec"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
)

// maxConcurrentBuilds bounds how many construction orders advance per tick.
const maxConcurrentBuilds = 5

// ConstructionOrder is a queued request to build one ship. Halted means
// the shared material cost has not been debited yet; the cost is paid
// exactly once, when the order leaves the halted state.
type ConstructionOrder struct {
	OwnerID int

	MaxSpeed      float64
	CargoCapacity int
	WeaponAttack  float64

	TimeToConstruct float64
	Halted          bool
}

// CompletedConstruction describes a finished hull. The warf cannot spawn
// ships itself (ids and ownership resolution live in the registry), so
// the engine drains these and does the spawning.
type CompletedConstruction struct {
	OwnerID       int
	MaxSpeed      float64
	CargoCapacity int
	WeaponAttack  float64
}

// WarfStation is the construction station kind: the economy core plus a
// queue of ship construction orders gated on a station-wide material pool.
type WarfStation struct {
	*Station
	buildCost []wares.Quantity
	orders    []*ConstructionOrder
	completed []CompletedConstruction

	// paying is set while an order's build cost is debited, so the
	// inventory hook does not fund sibling orders against a
	// half-debited pool.
	paying bool
}

// NewWarfStation creates a construction station. buildCost is the shared
// per-ship material bill.
func NewWarfStation(id int, name string, position vec.Vec2, pricing PricingParams, dockCapacity int, buildCost []wares.Quantity) *WarfStation {
	ws := &WarfStation{
		Station:   newStation(id, name, position, pricing, dockCapacity),
		buildCost: buildCost,
	}
	ws.Station.postUpdate = ws.restartHaltedOrders
	return ws
}

func (ws *WarfStation) Core() *Station { return ws.Station }

// OrderShip queues a construction order. The order starts halted and is
// unhalted (debiting the material cost) as soon as stock allows.
func (ws *WarfStation) OrderShip(order ConstructionOrder) {
	order.Halted = true
	ws.orders = append(ws.orders, &order)
	ws.restartHaltedOrders()
}

// HasOrderForStation reports whether a pending order already belongs to
// the given owner. The market scan uses this to avoid piling up orders.
func (ws *WarfStation) HasOrderForStation(stationID int) bool {
	for _, order := range ws.orders {
		if order.OwnerID == stationID {
			return true
		}
	}
	return false
}

// PendingOrders returns the number of queued construction orders.
func (ws *WarfStation) PendingOrders() int {
	return len(ws.orders)
}

// Tick advances the first maxConcurrentBuilds non-halted orders.
// Finished orders are removed in place, so the index is stepped back
// after each removal.
func (ws *WarfStation) Tick(dt float64) {
	for i := 0; i < maxConcurrentBuilds && i < len(ws.orders); i++ {
		order := ws.orders[i]
		if order.Halted {
			continue
		}

		order.TimeToConstruct -= dt
		if order.TimeToConstruct > 0 {
			continue
		}

		ws.completed = append(ws.completed, CompletedConstruction{
			OwnerID:       order.OwnerID,
			MaxSpeed:      order.MaxSpeed,
			CargoCapacity: order.CargoCapacity,
			WeaponAttack:  order.WeaponAttack,
		})
		ws.orders = append(ws.orders[:i], ws.orders[i+1:]...)
		i--
	}
}

// DrainCompleted returns and clears the finished hulls.
func (ws *WarfStation) DrainCompleted() []CompletedConstruction {
	done := ws.completed
	ws.completed = nil
	return done
}

// restartHaltedOrders is the post-inventory-update hook: try to pay the
// material cost of halted orders from the shared pool. Like production
// cycles, consumption is all-or-nothing per order, and the order is
// unhalted before debiting so the hook does not re-enter it.
func (ws *WarfStation) restartHaltedOrders() {
	if ws.paying {
		return
	}
	ws.paying = true
	defer func() { ws.paying = false }()

	for _, order := range ws.orders {
		if !order.Halted {
			continue
		}

		order.Halted = false
		for _, in := range ws.buildCost {
			if ws.inventory[in.Ware] < in.Amount {
				order.Halted = true
				break
			}
		}
		if order.Halted {
			continue
		}

		for _, in := range ws.buildCost {
			ws.UpdateInventory(in.Ware, -in.Amount)
		}
	}
}
