package station

import (
	"testing"

	"github.com/halvard-m/starlanes/server/internal/domain/vec"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
)

func newTestWarf() *WarfStation {
	ws := NewWarfStation(1, "Test Warf", vec.Vec2{}, testPricing, 5, wares.ShipConstructionCost)
	ws.SetMaintenanceLevel(wares.HullParts, 0)
	ws.SetMaintenanceLevel(wares.EnergyCells, 0)
	return ws
}

func stockOneBuild(ws *WarfStation) {
	for _, cost := range wares.ShipConstructionCost {
		ws.UpdateInventory(cost.Ware, cost.Amount)
	}
}

func TestOrderHaltedUntilStocked(t *testing.T) {
	ws := newTestWarf()
	ws.OrderShip(ConstructionOrder{OwnerID: 7, TimeToConstruct: 10})

	ws.Tick(100)
	if got := len(ws.DrainCompleted()); got != 0 {
		t.Fatalf("Expected no completed hulls without materials, got %d", got)
	}

	stockOneBuild(ws)
	ws.Tick(10)
	done := ws.DrainCompleted()
	if len(done) != 1 {
		t.Fatalf("Expected 1 completed hull after stocking, got %d", len(done))
	}
	if done[0].OwnerID != 7 {
		t.Errorf("Expected owner 7, got %d", done[0].OwnerID)
	}
}

func TestBuildCostDebitedExactlyOnce(t *testing.T) {
	ws := newTestWarf()
	ws.OrderShip(ConstructionOrder{OwnerID: 1, TimeToConstruct: 10})
	ws.OrderShip(ConstructionOrder{OwnerID: 2, TimeToConstruct: 10})

	// Materials for exactly one hull: the first order starts, the
	// second stays halted, and nothing is double-debited.
	stockOneBuild(ws)

	if got := ws.InventoryOf(wares.HullParts); got != 0 {
		t.Errorf("Expected hull parts fully consumed by one order, got %d", got)
	}
	if got := ws.InventoryOf(wares.EnergyCells); got != 0 {
		t.Errorf("Expected energy cells fully consumed by one order, got %d", got)
	}

	ws.Tick(10)
	done := ws.DrainCompleted()
	if len(done) != 1 {
		t.Fatalf("Expected exactly 1 completed hull, got %d", len(done))
	}
	if done[0].OwnerID != 1 {
		t.Errorf("Expected the first order to build, got owner %d", done[0].OwnerID)
	}
	if ws.PendingOrders() != 1 {
		t.Errorf("Expected the starved order still pending, got %d", ws.PendingOrders())
	}
}

func TestSharedPoolNotDoubleSpentAcrossOrders(t *testing.T) {
	ws := newTestWarf()
	ws.OrderShip(ConstructionOrder{OwnerID: 1, TimeToConstruct: 10})
	ws.OrderShip(ConstructionOrder{OwnerID: 2, TimeToConstruct: 10})

	// Hull parts for two bills, energy cells for one. The delivery that
	// completes the first order's bill must not let the second order
	// spend the pool while the first is still debiting.
	ws.UpdateInventory(wares.HullParts, 100)
	ws.UpdateInventory(wares.EnergyCells, 200)

	if got := ws.InventoryOf(wares.HullParts); got != 50 {
		t.Errorf("Expected 50 hull parts left after one bill, got %d", got)
	}
	if got := ws.InventoryOf(wares.EnergyCells); got != 0 {
		t.Errorf("Expected energy cells fully consumed by one bill, got %d", got)
	}

	ws.Tick(10)
	done := ws.DrainCompleted()
	if len(done) != 1 || done[0].OwnerID != 1 {
		t.Fatalf("Expected only the first order funded, got %v", done)
	}
	if ws.PendingOrders() != 1 {
		t.Errorf("Expected the second order still pending, got %d", ws.PendingOrders())
	}
}

func TestSecondOrderStartsAfterRestock(t *testing.T) {
	ws := newTestWarf()
	ws.OrderShip(ConstructionOrder{OwnerID: 1, TimeToConstruct: 10})
	ws.OrderShip(ConstructionOrder{OwnerID: 2, TimeToConstruct: 10})
	stockOneBuild(ws)
	ws.Tick(10)
	ws.DrainCompleted()

	stockOneBuild(ws)
	ws.Tick(10)
	done := ws.DrainCompleted()
	if len(done) != 1 || done[0].OwnerID != 2 {
		t.Fatalf("Expected the second order to complete after restock, got %v", done)
	}
}

func TestHasOrderForStation(t *testing.T) {
	ws := newTestWarf()
	ws.OrderShip(ConstructionOrder{OwnerID: 42, TimeToConstruct: 10})

	if !ws.HasOrderForStation(42) {
		t.Errorf("Expected pending order for station 42")
	}
	if ws.HasOrderForStation(43) {
		t.Errorf("Expected no pending order for station 43")
	}
}

func TestCompletedConstructionCarriesPreset(t *testing.T) {
	ws := newTestWarf()
	ws.OrderShip(ConstructionOrder{
		OwnerID:         3,
		MaxSpeed:        600,
		CargoCapacity:   100,
		WeaponAttack:    1.0,
		TimeToConstruct: 10,
	})
	stockOneBuild(ws)
	ws.Tick(10)

	done := ws.DrainCompleted()
	if len(done) != 1 {
		t.Fatalf("Expected 1 completed hull, got %d", len(done))
	}
	c := done[0]
	if c.MaxSpeed != 600 || c.CargoCapacity != 100 || c.WeaponAttack != 1.0 {
		t.Errorf("Preset lost in construction: %+v", c)
	}
	if len(ws.DrainCompleted()) != 0 {
		t.Errorf("Expected DrainCompleted to clear the list")
	}
}
