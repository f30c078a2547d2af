package engine

import (
	"math/rand"
	"testing"

	"github.com/halvard-m/starlanes/server/internal/config"
	"github.com/halvard-m/starlanes/server/internal/domain/ship"
	"github.com/halvard-m/starlanes/server/internal/domain/station"
	"github.com/halvard-m/starlanes/server/internal/domain/vec"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
	"github.com/halvard-m/starlanes/server/internal/events"
	"github.com/halvard-m/starlanes/server/internal/platform/logger"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.World.SiliconStations = 0
	cfg.World.WaferStations = 0
	cfg.TradeCooldownMax = 2
	return cfg
}

func testPricing(cfg *config.Config) station.PricingParams {
	return station.PricingParams{
		MaxExpectedProduct: cfg.Economy.MaxExpectedProduct,
		MaxPriceChangeFrac: cfg.Economy.MaxPriceChangeFrac,
		PriceCurveExponent: cfg.Economy.PriceCurveExponent,
	}
}

func newTestEngine(t *testing.T, cfg *config.Config) (*Engine, *Registry, *events.EventLog) {
	t.Helper()
	reg := NewRegistry()
	el := events.NewEventLog(nil)
	eng := NewEngine(cfg, reg, el, logger.NewLogger(), rand.New(rand.NewSource(1)))
	return eng, reg, el
}

func newEngineShip(reg *Registry, pos vec.Vec2, weaponAttack float64) *ship.Ship {
	id := reg.NextID()
	sh := ship.New(id, pos, 600, 100, weaponAttack, rand.New(rand.NewSource(int64(id))))
	reg.AddShip(sh)
	return sh
}

func TestSiliconRoundTripDeliversCargo(t *testing.T) {
	cfg := testConfig()
	eng, reg, el := newTestEngine(t, cfg)
	pricing := testPricing(cfg)

	mine := station.NewProductionStation(reg.NextID(), "Mine", vec.Vec2{}, pricing, cfg.DockCapacity)
	mine.SetMaintenanceLevel(wares.Silicon, 0)
	mine.UpdateInventory(wares.Silicon, 600)
	reg.AddStation(mine)

	fab := station.NewProductionStation(reg.NextID(), "Fab", vec.Vec2{X: 100}, pricing, cfg.DockCapacity)
	fab.SetMaintenanceLevel(wares.Silicon, 1000)
	reg.AddStation(fab)

	freighter := newEngineShip(reg, vec.Vec2{X: 100}, 1.0)
	fab.AddShip(freighter)

	delivered := false
	for i := 0; i < 5000; i++ {
		eng.Step(0.1)
		if fab.InventoryOf(wares.Silicon) > 0 {
			delivered = true
			break
		}
	}
	if !delivered {
		t.Fatalf("Freighter never delivered silicon to the fab")
	}

	// The trade was capped by the freighter's 100-unit hold.
	if got := fab.InventoryOf(wares.Silicon); got != 100 {
		t.Errorf("Expected 100 silicon delivered, got %d", got)
	}
	if got := mine.InventoryOf(wares.Silicon); got != 500 {
		t.Errorf("Expected mine stock 500 after selling 100, got %d", got)
	}
	if mine.SellReservationOf(wares.Silicon) != 0 {
		t.Errorf("Expected mine sell reservation settled, got %d", mine.SellReservationOf(wares.Silicon))
	}
	if fab.BuyReservationOf(wares.Silicon) != 0 {
		t.Errorf("Expected fab buy reservation settled, got %d", fab.BuyReservationOf(wares.Silicon))
	}
	if freighter.CargoOf(wares.Silicon) != 0 {
		t.Errorf("Expected empty hold after delivery, got %d", freighter.CargoOf(wares.Silicon))
	}

	if got := len(el.GetByType(events.EventTypeTradeAccepted)); got < 1 {
		t.Errorf("Expected at least one TRADE_ACCEPTED event, got %d", got)
	}
	if got := len(el.GetByType(events.EventTypeWaresTransferred)); got < 2 {
		t.Errorf("Expected both transfer legs logged, got %d", got)
	}
}

func TestDockOverflowResumesQueuedShip(t *testing.T) {
	cfg := testConfig()
	eng, reg, el := newTestEngine(t, cfg)
	pricing := testPricing(cfg)

	st := station.NewProductionStation(reg.NextID(), "Hub", vec.Vec2{}, pricing, cfg.DockCapacity)
	reg.AddStation(st)

	occupants := make([]*ship.Ship, 0, cfg.DockCapacity)
	for i := 0; i < cfg.DockCapacity; i++ {
		sh := newEngineShip(reg, vec.Vec2{}, 1.0)
		if !st.RequestDock(sh) {
			t.Fatalf("Expected ship %d admitted", sh.ID())
		}
		occupants = append(occupants, sh)
	}

	waiter := newEngineShip(reg, vec.Vec2{}, 1.0)
	eng.Trade().HandleArrival(waiter, st.ID())
	if waiter.IsDocked() {
		t.Fatalf("Expected 6th ship queued, not docked")
	}
	if st.QueuedCount() != 1 {
		t.Fatalf("Expected 1 queued ship, got %d", st.QueuedCount())
	}

	occupants[0].EnqueueOrder(ship.Undock{})
	eng.Trade().RunOrders(occupants[0])

	if occupants[0].IsDocked() {
		t.Errorf("Expected occupant undocked")
	}
	if !waiter.IsDocked() || waiter.DockedAt() != st.ID() {
		t.Errorf("Expected waiter admitted on undock")
	}
	if got := len(el.GetByType(events.EventTypeShipUndocked)); got != 1 {
		t.Errorf("Expected 1 SHIP_UNDOCKED event, got %d", got)
	}
	if got := len(el.GetByType(events.EventTypeShipDocked)); got != 1 {
		t.Errorf("Expected 1 SHIP_DOCKED event for the admitted waiter, got %d", got)
	}
}

func TestMarketScanCommissionsFreighterOnce(t *testing.T) {
	cfg := testConfig()
	eng, reg, el := newTestEngine(t, cfg)
	pricing := testPricing(cfg)

	mine := station.NewProductionStation(reg.NextID(), "Mine", vec.Vec2{}, pricing, cfg.DockCapacity)
	mine.SetMaintenanceLevel(wares.Silicon, 0)
	mine.UpdateInventory(wares.Silicon, 600)
	reg.AddStation(mine)

	fab := station.NewProductionStation(reg.NextID(), "Fab", vec.Vec2{X: 100}, pricing, cfg.DockCapacity)
	fab.SetMaintenanceLevel(wares.Silicon, 1000)
	fab.ReevaluateTradeOffers()
	reg.AddStation(fab)

	warf := station.NewWarfStation(reg.NextID(), "Warf", vec.Vec2{X: 50}, pricing, cfg.DockCapacity, wares.ShipConstructionCost)
	warf.SetMaintenanceLevel(wares.HullParts, 0)
	warf.SetMaintenanceLevel(wares.EnergyCells, 0)
	reg.AddStation(warf)

	// Tradeable silicon volume is min(600, 1000) = 600 > threshold 500;
	// demand outweighs supply, so the buyer gets the hull.
	eng.Market().Scan()
	if warf.PendingOrders() != 1 {
		t.Fatalf("Expected 1 construction order, got %d", warf.PendingOrders())
	}
	if !warf.HasOrderForStation(fab.ID()) {
		t.Errorf("Expected the freighter commissioned for the buying fab")
	}

	// A second scan must not stack a duplicate order.
	eng.Market().Scan()
	if warf.PendingOrders() != 1 {
		t.Errorf("Expected duplicate order suppressed, got %d", warf.PendingOrders())
	}

	if got := len(el.GetByType(events.EventTypeConstructionOrdered)); got != 1 {
		t.Errorf("Expected 1 CONSTRUCTION_ORDERED event, got %d", got)
	}
	if got := len(el.GetByType(events.EventTypeMarketScan)); got != 2 {
		t.Errorf("Expected 2 MARKET_SCAN events, got %d", got)
	}
}

func TestMarketScanBelowThresholdOrdersNothing(t *testing.T) {
	cfg := testConfig()
	eng, reg, _ := newTestEngine(t, cfg)
	pricing := testPricing(cfg)

	mine := station.NewProductionStation(reg.NextID(), "Mine", vec.Vec2{}, pricing, cfg.DockCapacity)
	mine.SetMaintenanceLevel(wares.Silicon, 0)
	mine.UpdateInventory(wares.Silicon, 300) // volume 300 <= 500
	reg.AddStation(mine)

	fab := station.NewProductionStation(reg.NextID(), "Fab", vec.Vec2{X: 100}, pricing, cfg.DockCapacity)
	fab.SetMaintenanceLevel(wares.Silicon, 1000)
	fab.ReevaluateTradeOffers()
	reg.AddStation(fab)

	warf := station.NewWarfStation(reg.NextID(), "Warf", vec.Vec2{X: 50}, pricing, cfg.DockCapacity, wares.ShipConstructionCost)
	reg.AddStation(warf)

	eng.Market().Scan()
	if warf.PendingOrders() != 0 {
		t.Errorf("Expected no order below the volume threshold, got %d", warf.PendingOrders())
	}
}

func TestConstructionSpawnsOwnedShip(t *testing.T) {
	cfg := testConfig()
	eng, reg, el := newTestEngine(t, cfg)
	pricing := testPricing(cfg)

	owner := station.NewProductionStation(reg.NextID(), "Owner", vec.Vec2{X: 100}, pricing, cfg.DockCapacity)
	reg.AddStation(owner)

	warf := station.NewWarfStation(reg.NextID(), "Warf", vec.Vec2{}, pricing, cfg.DockCapacity, wares.ShipConstructionCost)
	warf.SetMaintenanceLevel(wares.HullParts, 0)
	warf.SetMaintenanceLevel(wares.EnergyCells, 0)
	reg.AddStation(warf)

	warf.OrderShip(station.ConstructionOrder{
		OwnerID:         owner.ID(),
		MaxSpeed:        cfg.Freighter.MaxSpeed,
		CargoCapacity:   cfg.Freighter.CargoCapacity,
		WeaponAttack:    cfg.Freighter.WeaponAttack,
		TimeToConstruct: cfg.Freighter.BuildTime,
	})
	for _, cost := range wares.ShipConstructionCost {
		warf.UpdateInventory(cost.Ware, cost.Amount)
	}

	eng.Step(cfg.Freighter.BuildTime)

	ships := reg.Ships()
	if len(ships) != 1 {
		t.Fatalf("Expected 1 spawned ship, got %d", len(ships))
	}
	sh := ships[0]
	if sh.OwnerID() != owner.ID() {
		t.Errorf("Expected spawned ship owned by station %d, got %d", owner.ID(), sh.OwnerID())
	}
	if sh.Position() != warf.Position() {
		t.Errorf("Expected spawn at the warf, got %v", sh.Position())
	}
	if sh.CargoCapacity() != cfg.Freighter.CargoCapacity {
		t.Errorf("Expected preset cargo capacity, got %d", sh.CargoCapacity())
	}
	if got := len(el.GetByType(events.EventTypeShipConstructed)); got != 1 {
		t.Errorf("Expected 1 SHIP_CONSTRUCTED event, got %d", got)
	}
}

func TestCombatDestroysShipAndReleasesReservations(t *testing.T) {
	cfg := testConfig()
	eng, reg, el := newTestEngine(t, cfg)
	pricing := testPricing(cfg)

	st := station.NewProductionStation(reg.NextID(), "Mine", vec.Vec2{X: 5000}, pricing, cfg.DockCapacity)
	st.SetMaintenanceLevel(wares.Silicon, 0)
	st.UpdateInventory(wares.Silicon, 100)
	reg.AddStation(st)

	if err := st.AcceptTrade(wares.Sell, wares.Silicon, 50); err != nil {
		t.Fatalf("AcceptTrade: %v", err)
	}

	target := newEngineShip(reg, vec.Vec2{}, 0)
	st.AddShip(target)
	target.EnqueueOrder(ship.TradeWithStation{StationID: st.ID(), Type: wares.Buy, Ware: wares.Silicon, Quantity: 50})

	attacker := newEngineShip(reg, vec.Vec2{X: 10}, 5.0)

	eng.Combat().Intercept(attacker, target.ID())
	eng.Combat().Tick(attacker, 0.1)

	if reg.ShipByID(target.ID()) != nil {
		t.Fatalf("Expected target destroyed and unregistered")
	}
	if reg.ShipByID(attacker.ID()) == nil {
		t.Errorf("Expected unarmed target unable to kill the attacker")
	}
	if attacker.InterceptTargetID() != ship.NoStation {
		t.Errorf("Expected intercept target cleared after the kill")
	}

	// The station's committed stock comes back when its courier dies.
	if st.SellReservationOf(wares.Silicon) != 0 {
		t.Errorf("Expected sell reservation released, got %d", st.SellReservationOf(wares.Silicon))
	}
	if st.InventoryOf(wares.Silicon) != 100 {
		t.Errorf("Expected debited stock restored to 100, got %d", st.InventoryOf(wares.Silicon))
	}
	if len(st.OwnedShips()) != 0 {
		t.Errorf("Expected fleet roster emptied, got %v", st.OwnedShips())
	}
	if got := len(el.GetByType(events.EventTypeShipDestroyed)); got != 1 {
		t.Errorf("Expected 1 SHIP_DESTROYED event, got %d", got)
	}
}

func TestCombatPurgesQueuedShipFromDockQueue(t *testing.T) {
	cfg := testConfig()
	eng, reg, _ := newTestEngine(t, cfg)
	pricing := testPricing(cfg)

	st := station.NewProductionStation(reg.NextID(), "Hub", vec.Vec2{}, pricing, 1)
	reg.AddStation(st)

	occupant := newEngineShip(reg, vec.Vec2{}, 1.0)
	if !st.RequestDock(occupant) {
		t.Fatalf("Expected occupant admitted")
	}

	waiter := newEngineShip(reg, vec.Vec2{}, 0)
	eng.Trade().HandleArrival(waiter, st.ID())
	if waiter.IsDocked() || st.QueuedCount() != 1 {
		t.Fatalf("Expected waiter queued at the full dock")
	}

	attacker := newEngineShip(reg, vec.Vec2{X: 10}, 5.0)
	eng.Combat().Intercept(attacker, waiter.ID())
	eng.Combat().Tick(attacker, 0.1)
	if reg.ShipByID(waiter.ID()) != nil {
		t.Fatalf("Expected waiter destroyed")
	}
	if st.QueuedCount() != 0 {
		t.Errorf("Expected destroyed ship purged from the dock queue, got %d queued", st.QueuedCount())
	}

	// The freed slot stays empty instead of admitting the dead hull.
	occupant.EnqueueOrder(ship.Undock{})
	eng.Trade().RunOrders(occupant)
	if st.DockedCount() != 0 {
		t.Errorf("Expected no ship admitted on undock, got %d docked", st.DockedCount())
	}
	if waiter.IsDocked() {
		t.Errorf("Expected destroyed ship never marked docked")
	}
}

func TestInterceptChasesOutOfRangeTarget(t *testing.T) {
	cfg := testConfig()
	eng, reg, _ := newTestEngine(t, cfg)

	target := newEngineShip(reg, vec.Vec2{X: 1000}, 0)
	attacker := newEngineShip(reg, vec.Vec2{}, 5.0)

	eng.Combat().Intercept(attacker, target.ID())
	eng.Combat().Tick(attacker, 0.1)

	if reg.ShipByID(target.ID()) == nil {
		t.Fatalf("Target out of range must not die in one tick")
	}
	if attacker.Position().X <= 0 {
		t.Errorf("Expected attacker closing in, still at %v", attacker.Position())
	}

	// The chase ends in the kill once the gap closes.
	for i := 0; i < 100 && reg.ShipByID(target.ID()) != nil; i++ {
		eng.Combat().Tick(attacker, 0.1)
	}
	if reg.ShipByID(target.ID()) != nil {
		t.Errorf("Expected stationary target destroyed after the chase")
	}
}

func TestRegistryRemoveUnknownShip(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RemoveShip(99); err == nil {
		t.Errorf("Expected error removing unknown ship")
	}
}
