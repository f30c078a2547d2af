// Package sim seeds the starting universe: silicon mines, wafer fabs
// and one ship warf, scattered uniformly over the map. The silicon ->
// wafer chain is the economy's bootstrap: mines run a free production
// cycle, fabs buy silicon and sell wafers, the warf buys wafers and
// turns market volume into new freighters.
package sim

import (
	"fmt"
	"math/rand"

	"github.com/halvard-m/starlanes/server/internal/config"
	"github.com/halvard-m/starlanes/server/internal/domain/ship"
	"github.com/halvard-m/starlanes/server/internal/domain/station"
	"github.com/halvard-m/starlanes/server/internal/domain/vec"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
	"github.com/halvard-m/starlanes/server/internal/engine"
	"github.com/halvard-m/starlanes/server/internal/platform/logger"
)

const (
	productionCycleTime = 5.0

	siliconPerCycle  = 150
	waferInput       = 100
	wafersPerCycle   = 50
	fabSiliconTarget = 1000

	// The warf's wafer appetite is effectively unbounded; it anchors
	// the demand side of the whole chain.
	warfWaferTarget = 100000

	// Starting construction materials, held at maintenance level so the
	// warf neither buys nor sells them.
	warfHullPartsStock   = 5000
	warfEnergyCellsStock = 20000
)

// NewFreighter builds a ship from the configured preset with its own
// seeded generator.
func NewFreighter(id int, pos vec.Vec2, preset config.ShipPreset, rng *rand.Rand) *ship.Ship {
	shipRng := rand.New(rand.NewSource(rng.Int63()))
	return ship.New(id, pos, preset.MaxSpeed, preset.CargoCapacity, preset.WeaponAttack, shipRng)
}

// NewSiliconMine creates a station that produces silicon from nothing.
// A zero maintenance level for silicon makes every produced unit surplus.
func NewSiliconMine(id int, name string, pos vec.Vec2, pricing station.PricingParams, dockCapacity int, warn station.WarnFunc) *station.ProductionStation {
	ps := station.NewProductionStation(id, name, pos, pricing, dockCapacity)
	ps.SetWarnFunc(warn)
	ps.SetMaintenanceLevel(wares.Silicon, 0)
	ps.AddProductionModule(&station.ProductionModule{
		OutputWares: []wares.Quantity{{Ware: wares.Silicon, Amount: siliconPerCycle}},
		CycleTime:   productionCycleTime,
	})
	return ps
}

// NewWaferFab creates a station that refines silicon into wafers. The
// silicon maintenance target keeps it a standing buyer; wafers are all
// surplus.
func NewWaferFab(id int, name string, pos vec.Vec2, pricing station.PricingParams, dockCapacity int, warn station.WarnFunc) *station.ProductionStation {
	ps := station.NewProductionStation(id, name, pos, pricing, dockCapacity)
	ps.SetWarnFunc(warn)
	ps.SetMaintenanceLevel(wares.Silicon, fabSiliconTarget)
	ps.SetMaintenanceLevel(wares.SiliconWafers, 0)
	ps.AddProductionModule(&station.ProductionModule{
		InputWares:  []wares.Quantity{{Ware: wares.Silicon, Amount: waferInput}},
		OutputWares: []wares.Quantity{{Ware: wares.SiliconWafers, Amount: wafersPerCycle}},
		CycleTime:   productionCycleTime,
	})
	return ps
}

// NewShipWarf creates the construction station. It stocks enough hull
// parts and energy cells for thousands of hulls and holds them at
// maintenance level so they never hit the market.
func NewShipWarf(id int, name string, pos vec.Vec2, pricing station.PricingParams, dockCapacity int, warn station.WarnFunc) *station.WarfStation {
	ws := station.NewWarfStation(id, name, pos, pricing, dockCapacity, wares.ShipConstructionCost)
	ws.SetWarnFunc(warn)
	ws.SetMaintenanceLevel(wares.SiliconWafers, warfWaferTarget)
	ws.SetMaintenanceLevel(wares.HullParts, warfHullPartsStock)
	ws.SetMaintenanceLevel(wares.EnergyCells, warfEnergyCellsStock)
	ws.UpdateInventory(wares.HullParts, warfHullPartsStock)
	ws.UpdateInventory(wares.EnergyCells, warfEnergyCellsStock)
	return ws
}

// SeedWorld populates the registry with the configured starting
// universe. The same seed reproduces the same world.
func SeedWorld(cfg *config.Config, reg *engine.Registry, log *logger.Logger, rng *rand.Rand) {
	pricing := station.PricingParams{
		MaxExpectedProduct: cfg.Economy.MaxExpectedProduct,
		MaxPriceChangeFrac: cfg.Economy.MaxPriceChangeFrac,
		PriceCurveExponent: cfg.Economy.PriceCurveExponent,
	}
	warn := station.WarnFunc(log.Warn)

	randomPos := func() vec.Vec2 {
		return vec.Vec2{
			X: (rng.Float64()*2 - 1) * cfg.World.Extent,
			Y: (rng.Float64()*2 - 1) * cfg.World.Extent,
		}
	}

	for i := 0; i < cfg.World.SiliconStations; i++ {
		id := reg.NextID()
		reg.AddStation(NewSiliconMine(id, fmt.Sprintf("Silicon Mine %d", i+1), randomPos(), pricing, cfg.DockCapacity, warn))
	}

	for i := 0; i < cfg.World.WaferStations; i++ {
		id := reg.NextID()
		reg.AddStation(NewWaferFab(id, fmt.Sprintf("Wafer Fab %d", i+1), randomPos(), pricing, cfg.DockCapacity, warn))
	}

	warfID := reg.NextID()
	warf := NewShipWarf(warfID, "Shipyard Prime", randomPos(), pricing, cfg.DockCapacity, warn)
	reg.AddStation(warf)

	// One starter freighter so the economy moves before the first
	// market scan commissions anything.
	freighter := NewFreighter(reg.NextID(), warf.Position(), cfg.Freighter, rng)
	warf.AddShip(freighter)
	reg.AddShip(freighter)

	log.Info(fmt.Sprintf("World seeded: %d silicon mines, %d wafer fabs, 1 warf, 1 freighter",
		cfg.World.SiliconStations, cfg.World.WaferStations))
}
