package station

import (
	"github.com/halvard-m/starlanes/server/internal/domain/vec"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
)

// ProductionModule is one recurring input->output conversion. Owned
// exclusively by its station; only the production state machine mutates it.
type ProductionModule struct {
	InputWares  []wares.Quantity
	OutputWares []wares.Quantity

	CycleTime        float64
	CurrentCycleTime float64

	// Halted means the last cycle attempt found insufficient inputs.
	// Every inventory change reattempts halted modules.
	Halted bool
}

// ProductionStation is the generic station kind: the economy core plus
// a list of production modules.
type ProductionStation struct {
	*Station
	modules []*ProductionModule

	// consuming is set while a cycle start debits its inputs, so the
	// inventory hook does not fund sibling modules against a
	// half-debited pool.
	consuming bool
}

// NewProductionStation creates a production station.
func NewProductionStation(id int, name string, position vec.Vec2, pricing PricingParams, dockCapacity int) *ProductionStation {
	ps := &ProductionStation{Station: newStation(id, name, position, pricing, dockCapacity)}
	ps.Station.postUpdate = ps.restartHaltedModules
	return ps
}

func (ps *ProductionStation) Core() *Station { return ps.Station }

// AddProductionModule registers a module, makes sure its input wares
// have inventory entries, and starts the first cycle right away if the
// inputs are already satisfied.
func (ps *ProductionStation) AddProductionModule(m *ProductionModule) {
	m.Halted = true
	ps.modules = append(ps.modules, m)
	for _, in := range m.InputWares {
		if _, ok := ps.inventory[in.Ware]; !ok {
			ps.inventory[in.Ware] = 0
		}
	}
	ps.startNewProductionCycle(m)
}

// Modules returns the module list for read-only inspection.
func (ps *ProductionStation) Modules() []*ProductionModule {
	return ps.modules
}

// Tick advances every running cycle by dt. A completed cycle credits
// its outputs, carries the timer remainder over, and immediately tries
// to start the next cycle.
func (ps *ProductionStation) Tick(dt float64) {
	for _, m := range ps.modules {
		if m.Halted {
			continue
		}

		m.CurrentCycleTime += dt
		if m.CurrentCycleTime < m.CycleTime {
			continue
		}

		for _, out := range m.OutputWares {
			ps.UpdateInventory(out.Ware, out.Amount)
		}
		m.CurrentCycleTime -= m.CycleTime

		ps.startNewProductionCycle(m)
	}
}

// restartHaltedModules is the post-inventory-update hook: a delivery may
// have satisfied the inputs of a starved module.
func (ps *ProductionStation) restartHaltedModules() {
	if ps.consuming {
		return
	}
	for _, m := range ps.modules {
		if m.Halted {
			ps.startNewProductionCycle(m)
		}
	}
}

// startNewProductionCycle consumes the module's inputs all-or-nothing.
// If any input is short, nothing is consumed and the module halts with
// its timer reset. The module is unhalted before consuming so the
// inventory-update hook does not re-enter it.
func (ps *ProductionStation) startNewProductionCycle(m *ProductionModule) {
	m.Halted = false
	for _, in := range m.InputWares {
		if ps.inventory[in.Ware] < in.Amount {
			m.Halted = true
			break
		}
	}

	if m.Halted {
		m.CurrentCycleTime = 0
		return
	}

	ps.consuming = true
	for _, in := range m.InputWares {
		ps.UpdateInventory(in.Ware, -in.Amount)
	}
	ps.consuming = false
}
