package station

import (
	"testing"

	"github.com/halvard-m/starlanes/server/internal/domain/wares"
)

func newMineModule() *ProductionModule {
	return &ProductionModule{
		OutputWares: []wares.Quantity{{Ware: wares.Silicon, Amount: 150}},
		CycleTime:   5,
	}
}

func newFabModule() *ProductionModule {
	return &ProductionModule{
		InputWares:  []wares.Quantity{{Ware: wares.Silicon, Amount: 100}},
		OutputWares: []wares.Quantity{{Ware: wares.SiliconWafers, Amount: 50}},
		CycleTime:   5,
	}
}

func TestInputlessModuleProducesImmediately(t *testing.T) {
	st := newTestStation(1)
	st.SetMaintenanceLevel(wares.Silicon, 0)
	st.AddProductionModule(newMineModule())

	st.Tick(5)
	if got := st.InventoryOf(wares.Silicon); got != 150 {
		t.Errorf("Expected 150 silicon after one cycle, got %d", got)
	}
	st.Tick(5)
	if got := st.InventoryOf(wares.Silicon); got != 300 {
		t.Errorf("Expected 300 silicon after two cycles, got %d", got)
	}
}

func TestCycleConsumesInputsAtomically(t *testing.T) {
	st := newTestStation(1)
	st.SetMaintenanceLevel(wares.Silicon, 0)
	st.SetMaintenanceLevel(wares.SiliconWafers, 0)
	st.UpdateInventory(wares.Silicon, 150)

	m := newFabModule()
	st.AddProductionModule(m)

	// The first cycle consumed 100 on start.
	if got := st.InventoryOf(wares.Silicon); got != 50 {
		t.Fatalf("Expected 50 silicon after cycle start, got %d", got)
	}

	st.Tick(5)
	if got := st.InventoryOf(wares.SiliconWafers); got != 50 {
		t.Errorf("Expected 50 wafers after cycle completion, got %d", got)
	}
	// Only 50 silicon remained: the next cycle must halt without
	// consuming anything.
	if !m.Halted {
		t.Errorf("Expected module halted with insufficient inputs")
	}
	if got := st.InventoryOf(wares.Silicon); got != 50 {
		t.Errorf("Expected remaining silicon untouched at 50, got %d", got)
	}
}

func TestHaltedModuleRestartsOnDelivery(t *testing.T) {
	st := newTestStation(1)
	st.SetMaintenanceLevel(wares.Silicon, 0)
	st.SetMaintenanceLevel(wares.SiliconWafers, 0)

	m := newFabModule()
	st.AddProductionModule(m)
	if !m.Halted {
		t.Fatalf("Expected module halted with empty stock")
	}

	// A delivery satisfies the inputs and restarts the cycle through
	// the inventory hook.
	st.UpdateInventory(wares.Silicon, 100)
	if m.Halted {
		t.Fatalf("Expected module running after delivery")
	}
	if got := st.InventoryOf(wares.Silicon); got != 0 {
		t.Errorf("Expected delivery consumed by the new cycle, got %d silicon", got)
	}

	st.Tick(5)
	if got := st.InventoryOf(wares.SiliconWafers); got != 50 {
		t.Errorf("Expected 50 wafers produced, got %d", got)
	}
}

func TestModulesSharingInputsStartSequentially(t *testing.T) {
	st := newTestStation(1)
	st.SetMaintenanceLevel(wares.Silicon, 0)
	st.SetMaintenanceLevel(wares.Ore, 0)
	st.SetMaintenanceLevel(wares.SiliconWafers, 0)

	twoInput := func() *ProductionModule {
		return &ProductionModule{
			InputWares:  []wares.Quantity{{Ware: wares.Silicon, Amount: 100}, {Ware: wares.Ore, Amount: 50}},
			OutputWares: []wares.Quantity{{Ware: wares.SiliconWafers, Amount: 50}},
			CycleTime:   5,
		}
	}
	a := twoInput()
	b := twoInput()
	st.AddProductionModule(a)
	st.AddProductionModule(b)

	// Silicon for two cycles, ore for one. The ore delivery funds module
	// a; module b must not spend the pool while a's debit is in flight.
	st.UpdateInventory(wares.Silicon, 200)
	st.UpdateInventory(wares.Ore, 50)

	if a.Halted {
		t.Errorf("Expected the first module running")
	}
	if !b.Halted {
		t.Errorf("Expected the second module halted on ore")
	}
	if got := st.InventoryOf(wares.Silicon); got != 100 {
		t.Errorf("Expected 100 silicon left after one cycle start, got %d", got)
	}
	if got := st.InventoryOf(wares.Ore); got != 0 {
		t.Errorf("Expected ore fully consumed by one cycle, got %d", got)
	}
}

func TestCycleTimerCarriesRemainder(t *testing.T) {
	st := newTestStation(1)
	st.SetMaintenanceLevel(wares.Silicon, 0)
	m := newMineModule()
	st.AddProductionModule(m)

	st.Tick(7)
	if got := st.InventoryOf(wares.Silicon); got != 150 {
		t.Fatalf("Expected one completed cycle, got %d silicon", got)
	}
	if m.CurrentCycleTime != 2 {
		t.Errorf("Expected 2s carried into the next cycle, got %.1f", m.CurrentCycleTime)
	}

	st.Tick(3)
	if got := st.InventoryOf(wares.Silicon); got != 300 {
		t.Errorf("Expected the carried remainder to complete the second cycle, got %d silicon", got)
	}
}

func TestHaltedModuleTimerResets(t *testing.T) {
	st := newTestStation(1)
	st.SetMaintenanceLevel(wares.Silicon, 0)
	st.SetMaintenanceLevel(wares.SiliconWafers, 0)
	st.UpdateInventory(wares.Silicon, 100)

	m := newFabModule()
	st.AddProductionModule(m)

	// Complete the only fundable cycle with time to spare; the next
	// cycle halts and must not bank the overshoot.
	st.Tick(9)
	if !m.Halted {
		t.Fatalf("Expected module halted after exhausting silicon")
	}
	if m.CurrentCycleTime != 0 {
		t.Errorf("Expected timer reset while halted, got %.1f", m.CurrentCycleTime)
	}
}
