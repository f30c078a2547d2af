// Package test holds end-to-end scenario harnesses that exercise the
// whole engine outside the unit test suite. The silicon run is the
// canonical smoke scenario: one mine, one fab, one freighter, and the
// expectation that silicon physically arrives at the fab.
package test

import (
	"fmt"
	"math/rand"

	"github.com/halvard-m/starlanes/server/internal/config"
	"github.com/halvard-m/starlanes/server/internal/domain/station"
	"github.com/halvard-m/starlanes/server/internal/domain/vec"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
	"github.com/halvard-m/starlanes/server/internal/engine"
	"github.com/halvard-m/starlanes/server/internal/events"
	"github.com/halvard-m/starlanes/server/internal/platform/logger"
	"github.com/halvard-m/starlanes/server/internal/sim"
)

// TestResult captures the outcome of one scenario check.
type TestResult struct {
	ScenarioName string
	Check        string
	Passed       bool
	Detail       string
}

// SiliconRunTest drives a minimal two-station economy until a freighter
// completes a full silicon round trip.
type SiliconRunTest struct {
	eventLog *events.EventLog
	engine   *engine.Engine
	logger   *logger.Logger
	results  []TestResult

	mineID int
	fabID  int
	shipID int
}

// NewSiliconRunTest builds the scenario world with a fixed seed.
func NewSiliconRunTest() *SiliconRunTest {
	log := logger.NewLogger()
	el := events.NewEventLog(nil)

	cfg := config.Default()
	cfg.World.SiliconStations = 0
	cfg.World.WaferStations = 0
	// Short cooldown so the freighter retries quickly while prices
	// converge; huge threshold so the market scan stays out of the way.
	cfg.TradeCooldownMax = 2
	cfg.MarketScanThreshold = 1 << 30

	rng := rand.New(rand.NewSource(42))
	reg := engine.NewRegistry()
	eng := engine.NewEngine(cfg, reg, el, log, rng)

	pricing := stationPricing(cfg)
	warn := log.Warn

	t := &SiliconRunTest{eventLog: el, engine: eng, logger: log}

	t.mineID = reg.NextID()
	mine := sim.NewSiliconMine(t.mineID, "Test Mine", vec.Vec2{X: 0, Y: 0}, pricing, cfg.DockCapacity, warn)
	// Pre-stock the mine so a sellable surplus exists from frame one.
	mine.UpdateInventory(wares.Silicon, 600)
	reg.AddStation(mine)

	t.fabID = reg.NextID()
	fab := sim.NewWaferFab(t.fabID, "Test Fab", vec.Vec2{X: 1000, Y: 0}, pricing, cfg.DockCapacity, warn)
	reg.AddStation(fab)

	freighter := sim.NewFreighter(reg.NextID(), vec.Vec2{X: 1000, Y: 0}, cfg.Freighter, rng)
	t.shipID = freighter.ID()
	fab.AddShip(freighter)
	reg.AddShip(freighter)

	return t
}

func stationPricing(cfg *config.Config) station.PricingParams {
	return station.PricingParams{
		MaxExpectedProduct: cfg.Economy.MaxExpectedProduct,
		MaxPriceChangeFrac: cfg.Economy.MaxPriceChangeFrac,
		PriceCurveExponent: cfg.Economy.PriceCurveExponent,
	}
}

// Run steps the engine until silicon lands at the fab or the step limit
// is exhausted, then records the checks.
func (t *SiliconRunTest) Run() {
	const (
		dt       = 0.1
		maxSteps = 5000
	)

	reg := t.engine.Registry()
	fab := reg.StationByID(t.fabID).Core()
	mine := reg.StationByID(t.mineID).Core()
	startFabSilicon := fab.InventoryOf(wares.Silicon)

	delivered := false
	steps := 0
	for ; steps < maxSteps; steps++ {
		t.engine.Step(dt)
		if fab.InventoryOf(wares.Silicon) > startFabSilicon {
			delivered = true
			break
		}
	}

	t.record("seller offer forms", len(mine.SellOffers()) > 0,
		fmt.Sprintf("mine sell offers: %v", mine.SellOffers()))
	t.record("buyer offer forms", len(fab.BuyOffers()) > 0,
		fmt.Sprintf("fab buy offers: %v", fab.BuyOffers()))

	trades := t.eventLog.GetByType(events.EventTypeTradeAccepted)
	t.record("trade matched", len(trades) > 0,
		fmt.Sprintf("%d TRADE_ACCEPTED events", len(trades)))

	transfers := t.eventLog.GetByType(events.EventTypeWaresTransferred)
	t.record("both legs transferred", len(transfers) >= 2,
		fmt.Sprintf("%d WARES_TRANSFERRED events", len(transfers)))

	t.record("silicon delivered to fab", delivered,
		fmt.Sprintf("fab silicon %d after %d steps (%.1fs sim)", fab.InventoryOf(wares.Silicon), steps, float64(steps)*dt))

	t.record("mine sell reservation settled", mine.SellReservationOf(wares.Silicon) == 0,
		fmt.Sprintf("residual sell reservation: %d", mine.SellReservationOf(wares.Silicon)))
	t.record("fab buy reservation settled", fab.BuyReservationOf(wares.Silicon) == 0,
		fmt.Sprintf("residual buy reservation: %d", fab.BuyReservationOf(wares.Silicon)))
}

func (t *SiliconRunTest) record(check string, passed bool, detail string) {
	t.results = append(t.results, TestResult{
		ScenarioName: "Silicon Run",
		Check:        check,
		Passed:       passed,
		Detail:       detail,
	})
	status := "PASS"
	if !passed {
		status = "FAIL"
	}
	t.logger.Info(fmt.Sprintf("SCENARIO [%s] %s: %s", status, check, detail))
}

// GetResults returns all scenario check results.
func (t *SiliconRunTest) GetResults() []TestResult {
	return t.results
}
