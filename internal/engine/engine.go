// Package engine drives the simulation frame loop: station economy
// ticks, ship movement and order execution, trade discovery, combat
// resolution and the periodic market scan. The engine is single-owner:
// all entity mutation happens inside Step (or under Do), one goroutine
// at a time.
package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/halvard-m/starlanes/server/internal/config"
	"github.com/halvard-m/starlanes/server/internal/domain/ship"
	"github.com/halvard-m/starlanes/server/internal/domain/station"
	"github.com/halvard-m/starlanes/server/internal/events"
	"github.com/halvard-m/starlanes/server/internal/platform/logger"
	"github.com/halvard-m/starlanes/server/internal/platform/metrics"
)

// ShipConstructedPayload records a hull leaving the warf.
type ShipConstructedPayload struct {
	ShipID  int `json:"ship_id"`
	OwnerID int `json:"owner_id"`
	WarfID  int `json:"warf_id"`
}

// Engine owns the registry and the subsystem wiring.
type Engine struct {
	mu sync.Mutex

	registry *Registry
	eventLog *events.EventLog
	logger   *logger.Logger
	cfg      *config.Config

	trade  *TradeSystem
	combat *CombatSystem
	market *MarketSystem

	rng *rand.Rand

	simTime   float64
	sinceScan float64
}

// NewEngine wires the subsystems around a registry. The generator seeds
// per-ship generators and combat turn order, so a fixed seed replays
// the same run.
func NewEngine(cfg *config.Config, registry *Registry, eventLog *events.EventLog, log *logger.Logger, rng *rand.Rand) *Engine {
	e := &Engine{
		registry: registry,
		eventLog: eventLog,
		logger:   log,
		cfg:      cfg,
		rng:      rng,
	}
	e.trade = NewTradeSystem(registry, eventLog, log, cfg.TradeCooldownMax, &e.simTime)
	e.combat = NewCombatSystem(registry, eventLog, log, e.trade, cfg.CombatEngageRange, rng, &e.simTime)
	e.market = NewMarketSystem(registry, eventLog, log, cfg.MarketScanThreshold, cfg.Freighter, &e.simTime)
	return e
}

// Registry exposes the entity registry for setup and read models.
func (e *Engine) Registry() *Registry { return e.registry }

// Trade exposes the trade system (the scenario harness drives it directly).
func (e *Engine) Trade() *TradeSystem { return e.trade }

// Combat exposes the combat system.
func (e *Engine) Combat() *CombatSystem { return e.combat }

// Market exposes the market scan.
func (e *Engine) Market() *MarketSystem { return e.market }

// SimTime returns the accumulated simulation clock in seconds.
func (e *Engine) SimTime() float64 { return e.simTime }

// SetSimTime restores the clock, e.g. after recovering the last
// persisted tick on startup.
func (e *Engine) SetSimTime(t float64) { e.simTime = t }

// Do runs fn under the engine lock. HTTP read models use this to
// snapshot entities between frames.
func (e *Engine) Do(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn()
}

// Step advances the whole simulation by dt seconds of sim time.
//
// Order within a frame: stations first (offers, production, builds),
// then freshly built hulls are spawned, then ships (cooldown gate,
// combat or movement, arrival docking), then the market scan timer.
func (e *Engine) Step(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.simTime += dt

	for _, st := range e.registry.Stations() {
		st.Core().ReevaluateTradeOffers()
		st.Tick(dt)
	}

	for _, warf := range e.registry.Warfs() {
		for _, done := range warf.DrainCompleted() {
			e.spawnShip(warf, done)
		}
	}

	// Combat can remove ships mid-frame, so iterate a copy and skip
	// anything no longer registered.
	ships := make([]*ship.Ship, len(e.registry.Ships()))
	copy(ships, e.registry.Ships())
	for _, sh := range ships {
		if e.registry.ShipByID(sh.ID()) == nil {
			continue
		}

		if sh.SearchReady(dt) {
			e.trade.SearchForTrade(sh)
		}
		if e.registry.ShipByID(sh.ID()) == nil {
			continue
		}

		if sh.InterceptTargetID() != ship.NoStation {
			e.combat.Tick(sh, dt)
			continue
		}

		if stationID, arrived := sh.Tick(dt); arrived && stationID != ship.NoStation {
			e.trade.HandleArrival(sh, stationID)
		}
	}

	if e.cfg.MarketScanInterval > 0 {
		e.sinceScan += dt
		for e.sinceScan >= e.cfg.MarketScanInterval {
			e.sinceScan -= e.cfg.MarketScanInterval
			e.market.Scan()
		}
	}
}

// spawnShip turns a completed construction into a registered ship owned
// by the ordering station. The warf cannot do this itself: ids and
// ownership live here.
func (e *Engine) spawnShip(warf *station.WarfStation, done station.CompletedConstruction) {
	id := e.registry.NextID()
	shipRng := rand.New(rand.NewSource(e.rng.Int63()))
	sh := ship.New(id, warf.Position(), done.MaxSpeed, done.CargoCapacity, done.WeaponAttack, shipRng)

	owner := e.registry.StationByID(done.OwnerID)
	if owner != nil {
		owner.Core().AddShip(sh)
	} else {
		e.logger.Warn(fmt.Sprintf("warf %d: owner station %d gone, spawning unowned ship %d", warf.ID(), done.OwnerID, id))
	}
	e.registry.AddShip(sh)

	metrics.Get().RecordShipConstructed()
	e.logger.Event(string(events.EventTypeShipConstructed), fmt.Sprintf("STATION-%d", warf.ID()), fmt.Sprintf("ship %d for station %d", id, done.OwnerID))
	e.eventLog.Append(events.SimEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeShipConstructed,
		ActorID:   fmt.Sprintf("STATION-%d", warf.ID()),
		TargetID:  fmt.Sprintf("SHIP-%d", id),
		SimTime:   e.simTime,
		Payload: ShipConstructedPayload{
			ShipID:  id,
			OwnerID: done.OwnerID,
			WarfID:  warf.ID(),
		},
	})
}
