package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/halvard-m/starlanes/server/internal/domain/ship"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
	"github.com/halvard-m/starlanes/server/internal/events"
	"github.com/halvard-m/starlanes/server/internal/platform/logger"
	"github.com/halvard-m/starlanes/server/internal/platform/metrics"
)

// ShipDestroyedPayload records a combat loss.
type ShipDestroyedPayload struct {
	ShipID     int `json:"ship_id"`
	AttackerID int `json:"attacker_id"`
}

// CombatSystem moves interceptors toward their targets and resolves
// engagements once in range. Engagements are instantaneous exchanges of
// alternating hits; the movement chase is what takes sim time.
type CombatSystem struct {
	registry    *Registry
	eventLog    *events.EventLog
	logger      *logger.Logger
	trade       *TradeSystem
	engageRange float64
	rng         *rand.Rand
	simTime     *float64
}

// NewCombatSystem wires the combat system. The generator decides who
// shoots first in an engagement.
func NewCombatSystem(registry *Registry, eventLog *events.EventLog, log *logger.Logger, trade *TradeSystem, engageRange float64, rng *rand.Rand, simTime *float64) *CombatSystem {
	return &CombatSystem{
		registry:    registry,
		eventLog:    eventLog,
		logger:      log,
		trade:       trade,
		engageRange: engageRange,
		rng:         rng,
		simTime:     simTime,
	}
}

// Intercept aims one ship at another. The chase runs in Tick until the
// target is destroyed or disappears.
func (cs *CombatSystem) Intercept(attacker *ship.Ship, targetID int) {
	attacker.SetInterceptTarget(targetID)
}

// Tick advances one interceptor by dt. Out of range it pursues a lead
// prediction of the target; in range the engagement resolves at once.
func (cs *CombatSystem) Tick(attacker *ship.Ship, dt float64) {
	target := cs.registry.ShipByID(attacker.InterceptTargetID())
	if target == nil {
		attacker.SetInterceptTarget(ship.NoStation)
		return
	}

	if attacker.Position().Dist2(target.Position()) <= cs.engageRange*cs.engageRange {
		cs.resolveEngagement(attacker, target)
		return
	}

	// Fixed-point lead prediction: aim where the target will be after
	// the flight time to the aim point. A few iterations converge well
	// below the engage range for any realistic speed ratio.
	aim := target.Position()
	if attacker.MaxSpeed() > 0 {
		for i := 0; i < 4; i++ {
			t := math.Sqrt(attacker.Position().Dist2(aim)) / attacker.MaxSpeed()
			aim = target.Position().Add(target.Velocity().Scale(t))
		}
	}
	attacker.SetTargetPosition(aim)
	attacker.Tick(dt)
}

// resolveEngagement exchanges alternating hits until one side's hull
// gives out. Turn order is a coin flip.
func (cs *CombatSystem) resolveEngagement(attacker, target *ship.Ship) {
	if attacker.WeaponAttack() <= 0 && target.WeaponAttack() <= 0 {
		cs.logger.Warn(fmt.Sprintf("ships %d and %d are both unarmed, disengaging", attacker.ID(), target.ID()))
		attacker.SetInterceptTarget(ship.NoStation)
		return
	}

	a, b := attacker, target
	if cs.rng.Intn(2) == 1 {
		a, b = b, a
	}

	for {
		if b.ApplyDamage(a.WeaponAttack()) {
			cs.destroy(b, a.ID())
			break
		}
		a, b = b, a
	}
	attacker.SetInterceptTarget(ship.NoStation)
}

// destroy removes a ship from the world and unwinds everything it was
// committed to: reservations it would have settled at either trade leg,
// its dock slot, and its fleet membership.
func (cs *CombatSystem) destroy(sh *ship.Ship, attackerID int) {
	for _, order := range sh.PendingOrders() {
		trade, ok := order.(ship.TradeWithStation)
		if !ok {
			continue
		}
		ent := cs.registry.StationByID(trade.StationID)
		if ent == nil {
			continue
		}
		st := ent.Core()
		// The ship's Buy order was the station's Sell commitment and
		// vice versa.
		if trade.Type == wares.Buy {
			st.ReleaseReservation(wares.Sell, trade.Ware, trade.Quantity)
		} else {
			st.ReleaseReservation(wares.Buy, trade.Ware, trade.Quantity)
		}
	}

	// Loaded cargo the ship was hauling for a pending Sell leg is lost
	// with the hull; only unsettled reservations are given back.

	if sh.IsDocked() {
		if ent := cs.registry.StationByID(sh.DockedAt()); ent != nil {
			st := ent.Core()
			admitted := st.Undock(sh)
			if admitted != nil {
				cs.trade.emitDockEvent(events.EventTypeShipDocked, admitted, st.ID())
				cs.trade.RunOrders(admitted)
			}
		}
	} else {
		// A ship waiting in an overflow queue holds no slot, but the
		// next undock would admit the dead hull.
		for _, ent := range cs.registry.Stations() {
			if ent.Core().RemoveFromDockQueue(sh.ID()) {
				break
			}
		}
	}

	if owner := cs.registry.StationByID(sh.OwnerID()); owner != nil {
		if err := owner.Core().RemoveShip(sh.ID()); err != nil {
			cs.logger.Warn(err.Error())
		}
	}
	if err := cs.registry.RemoveShip(sh.ID()); err != nil {
		cs.logger.Warn(err.Error())
	}

	metrics.Get().RecordShipDestroyed()
	cs.logger.Event(string(events.EventTypeShipDestroyed), fmt.Sprintf("SHIP-%d", attackerID), fmt.Sprintf("destroyed ship %d", sh.ID()))
	cs.eventLog.Append(events.SimEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeShipDestroyed,
		ActorID:   fmt.Sprintf("SHIP-%d", attackerID),
		TargetID:  fmt.Sprintf("SHIP-%d", sh.ID()),
		SimTime:   *cs.simTime,
		Payload: ShipDestroyedPayload{
			ShipID:     sh.ID(),
			AttackerID: attackerID,
		},
	})
}
