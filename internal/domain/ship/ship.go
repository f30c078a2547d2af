// Package ship defines the ship entity and its order queue.
// This package is PURE and must NOT import any infrastructure packages.
//
// A ship never owns the stations it deals with: the owner, the docked
// station and order targets are all plain ids, resolved through the
// entity registry by whoever drives the ship. That keeps the
// ship<->station<->registry graph free of reference cycles.
package ship

import (
	"fmt"
	"math/rand"

	"github.com/halvard-m/starlanes/server/internal/domain/vec"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
)

// NoStation marks an unset station reference.
const NoStation = -1

// Ship is a freighter (or armed freighter) in the simulation.
type Ship struct {
	id int

	position vec.Vec2
	heading  float64
	velocity vec.Vec2

	maxSpeed      float64
	cargoCapacity int
	weaponAttack  float64
	hull          float64

	cargo map[wares.Ware]int

	ownerID  int // station that owns this ship; reassignable, never owned by the ship
	dockedAt int // station currently docked at, NoStation when free-flying

	target        *vec.Vec2
	targetStation int // station intent attached to the current target, NoStation for bare moves

	orders []Order

	interceptTarget int // ship id being pursued, NoStation when not in combat

	searchCooldown float64
	rng            *rand.Rand
}

// New creates a ship at the given position. The generator is the ship's
// private source of randomness (cooldown jitter, trade tie-breaking) so
// simulations stay reproducible under a fixed seed.
func New(id int, position vec.Vec2, maxSpeed float64, cargoCapacity int, weaponAttack float64, rng *rand.Rand) *Ship {
	return &Ship{
		id:              id,
		position:        position,
		maxSpeed:        maxSpeed,
		cargoCapacity:   cargoCapacity,
		weaponAttack:    weaponAttack,
		hull:            100,
		cargo:           make(map[wares.Ware]int),
		ownerID:         NoStation,
		dockedAt:        NoStation,
		targetStation:   NoStation,
		interceptTarget: NoStation,
		rng:             rng,
	}
}

func (s *Ship) ID() int                { return s.id }
func (s *Ship) Position() vec.Vec2     { return s.position }
func (s *Ship) Heading() float64       { return s.heading }
func (s *Ship) Velocity() vec.Vec2     { return s.velocity }
func (s *Ship) MaxSpeed() float64      { return s.maxSpeed }
func (s *Ship) Hull() float64          { return s.hull }
func (s *Ship) WeaponAttack() float64  { return s.weaponAttack }
func (s *Ship) OwnerID() int           { return s.ownerID }
func (s *Ship) DockedAt() int          { return s.dockedAt }
func (s *Ship) IsDocked() bool         { return s.dockedAt != NoStation }
func (s *Ship) CargoCapacity() int     { return s.cargoCapacity }
func (s *Ship) InterceptTargetID() int { return s.interceptTarget }

// Claim reassigns the ship to a new owning station.
func (s *Ship) Claim(stationID int) {
	s.ownerID = stationID
}

// --- Cargo ---

// CargoOf returns the carried quantity of one ware.
func (s *Ship) CargoOf(w wares.Ware) int {
	return s.cargo[w]
}

// CargoUsed returns the total units currently loaded.
func (s *Ship) CargoUsed() int {
	used := 0
	for _, q := range s.cargo {
		used += q
	}
	return used
}

// CargoSpace returns the remaining free capacity.
func (s *Ship) CargoSpace() int {
	return s.cargoCapacity - s.CargoUsed()
}

// AddCargo applies a signed quantity to the cargo hold. A result that
// would go negative or exceed capacity is a programming error: callers
// must have validated the transfer against the reservation ledger first.
func (s *Ship) AddCargo(w wares.Ware, quantity int) {
	next := s.cargo[w] + quantity
	if next < 0 {
		panic(fmt.Sprintf("ship %d: cargo of %s would go negative (%d%+d)", s.id, w, s.cargo[w], quantity))
	}
	if s.CargoUsed()+quantity > s.cargoCapacity {
		panic(fmt.Sprintf("ship %d: cargo overflow (%d used, %+d incoming, %d capacity)", s.id, s.CargoUsed(), quantity, s.cargoCapacity))
	}
	s.cargo[w] = next
}

// CargoSnapshot returns a copy of the cargo manifest for read-only consumers.
func (s *Ship) CargoSnapshot() map[wares.Ware]int {
	out := make(map[wares.Ware]int, len(s.cargo))
	for w, q := range s.cargo {
		out[w] = q
	}
	return out
}

// --- Order queue ---

// EnqueueOrder appends an order to the queue. Execution is strictly FIFO.
func (s *Ship) EnqueueOrder(o Order) {
	s.orders = append(s.orders, o)
}

// PopOrder removes and returns the queue head.
func (s *Ship) PopOrder() (Order, bool) {
	if len(s.orders) == 0 {
		return nil, false
	}
	o := s.orders[0]
	s.orders = s.orders[1:]
	return o, true
}

// PendingOrders returns the remaining queue. The combat system walks
// this on destruction to release reservations the ship can no longer settle.
func (s *Ship) PendingOrders() []Order {
	return s.orders
}

func (s *Ship) HasOrders() bool {
	return len(s.orders) > 0
}

// --- Trade search cooldown ---

// SearchReady advances the per-ship cooldown and reports whether a trade
// search may run this frame. The queue must also be empty; both gates
// live here so the engine loop stays a one-liner.
func (s *Ship) SearchReady(dt float64) bool {
	s.searchCooldown -= dt
	if s.searchCooldown > 0 {
		return false
	}
	return len(s.orders) == 0
}

// ResetSearchCooldown re-arms the cooldown with jitter in [0, max).
// Called on every search invocation regardless of outcome.
func (s *Ship) ResetSearchCooldown(max float64) {
	s.searchCooldown = s.rng.Float64() * max
}

// RNG exposes the ship's private generator for trade tie-breaking.
func (s *Ship) RNG() *rand.Rand {
	return s.rng
}

// --- Movement ---

// SetTargetPosition sets a bare movement target.
func (s *Ship) SetTargetPosition(target vec.Vec2) {
	t := target
	s.target = &t
	s.targetStation = NoStation
}

// SetTargetStation sets a movement target with docking intent.
func (s *Ship) SetTargetStation(stationID int, position vec.Vec2) {
	t := position
	s.target = &t
	s.targetStation = stationID
}

func (s *Ship) HasTarget() bool {
	return s.target != nil
}

// SetDocked records the station the ship is docked at. Only stations
// call this, from their docking bookkeeping.
func (s *Ship) SetDocked(stationID int) {
	s.dockedAt = stationID
}

// ClearDocked releases the docked reference.
func (s *Ship) ClearDocked() {
	s.dockedAt = NoStation
}

// SetInterceptTarget aims the ship at another ship. NoStation clears it.
func (s *Ship) SetInterceptTarget(shipID int) {
	s.interceptTarget = shipID
}

// Tick advances movement by dt at constant max speed toward the current
// target. Arrival detection is a one-step lookahead: once the squared
// remaining distance drops below (maxSpeed*dt)^2 the ship snaps to the
// target. At very low frame rates that overshoots slightly, which is an
// accepted approximation.
//
// The returned station id is the docking intent of a target reached this
// tick, or NoStation. The caller resolves it through the registry and
// requests the dock; a granted slot synchronously resumes the order queue.
func (s *Ship) Tick(dt float64) (arrivedStation int, arrived bool) {
	if s.dockedAt != NoStation {
		s.velocity = vec.Vec2{}
		return NoStation, false
	}
	if s.target == nil {
		s.velocity = vec.Vec2{}
		return NoStation, false
	}

	step := s.maxSpeed * dt
	delta := s.target.Sub(s.position)
	if delta.Len2() < step*step {
		s.position = *s.target
		s.target = nil
		s.velocity = vec.Vec2{}

		intent := s.targetStation
		s.targetStation = NoStation
		return intent, true
	}

	s.heading = s.position.Angle(*s.target)
	dir := delta.Scale(1 / delta.Len())
	s.velocity = dir.Scale(s.maxSpeed)
	s.position = s.position.Add(s.velocity.Scale(dt))
	return NoStation, false
}

// ApplyDamage reduces hull health and reports whether the ship was destroyed.
func (s *Ship) ApplyDamage(amount float64) bool {
	s.hull -= amount
	return s.hull <= 0
}
