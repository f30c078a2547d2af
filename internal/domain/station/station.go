// Package station implements the station economy engine: inventory,
// maintenance targets, dynamically priced trade offers, reservation
// ledgers, docking, production and ship construction.
// This package is PURE and must NOT import any infrastructure packages.
//
// Error discipline follows the rest of the domain: violated invariants
// (negative inventory, undocking a ship that is not docked) panic,
// because they mean the caller broke the protocol. Violated domain rules
// (not enough stock to sell, no cargo space) return errors and the trade
// simply does not proceed.
package station

import (
	"fmt"
	"math"

	"github.com/halvard-m/starlanes/server/internal/domain/ship"
	"github.com/halvard-m/starlanes/server/internal/domain/vec"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
)

// Entity is the closed set of station kinds the registry owns. Both
// kinds share the economy core and differ in what Tick advances:
// production cycles or ship construction orders.
type Entity interface {
	Core() *Station
	Tick(dt float64)
}

// PricingParams tunes the offer price nudging.
type PricingParams struct {
	// MaxExpectedProduct scales the deficit/surplus before the power
	// law is applied.
	MaxExpectedProduct int
	// MaxPriceChangeFrac caps a single nudge at this fraction of the
	// ware's price range.
	MaxPriceChangeFrac float64
	// PriceCurveExponent is the power-law exponent.
	PriceCurveExponent float64
}

// WarnFunc receives configuration warnings (e.g. a stocked ware with no
// maintenance level). Injected so the domain stays free of logger imports.
type WarnFunc func(msg string)

// Station is the shared economy core embedded by both station kinds.
type Station struct {
	id       int
	name     string
	position vec.Vec2
	selected bool

	inventory   map[wares.Ware]int
	maintenance map[wares.Ware]int

	buyOffers  map[wares.Ware]wares.Offer
	sellOffers map[wares.Ware]wares.Offer

	// Virtual ledgers of committed-but-untransferred quantities.
	buyReservations  map[wares.Ware]int
	sellReservations map[wares.Ware]int

	pricing PricingParams

	dockCapacity int
	docked       []*ship.Ship
	dockQueue    []*ship.Ship

	ownedShips []int

	warn        WarnFunc
	warnedWares map[wares.Ware]bool

	// postUpdate is the kind-specific hook run after every inventory
	// mutation, before offers are re-evaluated. Production stations
	// reattempt halted cycles here; warf stations reattempt halted
	// construction orders.
	postUpdate func()
}

func newStation(id int, name string, position vec.Vec2, pricing PricingParams, dockCapacity int) *Station {
	return &Station{
		id:               id,
		name:             name,
		position:         position,
		inventory:        make(map[wares.Ware]int),
		maintenance:      make(map[wares.Ware]int),
		buyOffers:        make(map[wares.Ware]wares.Offer),
		sellOffers:       make(map[wares.Ware]wares.Offer),
		buyReservations:  make(map[wares.Ware]int),
		sellReservations: make(map[wares.Ware]int),
		pricing:          pricing,
		dockCapacity:     dockCapacity,
		warnedWares:      make(map[wares.Ware]bool),
	}
}

func (st *Station) ID() int            { return st.id }
func (st *Station) Name() string       { return st.name }
func (st *Station) Position() vec.Vec2 { return st.position }
func (st *Station) Selected() bool     { return st.selected }

// SetSelected marks the station for the UI collaborator.
func (st *Station) SetSelected(selected bool) {
	st.selected = selected
}

// SetWarnFunc installs the configuration-warning sink.
func (st *Station) SetWarnFunc(warn WarnFunc) {
	st.warn = warn
}

// InventoryOf returns the physical stock of one ware.
func (st *Station) InventoryOf(w wares.Ware) int {
	return st.inventory[w]
}

// BuyReservationOf returns the committed-to-receive quantity of one ware.
func (st *Station) BuyReservationOf(w wares.Ware) int {
	return st.buyReservations[w]
}

// SellReservationOf returns the committed-to-give quantity of one ware.
func (st *Station) SellReservationOf(w wares.Ware) int {
	return st.sellReservations[w]
}

// BuyOffers returns the live buy offer map. Treat as read-only.
func (st *Station) BuyOffers() map[wares.Ware]wares.Offer {
	return st.buyOffers
}

// SellOffers returns the live sell offer map. Treat as read-only.
func (st *Station) SellOffers() map[wares.Ware]wares.Offer {
	return st.sellOffers
}

// SetMaintenanceLevel sets the target stock the station tries to hold
// for one ware. Configured once at setup; wares stocked without a level
// are excluded from offer generation.
func (st *Station) SetMaintenanceLevel(w wares.Ware, level int) {
	if _, ok := st.inventory[w]; !ok {
		st.inventory[w] = 0
	}
	st.maintenance[w] = level
}

// UpdateInventory applies a signed delta to the physical stock. Going
// negative is an invariant violation and panics. Afterwards the
// kind-specific hook gets a chance to restart halted cycles, and offers
// are re-evaluated against the new level.
func (st *Station) UpdateInventory(w wares.Ware, delta int) {
	next := st.inventory[w] + delta
	if next < 0 {
		panic(fmt.Sprintf("station %d (%s): inventory of %s would go negative (%d%+d)", st.id, st.name, w, st.inventory[w], delta))
	}
	st.inventory[w] = next

	if st.postUpdate != nil {
		st.postUpdate()
	}
	st.ReevaluateTradeOffers()
}

// AcceptTrade commits the station to one side of a trade. The type is
// the station's side: accepting a Sell means this station gives up
// goods, so the committed stock is debited immediately and can no
// longer be double-promised. Accepting a Buy only records the incoming
// reservation; physical stock changes at transfer time.
func (st *Station) AcceptTrade(t wares.TradeType, w wares.Ware, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("station %d: accept %s of %s: quantity must be positive, got %d", st.id, t, w, quantity)
	}

	switch t {
	case wares.Sell:
		if st.inventory[w] < quantity {
			return fmt.Errorf("station %d: cannot commit to sell %d %s, only %d in stock", st.id, quantity, w, st.inventory[w])
		}
		st.sellReservations[w] += quantity
		st.UpdateInventory(w, -quantity)
	case wares.Buy:
		st.buyReservations[w] += quantity
		st.ReevaluateTradeOffers()
	default:
		panic("unknown trade type: " + t)
	}
	return nil
}

// TransferWares settles a committed trade with a docked ship. A positive
// quantity loads the ship from this station (the physical debit already
// happened at acceptance, so only the sell reservation is released); a
// negative quantity unloads the ship into the station, releasing the buy
// reservation and crediting stock. Each reservation is settled exactly once.
func (st *Station) TransferWares(sh *ship.Ship, w wares.Ware, quantity int) error {
	switch {
	case quantity > 0:
		if st.sellReservations[w] < quantity {
			return fmt.Errorf("station %d: transfer of %d %s exceeds sell reservation %d", st.id, quantity, w, st.sellReservations[w])
		}
		if sh.CargoSpace() < quantity {
			return fmt.Errorf("station %d: ship %d has %d cargo space, needs %d", st.id, sh.ID(), sh.CargoSpace(), quantity)
		}
		st.sellReservations[w] -= quantity
		sh.AddCargo(w, quantity)
		st.ReevaluateTradeOffers()

	case quantity < 0:
		incoming := -quantity
		if st.buyReservations[w] < incoming {
			return fmt.Errorf("station %d: transfer of %d %s exceeds buy reservation %d", st.id, incoming, w, st.buyReservations[w])
		}
		if sh.CargoOf(w) < incoming {
			return fmt.Errorf("station %d: ship %d carries %d %s, cannot unload %d", st.id, sh.ID(), sh.CargoOf(w), w, incoming)
		}
		st.buyReservations[w] -= incoming
		sh.AddCargo(w, quantity)
		st.UpdateInventory(w, incoming)

	default:
		return fmt.Errorf("station %d: zero-quantity transfer of %s", st.id, w)
	}
	return nil
}

// ReleaseReservation gives back a committed quantity that will never be
// settled, e.g. when the ship carrying the commitment was destroyed.
// Releasing a sell reservation also returns the stock that was debited
// at acceptance time.
func (st *Station) ReleaseReservation(t wares.TradeType, w wares.Ware, quantity int) {
	switch t {
	case wares.Sell:
		if quantity > st.sellReservations[w] {
			quantity = st.sellReservations[w]
		}
		if quantity <= 0 {
			return
		}
		st.sellReservations[w] -= quantity
		st.UpdateInventory(w, quantity)
	case wares.Buy:
		if quantity > st.buyReservations[w] {
			quantity = st.buyReservations[w]
		}
		if quantity <= 0 {
			return
		}
		st.buyReservations[w] -= quantity
		st.ReevaluateTradeOffers()
	}
}

// ReevaluateTradeOffers recomputes the station's offer per stocked ware.
// The effective level counts physical stock plus incoming reservations;
// sell-side commitments were already debited from stock at acceptance
// and must not be counted twice. A surplus over the maintenance level
// makes the station a seller, a deficit a buyer.
func (st *Station) ReevaluateTradeOffers() {
	for w, level := range st.inventory {
		target, ok := st.maintenance[w]
		if !ok {
			if st.warn != nil && !st.warnedWares[w] {
				st.warnedWares[w] = true
				st.warn(fmt.Sprintf("station %d (%s): no maintenance level for stocked ware %s, excluded from offers", st.id, st.name, w))
			}
			continue
		}

		diff := level + st.buyReservations[w] - target
		if diff >= 0 {
			st.updateTradeOffer(wares.Sell, w, diff)
		} else {
			st.updateTradeOffer(wares.Buy, w, -diff)
		}
	}
}

// updateTradeOffer publishes one offer, nudging the price so the market
// can clear: a persisting surplus walks the ask down from the previous
// sell price (starting at the ware's maximum), a persisting deficit
// walks the bid up from the previous buy price (starting at the
// minimum). The nudge is a power law of the imbalance, capped at a
// fraction of the ware's price range, and the result is always clamped
// into [min, max].
//
// Setting one offer type erases the other. A zero quantity keeps the
// existing offer type and price and only zeroes the quantity, so the
// price anchor survives for the next nudge.
func (st *Station) updateTradeOffer(t wares.TradeType, w wares.Ware, quantity int) {
	det, ok := wares.Get(w)
	if !ok {
		panic("unknown ware: " + w)
	}

	if quantity == 0 {
		if offer, ok := st.buyOffers[w]; ok {
			offer.Quantity = 0
			st.buyOffers[w] = offer
			return
		}
		if offer, ok := st.sellOffers[w]; ok {
			offer.Quantity = 0
			st.sellOffers[w] = offer
			return
		}
	}

	step := st.priceStep(quantity, det)

	if t == wares.Sell {
		price := det.MaxPrice
		if prev, ok := st.sellOffers[w]; ok {
			price = prev.Price
		}
		price = clampPrice(price-step, det)
		st.sellOffers[w] = wares.Offer{Price: price, Quantity: quantity}
		delete(st.buyOffers, w)
		return
	}

	price := det.MinPrice
	if prev, ok := st.buyOffers[w]; ok {
		price = prev.Price
	}
	price = clampPrice(price+step, det)
	st.buyOffers[w] = wares.Offer{Price: price, Quantity: quantity}
	delete(st.sellOffers, w)
}

func (st *Station) priceStep(quantity int, det wares.Details) float64 {
	if quantity <= 0 || st.pricing.MaxExpectedProduct <= 0 {
		return 0
	}
	frac := math.Pow(float64(quantity)/float64(st.pricing.MaxExpectedProduct), st.pricing.PriceCurveExponent) * st.pricing.MaxPriceChangeFrac
	if frac > st.pricing.MaxPriceChangeFrac {
		frac = st.pricing.MaxPriceChangeFrac
	}
	return frac * (det.MaxPrice - det.MinPrice)
}

func clampPrice(price float64, det wares.Details) float64 {
	if price < det.MinPrice {
		return det.MinPrice
	}
	if price > det.MaxPrice {
		return det.MaxPrice
	}
	return price
}

// --- Fleet ---

// AddShip claims a ship for this station's fleet.
func (st *Station) AddShip(sh *ship.Ship) {
	sh.Claim(st.id)
	st.ownedShips = append(st.ownedShips, sh.ID())
}

// RemoveShip drops a ship from the fleet roster.
func (st *Station) RemoveShip(shipID int) error {
	for i, id := range st.ownedShips {
		if id == shipID {
			st.ownedShips = append(st.ownedShips[:i], st.ownedShips[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("station %d: ship %d not in fleet", st.id, shipID)
}

// OwnedShips returns the fleet roster (ship ids).
func (st *Station) OwnedShips() []int {
	return st.ownedShips
}

// Display is the read model for the UI collaborator.
type Display struct {
	ID         int                       `json:"id"`
	Name       string                    `json:"name"`
	Position   vec.Vec2                  `json:"position"`
	Inventory  map[wares.Ware]int        `json:"inventory"`
	BuyOffers  map[wares.Ware]wares.Offer `json:"buy_offers"`
	SellOffers map[wares.Ware]wares.Offer `json:"sell_offers"`
}

// BuildDisplay snapshots inventory and offers for rendering.
func (st *Station) BuildDisplay() Display {
	d := Display{
		ID:         st.id,
		Name:       st.name,
		Position:   st.position,
		Inventory:  make(map[wares.Ware]int, len(st.inventory)),
		BuyOffers:  make(map[wares.Ware]wares.Offer, len(st.buyOffers)),
		SellOffers: make(map[wares.Ware]wares.Offer, len(st.sellOffers)),
	}
	for w, q := range st.inventory {
		d.Inventory[w] = q
	}
	for w, o := range st.buyOffers {
		d.BuyOffers[w] = o
	}
	for w, o := range st.sellOffers {
		d.SellOffers[w] = o
	}
	return d
}
