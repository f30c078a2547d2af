package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/halvard-m/starlanes/server/internal/domain/ship"
	"github.com/halvard-m/starlanes/server/internal/domain/station"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
	"github.com/halvard-m/starlanes/server/internal/events"
	"github.com/halvard-m/starlanes/server/internal/platform/logger"
	"github.com/halvard-m/starlanes/server/internal/platform/metrics"
)

// TradeAcceptedPayload records a matched trade pair.
type TradeAcceptedPayload struct {
	ShipID    int        `json:"ship_id"`
	SellerID  int        `json:"seller_id"`
	BuyerID   int        `json:"buyer_id"`
	Ware      wares.Ware `json:"ware"`
	Quantity  int        `json:"quantity"`
	SellPrice float64    `json:"sell_price"`
	BuyPrice  float64    `json:"buy_price"`
}

// WaresTransferredPayload records a physical transfer at a dock.
type WaresTransferredPayload struct {
	ShipID    int        `json:"ship_id"`
	StationID int        `json:"station_id"`
	Ware      wares.Ware `json:"ware"`
	// Quantity is signed: positive loads the ship, negative unloads it.
	Quantity int `json:"quantity"`
}

// TradeSystem runs the trade-discovery heuristic and the ship order
// queues. It is the only place orders are executed, so the
// dock -> trade -> undock chains stay synchronous within one frame.
type TradeSystem struct {
	registry    *Registry
	eventLog    *events.EventLog
	logger      *logger.Logger
	cooldownMax float64
	simTime     *float64
}

// NewTradeSystem wires the trade system. simTime points at the engine's
// clock so emitted events carry it.
func NewTradeSystem(registry *Registry, eventLog *events.EventLog, log *logger.Logger, cooldownMax float64, simTime *float64) *TradeSystem {
	return &TradeSystem{
		registry:    registry,
		eventLog:    eventLog,
		logger:      log,
		cooldownMax: cooldownMax,
		simTime:     simTime,
	}
}

// tradePick is one compatible (type, ware) pair at a candidate station.
// Type is from the owner's perspective: Sell means the owner disposes of
// the ware (ship loads at the owner first), Buy means the owner acquires
// it (ship loads at the candidate first).
type tradePick struct {
	t    wares.TradeType
	ware wares.Ware
}

// SearchForTrade looks for one profitable trade for an idle ship. The
// cooldown is re-armed on every invocation, match or not. Candidates are
// every station except the owner, nearest first; the first station with
// any compatible pair wins, and one pair is picked uniformly at random
// among that station's pairs.
func (ts *TradeSystem) SearchForTrade(sh *ship.Ship) {
	sh.ResetSearchCooldown(ts.cooldownMax)

	ownerEnt := ts.registry.StationByID(sh.OwnerID())
	if ownerEnt == nil {
		return
	}
	owner := ownerEnt.Core()

	candidates := make([]station.Entity, 0, len(ts.registry.Stations()))
	for _, st := range ts.registry.Stations() {
		if st.Core().ID() == owner.ID() {
			continue
		}
		candidates = append(candidates, st)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		di := sh.Position().Dist2(candidates[i].Core().Position())
		dj := sh.Position().Dist2(candidates[j].Core().Position())
		return di < dj
	})

	ownerBuy := owner.BuyOffers()
	ownerSell := owner.SellOffers()

	for _, ent := range candidates {
		cand := ent.Core()
		candBuy := cand.BuyOffers()
		candSell := cand.SellOffers()

		var picks []tradePick

		for w, offer := range ownerBuy {
			candOffer, ok := candSell[w]
			if !ok || offer.Quantity == 0 || candOffer.Quantity == 0 {
				continue
			}
			if candOffer.Price > offer.Price {
				continue
			}
			picks = append(picks, tradePick{t: wares.Buy, ware: w})
		}

		for w, offer := range ownerSell {
			candOffer, ok := candBuy[w]
			if !ok || offer.Quantity == 0 || candOffer.Quantity == 0 {
				continue
			}
			if candOffer.Price < offer.Price {
				continue
			}
			picks = append(picks, tradePick{t: wares.Sell, ware: w})
		}

		if len(picks) == 0 {
			continue
		}

		// Map iteration above makes the pick order arbitrary; sort
		// before drawing so a fixed seed replays the same choice.
		sort.Slice(picks, func(i, j int) bool {
			if picks[i].ware != picks[j].ware {
				return picks[i].ware < picks[j].ware
			}
			return picks[i].t < picks[j].t
		})
		pick := picks[sh.RNG().Intn(len(picks))]

		if ts.commitTrade(sh, owner, cand, pick) {
			ts.RunOrders(sh)
		}
		return
	}
}

// commitTrade reserves both legs eagerly and enqueues the six-order
// round trip. Reservations exist from this moment, long before the ship
// arrives anywhere.
func (ts *TradeSystem) commitTrade(sh *ship.Ship, owner, cand *station.Station, pick tradePick) bool {
	w := pick.ware

	var seller, buyer *station.Station
	var sellOffer, buyOffer wares.Offer
	if pick.t == wares.Buy {
		seller, buyer = cand, owner
		sellOffer = cand.SellOffers()[w]
		buyOffer = owner.BuyOffers()[w]
	} else {
		seller, buyer = owner, cand
		sellOffer = owner.SellOffers()[w]
		buyOffer = cand.BuyOffers()[w]
	}

	quantity := sellOffer.Quantity
	if buyOffer.Quantity < quantity {
		quantity = buyOffer.Quantity
	}
	if sh.CargoSpace() < quantity {
		quantity = sh.CargoSpace()
	}
	if quantity <= 0 {
		return false
	}

	if err := seller.AcceptTrade(wares.Sell, w, quantity); err != nil {
		ts.logger.Warn("trade aborted: " + err.Error())
		return false
	}
	if err := buyer.AcceptTrade(wares.Buy, w, quantity); err != nil {
		// Roll the seller's commitment back; nothing was transferred yet.
		seller.ReleaseReservation(wares.Sell, w, quantity)
		ts.logger.Warn("trade aborted: " + err.Error())
		return false
	}

	firstLeg, secondLeg := seller, buyer
	if pick.t == wares.Sell {
		// The owner is the seller: load at home first, then deliver.
		firstLeg, secondLeg = owner, cand
	}

	sh.EnqueueOrder(ship.Undock{})
	sh.EnqueueOrder(ship.DockAtStation{StationID: firstLeg.ID()})
	sh.EnqueueOrder(ship.TradeWithStation{StationID: firstLeg.ID(), Type: wares.Buy, Ware: w, Quantity: quantity})
	sh.EnqueueOrder(ship.Undock{})
	sh.EnqueueOrder(ship.DockAtStation{StationID: secondLeg.ID()})
	sh.EnqueueOrder(ship.TradeWithStation{StationID: secondLeg.ID(), Type: wares.Sell, Ware: w, Quantity: quantity})

	metrics.Get().RecordTradeMatched()
	ts.eventLog.Append(events.SimEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeTradeAccepted,
		ActorID:   fmt.Sprintf("SHIP-%d", sh.ID()),
		TargetID:  fmt.Sprintf("STATION-%d", cand.ID()),
		SimTime:   *ts.simTime,
		Payload: TradeAcceptedPayload{
			ShipID:    sh.ID(),
			SellerID:  seller.ID(),
			BuyerID:   buyer.ID(),
			Ware:      w,
			Quantity:  quantity,
			SellPrice: sellOffer.Price,
			BuyPrice:  buyOffer.Price,
		},
	})
	return true
}

// RunOrders drains a ship's order queue until it hits an order that
// needs travel time. Chained synchronous execution (a trade immediately
// executing the following undock, an undock admitting a queued ship
// whose own chain resumes) runs as a worklist, not recursion, so long
// chains cannot grow the stack.
func (ts *TradeSystem) RunOrders(sh *ship.Ship) {
	pending := []*ship.Ship{sh}

	for len(pending) > 0 {
		cur := pending[0]
		pending = pending[1:]

	orders:
		for {
			order, ok := cur.PopOrder()
			if !ok {
				break
			}

			switch o := order.(type) {
			case ship.DockAtStation:
				if cur.IsDocked() {
					panic(fmt.Sprintf("ship %d: dock order while already docked at station %d", cur.ID(), cur.DockedAt()))
				}
				target := ts.registry.StationByID(o.StationID)
				if target == nil {
					ts.logger.Warn(fmt.Sprintf("ship %d: dock target station %d no longer exists, dropping order", cur.ID(), o.StationID))
					continue
				}
				cur.SetTargetStation(o.StationID, target.Core().Position())
				break orders // wait for movement

			case ship.TradeWithStation:
				if cur.DockedAt() != o.StationID {
					panic(fmt.Sprintf("ship %d: trade order for station %d but docked at %d", cur.ID(), o.StationID, cur.DockedAt()))
				}
				st := ts.registry.StationByID(o.StationID).Core()

				quantity := o.Quantity
				if o.Type == wares.Sell {
					quantity = -quantity
				}
				if err := st.TransferWares(cur, o.Ware, quantity); err != nil {
					ts.logger.Warn("transfer failed: " + err.Error())
					continue
				}

				units := int64(o.Quantity)
				metrics.Get().RecordWaresTransferred(units)
				ts.eventLog.Append(events.SimEvent{
					ID:        events.GenerateEventID(),
					Timestamp: time.Now(),
					Type:      events.EventTypeWaresTransferred,
					ActorID:   fmt.Sprintf("SHIP-%d", cur.ID()),
					TargetID:  fmt.Sprintf("STATION-%d", st.ID()),
					SimTime:   *ts.simTime,
					Payload: WaresTransferredPayload{
						ShipID:    cur.ID(),
						StationID: st.ID(),
						Ware:      o.Ware,
						Quantity:  quantity,
					},
				})
				// Trade execution does not consume a tick; fall through
				// to the next order.

			case ship.Undock:
				if cur.IsDocked() {
					st := ts.registry.StationByID(cur.DockedAt()).Core()
					admitted := st.Undock(cur)
					ts.emitDockEvent(events.EventTypeShipUndocked, cur, st.ID())
					if admitted != nil {
						ts.emitDockEvent(events.EventTypeShipDocked, admitted, st.ID())
						pending = append(pending, admitted)
					}
				}
				// Not being docked is fine; just advance.

			case ship.MoveToPosition:
				cur.SetTargetPosition(o.Position)
				break orders

			default:
				panic(fmt.Sprintf("ship %d: unknown order variant %T", cur.ID(), order))
			}
		}
	}
}

// HandleArrival resolves a movement arrival with docking intent. A
// granted slot resumes the ship's order queue immediately; a full dock
// parks the ship in the station's overflow queue.
func (ts *TradeSystem) HandleArrival(sh *ship.Ship, stationID int) {
	ent := ts.registry.StationByID(stationID)
	if ent == nil {
		ts.logger.Warn(fmt.Sprintf("ship %d: arrival at unknown station %d", sh.ID(), stationID))
		return
	}
	st := ent.Core()
	if st.RequestDock(sh) {
		ts.emitDockEvent(events.EventTypeShipDocked, sh, st.ID())
		ts.RunOrders(sh)
	}
}

func (ts *TradeSystem) emitDockEvent(t events.EventType, sh *ship.Ship, stationID int) {
	ts.eventLog.Append(events.SimEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      t,
		ActorID:   fmt.Sprintf("SHIP-%d", sh.ID()),
		TargetID:  fmt.Sprintf("STATION-%d", stationID),
		SimTime:   *ts.simTime,
	})
}
