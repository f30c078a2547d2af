package engine

import (
	"fmt"
	"time"

	"github.com/halvard-m/starlanes/server/internal/config"
	"github.com/halvard-m/starlanes/server/internal/domain/station"
	"github.com/halvard-m/starlanes/server/internal/domain/wares"
	"github.com/halvard-m/starlanes/server/internal/events"
	"github.com/halvard-m/starlanes/server/internal/platform/logger"
)

// MarketScanPayload summarizes one scan pass.
type MarketScanPayload struct {
	Ware      wares.Ware `json:"ware"`
	TotalSell int        `json:"total_sell"`
	TotalBuy  int        `json:"total_buy"`
	Volume    int        `json:"volume"`
	Ordered   bool       `json:"ordered"`
}

// ConstructionOrderedPayload records a freighter commissioned for a station.
type ConstructionOrderedPayload struct {
	WarfID  int        `json:"warf_id"`
	OwnerID int        `json:"owner_id"`
	Ware    wares.Ware `json:"ware"`
}

// wareAggregate is one ware's market-wide picture.
type wareAggregate struct {
	totalSell int
	totalBuy  int
	topSeller *station.Station // station with the largest single sell offer
	topBuyer  *station.Station // station with the largest single buy offer
}

// MarketSystem periodically surveys every station's offers and, when a
// ware's tradeable volume exceeds the threshold, commissions a new
// freighter for the most starved station on the bottleneck side.
type MarketSystem struct {
	registry  *Registry
	eventLog  *events.EventLog
	logger    *logger.Logger
	threshold int
	freighter config.ShipPreset
	simTime   *float64
}

// NewMarketSystem wires the market scan.
func NewMarketSystem(registry *Registry, eventLog *events.EventLog, log *logger.Logger, threshold int, freighter config.ShipPreset, simTime *float64) *MarketSystem {
	return &MarketSystem{
		registry:  registry,
		eventLog:  eventLog,
		logger:    log,
		threshold: threshold,
		freighter: freighter,
		simTime:   simTime,
	}
}

// Scan runs one market survey. The tradeable volume of a ware is
// min(total sell quantity, total buy quantity); the scan picks the ware
// with the largest volume and, past the threshold, orders a freighter
// at the first warf for the station carrying the largest offer on the
// LARGER aggregate side: that side has the most supply or demand
// stranded waiting for hulls.
func (ms *MarketSystem) Scan() {
	warfs := ms.registry.Warfs()
	if len(warfs) == 0 {
		return
	}

	aggregates := make(map[wares.Ware]*wareAggregate)
	for _, ent := range ms.registry.Stations() {
		st := ent.Core()
		for w, offer := range st.SellOffers() {
			agg := aggregates[w]
			if agg == nil {
				agg = &wareAggregate{}
				aggregates[w] = agg
			}
			agg.totalSell += offer.Quantity
			if agg.topSeller == nil || offer.Quantity > agg.topSeller.SellOffers()[w].Quantity {
				agg.topSeller = st
			}
		}
		for w, offer := range st.BuyOffers() {
			agg := aggregates[w]
			if agg == nil {
				agg = &wareAggregate{}
				aggregates[w] = agg
			}
			agg.totalBuy += offer.Quantity
			if agg.topBuyer == nil || offer.Quantity > agg.topBuyer.BuyOffers()[w].Quantity {
				agg.topBuyer = st
			}
		}
	}

	// Walk the catalog in its fixed order so ties resolve the same way
	// every run.
	var bestWare wares.Ware
	var best *wareAggregate
	bestVolume := -1
	for _, w := range wares.All() {
		agg, ok := aggregates[w]
		if !ok {
			continue
		}
		volume := agg.totalSell
		if agg.totalBuy < volume {
			volume = agg.totalBuy
		}
		if volume > bestVolume {
			bestWare, best, bestVolume = w, agg, volume
		}
	}

	payload := MarketScanPayload{}
	if best != nil {
		payload = MarketScanPayload{
			Ware:      bestWare,
			TotalSell: best.totalSell,
			TotalBuy:  best.totalBuy,
			Volume:    bestVolume,
		}
	}

	if best != nil && bestVolume > ms.threshold {
		target := best.topSeller
		if best.totalBuy > best.totalSell {
			target = best.topBuyer
		}
		if target != nil {
			payload.Ordered = ms.commission(warfs[0], target, bestWare)
		}
	}

	ms.eventLog.Append(events.SimEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeMarketScan,
		ActorID:   "MARKET",
		SimTime:   *ms.simTime,
		Payload:   payload,
	})
}

// commission places one freighter order unless the station already has
// one pending at this warf.
func (ms *MarketSystem) commission(warf *station.WarfStation, target *station.Station, w wares.Ware) bool {
	if warf.HasOrderForStation(target.ID()) {
		return false
	}

	warf.OrderShip(station.ConstructionOrder{
		OwnerID:         target.ID(),
		MaxSpeed:        ms.freighter.MaxSpeed,
		CargoCapacity:   ms.freighter.CargoCapacity,
		WeaponAttack:    ms.freighter.WeaponAttack,
		TimeToConstruct: ms.freighter.BuildTime,
	})

	ms.logger.Event(string(events.EventTypeConstructionOrdered), fmt.Sprintf("STATION-%d", warf.ID()), fmt.Sprintf("freighter for station %d (ware %s)", target.ID(), w))
	ms.eventLog.Append(events.SimEvent{
		ID:        events.GenerateEventID(),
		Timestamp: time.Now(),
		Type:      events.EventTypeConstructionOrdered,
		ActorID:   fmt.Sprintf("STATION-%d", warf.ID()),
		TargetID:  fmt.Sprintf("STATION-%d", target.ID()),
		SimTime:   *ms.simTime,
		Payload: ConstructionOrderedPayload{
			WarfID:  warf.ID(),
			OwnerID: target.ID(),
			Ware:    w,
		},
	})
	return true
}
