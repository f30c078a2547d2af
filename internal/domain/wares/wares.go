// Package wares defines the tradeable resource types of the simulation.
// This package is PURE and must NOT import any infrastructure packages.
package wares

// Ware identifies a tradeable resource type.
type Ware string

const (
	HullParts     Ware = "HULL_PARTS"
	EnergyCells   Ware = "ENERGY_CELLS"
	Ore           Ware = "ORE"
	SiliconWafers Ware = "SILICON_WAFERS"
	Silicon       Ware = "SILICON"
)

// TradeType distinguishes the two sides of an offer.
type TradeType string

const (
	Buy  TradeType = "BUY"
	Sell TradeType = "SELL"
)

// Details provides static metadata about a ware.
type Details struct {
	Name     string
	Density  float64
	MinPrice float64
	MaxPrice float64
}

// Offer is a station's published willingness to buy or sell one ware.
type Offer struct {
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Quantity pairs a ware with an integer amount.
type Quantity struct {
	Ware   Ware `json:"ware"`
	Amount int  `json:"amount"`
}

// Catalog contains all known wares and their price bounds.
var Catalog = map[Ware]Details{
	HullParts:     {Name: "Hull Parts", Density: 1.0, MinPrice: 10.0, MaxPrice: 20.0},
	EnergyCells:   {Name: "Energy Cells", Density: 0.5, MinPrice: 5.0, MaxPrice: 10.0},
	Ore:           {Name: "Ore", Density: 2.0, MinPrice: 1.0, MaxPrice: 2.0},
	SiliconWafers: {Name: "Silicon Wafers", Density: 0.1, MinPrice: 1.0, MaxPrice: 1.0},
	Silicon:       {Name: "Silicon", Density: 0.5, MinPrice: 1.0, MaxPrice: 5.0},
}

// ShipConstructionCost is the shared material bill for one new ship.
var ShipConstructionCost = []Quantity{
	{Ware: HullParts, Amount: 50},
	{Ware: EnergyCells, Amount: 200},
}

// All returns every catalogued ware in a stable order.
// Map iteration order is randomized in Go; aggregations that pick a
// "best" ware must walk this slice instead so ties break deterministically.
func All() []Ware {
	return []Ware{HullParts, EnergyCells, Ore, SiliconWafers, Silicon}
}

// Get returns the details for a ware.
func Get(w Ware) (Details, bool) {
	det, ok := Catalog[w]
	return det, ok
}
