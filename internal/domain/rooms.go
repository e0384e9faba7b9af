package domain

import "github.com/shopspring/decimal"

type RoomType string

const (
	RoomSingle RoomType = "single"
	RoomDouble RoomType = "double"
	RoomTriple RoomType = "triple"
)

// Occupancy is how many people a room of each type holds. One legacy screen
// of the mobile client capped every room at two regardless of type; the
// per-type policy below is the one that matches room semantics and is the
// only one this service applies.
func (t RoomType) Occupancy() int {
	switch t {
	case RoomSingle:
		return 1
	case RoomDouble:
		return 2
	case RoomTriple:
		return 3
	}
	return 0
}

// RoomSelection is the count of rooms chosen per type. Counts never go
// negative: the draft's adjust operations clamp at zero.
type RoomSelection struct {
	Single int `json:"single"`
	Double int `json:"double"`
	Triple int `json:"triple"`
}

func (s RoomSelection) Total() int {
	return s.Single + s.Double + s.Triple
}

func (s RoomSelection) Add(o RoomSelection) RoomSelection {
	return RoomSelection{
		Single: s.Single + o.Single,
		Double: s.Double + o.Double,
		Triple: s.Triple + o.Triple,
	}
}

// PriceTable holds the per-room-type price of a trip schedule. It is read
// once from the schedule row and never mutated.
type PriceTable struct {
	Single decimal.Decimal `json:"price_single"`
	Double decimal.Decimal `json:"price_double"`
	Triple decimal.Decimal `json:"price_triple"`
}

type Totals struct {
	Price    decimal.Decimal
	Capacity int
}

// ComputeTotals prices a room selection and computes how many people the
// selected rooms hold. Pure and cheap enough to run on every adjustment.
func ComputeTotals(rooms RoomSelection, prices PriceTable) Totals {
	price := prices.Single.Mul(decimal.NewFromInt(int64(rooms.Single))).
		Add(prices.Double.Mul(decimal.NewFromInt(int64(rooms.Double)))).
		Add(prices.Triple.Mul(decimal.NewFromInt(int64(rooms.Triple))))

	capacity := rooms.Single*RoomSingle.Occupancy() +
		rooms.Double*RoomDouble.Occupancy() +
		rooms.Triple*RoomTriple.Occupancy()

	return Totals{Price: price, Capacity: capacity}
}
