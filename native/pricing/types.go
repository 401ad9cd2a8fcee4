package pricing

import "github.com/holiman/uint256"

// MaxPriceHistory bounds MarketData.PriceHistory; the oldest point is dropped
// first.
const MaxPriceHistory = 24

// MaxMetric is the upper bound for every grid metric and priority field.
const MaxMetric = 100

type PricePoint struct {
	Price     *uint256.Int
	Timestamp uint64
	Volume    *uint256.Int
}

type MarketData struct {
	CurrentPrice *uint256.Int
	DailyHigh    *uint256.Int
	DailyLow     *uint256.Int
	DailyVolume  *uint256.Int
	PriceHistory []PricePoint
}

type GridMetrics struct {
	CongestionLevel uint8
	LossFactor      uint8
	StabilityIndex  uint8
}

func (m GridMetrics) Validate() error {
	if m.CongestionLevel > MaxMetric || m.LossFactor > MaxMetric || m.StabilityIndex > MaxMetric {
		return ErrInvalidMetrics
	}
	return nil
}

// LocationPriority weights a target location as seen from a source location.
type LocationPriority struct {
	Location       []byte
	Priority       uint8
	DistanceFactor uint8
}

// Match is the best candidate returned by FindOptimalMatch.
type Match struct {
	OrderID      [32]byte
	PricePerUnit *uint256.Int
	Score        uint32
}
