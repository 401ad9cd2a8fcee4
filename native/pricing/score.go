package pricing

import (
	"bytes"

	"github.com/holiman/uint256"
)

var (
	hundred    = uint256.NewInt(100)
	twoHundred = uint256.NewInt(200)
)

// saturatingScale returns v*(100+factor)/100, clamping the product at the
// maximum value. A zero factor leaves v unchanged.
func saturatingScale(v *uint256.Int, factor uint8) *uint256.Int {
	if factor == 0 {
		return v.Clone()
	}
	product, overflow := new(uint256.Int).MulOverflow(v, uint256.NewInt(100+uint64(factor)))
	if overflow {
		product.SetAllOne()
	}
	return product.Div(product, hundred)
}

func locationScore(target []byte, priorities []LocationPriority) uint32 {
	for _, p := range priorities {
		if bytes.Equal(p.Location, target) {
			return uint32(p.Priority)*2 + uint32(p.DistanceFactor)
		}
	}
	return 0
}

// priceScore is 100 for identical prices and otherwise
// 100 - round(100*|a-b|/max(a,b)), rounding halves up.
func priceScore(a, b *uint256.Int) uint32 {
	if a.Eq(b) {
		return 100
	}
	hi, lo := a, b
	if lo.Gt(hi) {
		hi, lo = lo, hi
	}
	diff := new(uint256.Int).Sub(hi, lo)
	// floor(200*diff/max) halved with +1 gives round-half-up of 100*diff/max.
	doubled, _ := new(uint256.Int).MulDivOverflow(diff, twoHundred, hi)
	rounded := (doubled.Uint64() + 1) / 2
	if rounded > 100 {
		rounded = 100
	}
	return 100 - uint32(rounded)
}

func gridScore(source, target *GridMetrics) uint32 {
	if source == nil || target == nil {
		return 0
	}
	congestion := 100 - uint32(max(source.CongestionLevel, target.CongestionLevel))
	stability := 2 * uint32(min(source.StabilityIndex, target.StabilityIndex))
	loss := 100 - (uint32(source.LossFactor)+uint32(target.LossFactor))/2
	return (congestion + stability + loss) / 3
}
