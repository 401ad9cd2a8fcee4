package pricing

import (
	"strconv"

	"github.com/holiman/uint256"

	"gridledger/core/events"
	"gridledger/core/types"
)

const (
	EventTypePriceUpdated       = "pricing.price_updated"
	EventTypeGridMetricsUpdated = "pricing.grid_metrics_updated"
	EventTypePrioritiesUpdated  = "pricing.location_priorities_updated"
	EventTypeOptimalMatchFound  = "pricing.optimal_match_found"
)

type pricingEvent struct {
	evt *types.Event
}

func (e pricingEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e pricingEvent) Event() *types.Event { return e.evt }

func newPriceUpdatedEvent(loc []byte, price *uint256.Int) pricingEvent {
	return pricingEvent{evt: &types.Event{Type: EventTypePriceUpdated, Attributes: map[string]string{
		"location": string(loc),
		"price":    events.FormatAmount(price),
	}}}
}

func newGridMetricsEvent(loc []byte, m GridMetrics) pricingEvent {
	return pricingEvent{evt: &types.Event{Type: EventTypeGridMetricsUpdated, Attributes: map[string]string{
		"location":   string(loc),
		"congestion": strconv.Itoa(int(m.CongestionLevel)),
		"loss":       strconv.Itoa(int(m.LossFactor)),
		"stability":  strconv.Itoa(int(m.StabilityIndex)),
	}}}
}

func newPrioritiesEvent(loc []byte, count int) pricingEvent {
	return pricingEvent{evt: &types.Event{Type: EventTypePrioritiesUpdated, Attributes: map[string]string{
		"location": string(loc),
		"entries":  strconv.Itoa(count),
	}}}
}

func newMatchFoundEvent(orderID [32]byte, m Match) pricingEvent {
	return pricingEvent{evt: &types.Event{Type: EventTypeOptimalMatchFound, Attributes: map[string]string{
		"orderId": events.FormatID(orderID),
		"matchId": events.FormatID(m.OrderID),
		"price":   events.FormatAmount(m.PricePerUnit),
		"score":   strconv.FormatUint(uint64(m.Score), 10),
	}}}
}
