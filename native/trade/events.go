package trade

import (
	"gridledger/core/events"
	"gridledger/core/types"
)

const (
	EventTypeAskCreated       = "trade.ask_created"
	EventTypeBidCreated       = "trade.bid_created"
	EventTypeOrdersMatched    = "trade.orders_matched"
	EventTypeTransferVerified = "trade.transfer_verified"
	EventTypeOrderCompleted   = "trade.order_completed"
	EventTypeOrderCancelled   = "trade.order_cancelled"
	EventTypeOrderFailed      = "trade.order_failed"
)

type tradeEvent struct {
	evt *types.Event
}

func (e tradeEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e tradeEvent) Event() *types.Event { return e.evt }

func newOrderEvent(kind string, o *Order) tradeEvent {
	attrs := map[string]string{
		"orderId":  events.FormatID(o.ID),
		"creator":  o.Creator.String(),
		"status":   o.Status.String(),
		"energy":   events.FormatUint(o.EnergyAmount),
		"price":    events.FormatAmount(o.PricePerUnit),
		"total":    events.FormatAmount(o.TotalPrice),
		"location": string(o.Location),
	}
	return tradeEvent{evt: &types.Event{Type: kind, Attributes: attrs}}
}

func newMatchedEvent(ask, bid *Order) tradeEvent {
	return tradeEvent{evt: &types.Event{Type: EventTypeOrdersMatched, Attributes: map[string]string{
		"askId":  events.FormatID(ask.ID),
		"bidId":  events.FormatID(bid.ID),
		"seller": ask.Creator.String(),
		"buyer":  bid.Creator.String(),
		"energy": events.FormatUint(ask.EnergyAmount),
		"total":  events.FormatAmount(ask.TotalPrice),
	}}}
}

func newVerifiedEvent(o *Order) tradeEvent {
	return tradeEvent{evt: &types.Event{Type: EventTypeTransferVerified, Attributes: map[string]string{
		"orderId":          events.FormatID(o.ID),
		"verificationHash": events.FormatID(*o.VerificationHash),
	}}}
}

func newFailedEvent(o *Order, reason string) tradeEvent {
	evt := newOrderEvent(EventTypeOrderFailed, o)
	if reason != "" {
		evt.evt.Attributes["reason"] = reason
	}
	return evt
}
