package settlement

import (
	"gridledger/core/events"
	"gridledger/core/types"
)

const (
	EventTypePaymentCreated      = "settlement.payment_created"
	EventTypePaymentCompleted    = "settlement.payment_completed"
	EventTypePaymentFailed       = "settlement.payment_failed"
	EventTypeExchangeRateUpdated = "settlement.exchange_rate_updated"
)

type settlementEvent struct {
	evt *types.Event
}

func (e settlementEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e settlementEvent) Event() *types.Event { return e.evt }

func newPaymentEvent(kind string, p *Payment) settlementEvent {
	return settlementEvent{evt: &types.Event{Type: kind, Attributes: map[string]string{
		"paymentId": events.FormatID(p.ID),
		"orderId":   events.FormatID(p.OrderID),
		"payer":     p.Payer.String(),
		"payee":     p.Payee.String(),
		"amount":    events.FormatAmount(p.Amount),
		"method":    p.Method.String(),
		"status":    p.Status.String(),
	}}}
}

func newRateEvent(rate *ExchangeRate) settlementEvent {
	return settlementEvent{evt: &types.Event{Type: EventTypeExchangeRateUpdated, Attributes: map[string]string{
		"from": rate.From,
		"to":   rate.To,
		"rate": events.FormatAmount(rate.Rate),
	}}}
}
