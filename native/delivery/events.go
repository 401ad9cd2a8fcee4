package delivery

import (
	"gridledger/core/events"
	"gridledger/core/types"
)

const (
	EventTypeTransferStarted     = "delivery.transfer_started"
	EventTypeMeasurementRecorded = "delivery.measurement_recorded"
	EventTypeTransferCompleted   = "delivery.transfer_completed"
	EventTypeTransferFailed      = "delivery.transfer_failed"
)

type deliveryEvent struct {
	evt *types.Event
}

func (e deliveryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e deliveryEvent) Event() *types.Event { return e.evt }

func newEvent(kind string, orderID [32]byte, attrs map[string]string) deliveryEvent {
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["orderId"] = events.FormatID(orderID)
	return deliveryEvent{evt: &types.Event{Type: kind, Attributes: attrs}}
}
