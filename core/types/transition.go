package types

import (
	"encoding/json"

	"gridledger/crypto"
)

// Op names a state-transition operation. The prefix before the dot is the
// owning module.
type Op string

const (
	OpMint     Op = "token.mint"
	OpTransfer Op = "token.transfer"

	OpRegisterUser    Op = "registry.register_user"
	OpRegisterDevice  Op = "registry.register_device"
	OpUpdateUserRole  Op = "registry.update_user_role"
	OpSetDeviceActive Op = "registry.set_device_active"

	OpCreateAsk      Op = "trade.create_ask"
	OpCreateBid      Op = "trade.create_bid"
	OpMatchOrders    Op = "trade.match_orders"
	OpVerifyTransfer Op = "trade.verify_transfer"
	OpCompleteTrade  Op = "trade.complete_trade"
	OpCancelOrder    Op = "trade.cancel_order"
	OpFailOrder      Op = "trade.fail_order"

	OpUpdateMarketData         Op = "pricing.update_market_data"
	OpUpdateGridMetrics        Op = "pricing.update_grid_metrics"
	OpUpdateLocationPriorities Op = "pricing.update_location_priorities"
	OpSuggestMatch             Op = "pricing.suggest_match"

	OpStartTransfer         Op = "delivery.start_transfer"
	OpRecordMeasurement     Op = "delivery.record_measurement"
	OpCompleteTransfer      Op = "delivery.complete_transfer"
	OpReportTransferFailure Op = "delivery.report_transfer_failure"

	OpCreatePayment          Op = "settlement.create_payment"
	OpProcessNativePayment   Op = "settlement.process_native_payment"
	OpProcessExternalPayment Op = "settlement.process_external_payment"
	OpUpdateExchangeRate     Op = "settlement.update_exchange_rate"
)

// Module returns the module prefix of the operation.
func (o Op) Module() string {
	for i := 0; i < len(o); i++ {
		if o[i] == '.' {
			return string(o[:i])
		}
	}
	return string(o)
}

// Transition is one authenticated request to mutate ledger state. Seq and
// Timestamp are assigned by the sequencer; the engine never reads the wall
// clock.
type Transition struct {
	Seq       uint64          `json:"seq"`
	Timestamp uint64          `json:"timestamp"`
	Caller    crypto.Address  `json:"caller"`
	Op        Op              `json:"op"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Receipt records a committed transition and the events it produced, in
// emission order.
type Receipt struct {
	Seq       uint64         `json:"seq"`
	Timestamp uint64         `json:"timestamp"`
	Caller    crypto.Address `json:"caller"`
	Op        Op             `json:"op"`
	Events    []Event        `json:"events"`
}
