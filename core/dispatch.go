package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"gridledger/core/types"
	"gridledger/native/delivery"
	"gridledger/native/pricing"
	"gridledger/native/registry"
	"gridledger/native/settlement"
)

func decode(payload []byte, out interface{}) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// ParseAmount decodes a non-negative decimal string into a 256-bit value.
func ParseAmount(field, value string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %s required", ErrInvalidPayload, field)
	}
	amount, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, field, err)
	}
	return amount, nil
}

func measurementFrom(p types.MeasurementPayload) delivery.Measurement {
	return delivery.Measurement{
		DeviceID:      []byte(p.DeviceID),
		Timestamp:     p.Timestamp,
		EnergyAmount:  p.EnergyAmount,
		GridFrequency: p.GridFrequency,
		Voltage:       p.Voltage,
	}
}

// dispatch decodes the payload for tx.Op and invokes the owning engine.
func (m *modules) dispatch(tx types.Transition) error {
	switch tx.Op {
	case types.OpMint:
		var p types.MintPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		amount, err := ParseAmount("amount", p.Amount)
		if err != nil {
			return err
		}
		return m.token.Mint(p.Account, amount)

	case types.OpTransfer:
		var p types.TransferPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		amount, err := ParseAmount("amount", p.Amount)
		if err != nil {
			return err
		}
		return m.token.Transfer(tx.Caller, p.To, amount)

	case types.OpRegisterUser:
		var p types.RegisterUserPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		role, err := registry.ParseRole(p.Role)
		if err != nil {
			return err
		}
		return m.registry.RegisterUser(tx.Caller, role)

	case types.OpRegisterDevice:
		var p types.RegisterDevicePayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		kind, err := registry.ParseDeviceType(p.DeviceType)
		if err != nil {
			return err
		}
		_, err = m.registry.RegisterDevice(tx.Caller, kind, p.Capacity)
		return err

	case types.OpUpdateUserRole:
		var p types.UpdateUserRolePayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		role, err := registry.ParseRole(p.Role)
		if err != nil {
			return err
		}
		return m.registry.UpdateUserRole(tx.Caller, p.Account, role)

	case types.OpSetDeviceActive:
		var p types.SetDeviceActivePayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.registry.SetDeviceActive(tx.Caller, p.DeviceID, p.Active)

	case types.OpCreateAsk, types.OpCreateBid:
		var p types.CreateOrderPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		price, err := ParseAmount("pricePerUnit", p.PricePerUnit)
		if err != nil {
			return err
		}
		if tx.Op == types.OpCreateAsk {
			_, err = m.trade.CreateAsk(tx.Caller, p.EnergyAmount, price, []byte(p.Location))
		} else {
			_, err = m.trade.CreateBid(tx.Caller, p.EnergyAmount, price, []byte(p.Location))
		}
		return err

	case types.OpMatchOrders:
		var p types.MatchOrdersPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.trade.MatchOrders(p.AskID, p.BidID)

	case types.OpVerifyTransfer:
		var p types.VerifyTransferPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.trade.VerifyTransfer(p.OrderID, []byte(p.Data))

	case types.OpCompleteTrade:
		var p types.OrderPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.trade.CompleteTrade(p.OrderID)

	case types.OpCancelOrder:
		var p types.OrderPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.trade.CancelOrder(tx.Caller, p.OrderID)

	case types.OpFailOrder:
		var p types.FailOrderPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.trade.FailOrder(tx.Caller, p.OrderID, p.Reason)

	case types.OpUpdateMarketData:
		var p types.UpdateMarketDataPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		price, err := ParseAmount("price", p.Price)
		if err != nil {
			return err
		}
		return m.pricing.UpdateMarketData([]byte(p.Location), price, uint256.NewInt(p.Volume))

	case types.OpUpdateGridMetrics:
		var p types.UpdateGridMetricsPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.pricing.UpdateGridMetrics([]byte(p.Location), pricing.GridMetrics{
			CongestionLevel: p.CongestionLevel,
			LossFactor:      p.LossFactor,
			StabilityIndex:  p.StabilityIndex,
		})

	case types.OpUpdateLocationPriorities:
		var p types.UpdateLocationPrioritiesPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		entries := make([]pricing.LocationPriority, 0, len(p.Priorities))
		for _, e := range p.Priorities {
			entries = append(entries, pricing.LocationPriority{
				Location:       []byte(e.Location),
				Priority:       e.Priority,
				DistanceFactor: e.DistanceFactor,
			})
		}
		return m.pricing.UpdateLocationPriorities([]byte(p.Source), entries)

	case types.OpSuggestMatch:
		var p types.OrderPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		_, err := m.pricing.SuggestMatch(p.OrderID)
		return err

	case types.OpStartTransfer:
		var p types.StartTransferPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.delivery.StartTransfer(p.OrderID, p.StartTime)

	case types.OpRecordMeasurement:
		var p types.RecordMeasurementPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.delivery.RecordMeasurement(p.OrderID, measurementFrom(p.Measurement))

	case types.OpCompleteTransfer:
		var p types.CompleteTransferPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.delivery.CompleteTransfer(p.OrderID, p.EndTime, measurementFrom(p.Measurement))

	case types.OpReportTransferFailure:
		var p types.ReportTransferFailurePayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.delivery.ReportTransferFailure(p.OrderID, p.Reason)

	case types.OpCreatePayment:
		var p types.CreatePaymentPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		method, err := settlement.ParsePaymentMethod(p.Method)
		if err != nil {
			return err
		}
		var ref []byte
		if p.ExternalRef != "" {
			ref = []byte(p.ExternalRef)
		}
		_, err = m.settlement.CreatePayment(tx.Caller, p.OrderID, method, ref)
		return err

	case types.OpProcessNativePayment:
		var p types.PaymentPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.settlement.ProcessNativePayment(p.PaymentID)

	case types.OpProcessExternalPayment:
		var p types.ProcessExternalPaymentPayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		return m.settlement.ProcessExternalPayment(p.PaymentID, []byte(p.Proof))

	case types.OpUpdateExchangeRate:
		var p types.UpdateExchangeRatePayload
		if err := decode(tx.Payload, &p); err != nil {
			return err
		}
		rate, err := ParseAmount("rate", p.Rate)
		if err != nil {
			return err
		}
		return m.settlement.UpdateExchangeRate(p.From, p.To, rate)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, tx.Op)
	}
}
