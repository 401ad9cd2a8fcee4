// Package delivery tracks physical energy transfer for matched orders and
// hands the final reading to the order book as delivery evidence.
package delivery

import (
	"encoding/hex"

	"gridledger/core/events"
)

// OrderVerifier is the order book step invoked when a transfer completes.
type OrderVerifier interface {
	VerifyTransfer(orderID [32]byte, data []byte) error
}

type Engine struct {
	state    kvStore
	verifier OrderVerifier
	emitter  events.Emitter
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(state kvStore) { e.state = state }

func (e *Engine) SetVerifier(v OrderVerifier) { e.verifier = v }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// StartTransfer opens the single transfer record allowed per order.
func (e *Engine) StartTransfer(orderID [32]byte, startTime uint64) error {
	_, exists, err := e.loadTransfer(orderID)
	if err != nil {
		return err
	}
	if exists {
		return ErrTransferAlreadyStarted
	}
	transfer := &Transfer{
		OrderID:   orderID,
		StartTime: startTime,
		Status:    TransferInProgress,
	}
	if err := e.storeTransfer(transfer); err != nil {
		return err
	}
	e.emit(newEvent(EventTypeTransferStarted, orderID, map[string]string{
		"startTime": events.FormatUint(startTime),
	}))
	return nil
}

// RecordMeasurement appends a reading to an existing transfer.
func (e *Engine) RecordMeasurement(orderID [32]byte, m Measurement) error {
	_, exists, err := e.loadTransfer(orderID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTransferNotFound
	}
	if err := e.appendMeasurement(orderID, m); err != nil {
		return err
	}
	e.emit(newEvent(EventTypeMeasurementRecorded, orderID, map[string]string{
		"deviceId": hex.EncodeToString(m.DeviceID),
		"energy":   events.FormatUint(m.EnergyAmount),
	}))
	return nil
}

// CompleteTransfer closes an in-progress transfer and verifies the order with
// the final reading. Both writes share the caller's transition, so a failed
// verification discards the transfer update too.
func (e *Engine) CompleteTransfer(orderID [32]byte, endTime uint64, final Measurement) error {
	transfer, exists, err := e.loadTransfer(orderID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTransferNotFound
	}
	if transfer.Status != TransferInProgress {
		return ErrInvalidTransferStatus
	}
	if e.verifier == nil {
		return errNilVerifier
	}
	if err := e.appendMeasurement(orderID, final); err != nil {
		return err
	}
	transfer.EndTime = &endTime
	transfer.EnergyDelivered = final.EnergyAmount
	transfer.Status = TransferCompleted
	if err := e.storeTransfer(transfer); err != nil {
		return err
	}
	if err := e.verifier.VerifyTransfer(orderID, final.Encode()); err != nil {
		return err
	}
	e.emit(newEvent(EventTypeTransferCompleted, orderID, map[string]string{
		"energyDelivered": events.FormatUint(transfer.EnergyDelivered),
		"endTime":         events.FormatUint(endTime),
	}))
	return nil
}

// ReportTransferFailure marks the transfer failed regardless of its status.
// The order itself is not touched.
func (e *Engine) ReportTransferFailure(orderID [32]byte, reason string) error {
	transfer, exists, err := e.loadTransfer(orderID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTransferNotFound
	}
	transfer.Status = TransferFailed
	if err := e.storeTransfer(transfer); err != nil {
		return err
	}
	e.emit(newEvent(EventTypeTransferFailed, orderID, map[string]string{"reason": reason}))
	return nil
}

func (e *Engine) Transfer(orderID [32]byte) (*Transfer, error) {
	transfer, exists, err := e.loadTransfer(orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrTransferNotFound
	}
	return transfer, nil
}

// Measurements returns every reading recorded for the order, oldest first.
func (e *Engine) Measurements(orderID [32]byte) ([]Measurement, error) {
	return e.loadMeasurements(orderID)
}
