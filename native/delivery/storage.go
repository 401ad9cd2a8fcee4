package delivery

import "fmt"

type kvStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	transferPrefix    = []byte("delivery/transfer/")
	measurementPrefix = []byte("delivery/measurements/")
)

func transferKey(id [32]byte) []byte {
	return append(append([]byte(nil), transferPrefix...), id[:]...)
}

func measurementKey(id [32]byte) []byte {
	return append(append([]byte(nil), measurementPrefix...), id[:]...)
}

type storedTransfer struct {
	OrderID         [32]byte
	StartTime       uint64
	HasEndTime      bool
	EndTime         uint64
	EnergyDelivered uint64
	Status          uint8
}

type storedMeasurements struct {
	Items []Measurement
}

func (e *Engine) loadTransfer(id [32]byte) (*Transfer, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	var rec storedTransfer
	ok, err := e.state.KVGet(transferKey(id), &rec)
	if err != nil {
		return nil, false, fmt.Errorf("delivery: load transfer: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	t := &Transfer{
		OrderID:         rec.OrderID,
		StartTime:       rec.StartTime,
		EnergyDelivered: rec.EnergyDelivered,
		Status:          TransferStatus(rec.Status),
	}
	if rec.HasEndTime {
		end := rec.EndTime
		t.EndTime = &end
	}
	return t, true, nil
}

func (e *Engine) storeTransfer(t *Transfer) error {
	rec := storedTransfer{
		OrderID:         t.OrderID,
		StartTime:       t.StartTime,
		EnergyDelivered: t.EnergyDelivered,
		Status:          uint8(t.Status),
	}
	if t.EndTime != nil {
		rec.HasEndTime = true
		rec.EndTime = *t.EndTime
	}
	if err := e.state.KVPut(transferKey(t.OrderID), rec); err != nil {
		return fmt.Errorf("delivery: store transfer: %w", err)
	}
	return nil
}

func (e *Engine) loadMeasurements(id [32]byte) ([]Measurement, error) {
	if e.state == nil {
		return nil, errNilState
	}
	var rec storedMeasurements
	if _, err := e.state.KVGet(measurementKey(id), &rec); err != nil {
		return nil, fmt.Errorf("delivery: load measurements: %w", err)
	}
	if rec.Items == nil {
		rec.Items = []Measurement{}
	}
	return rec.Items, nil
}

func (e *Engine) appendMeasurement(id [32]byte, m Measurement) error {
	items, err := e.loadMeasurements(id)
	if err != nil {
		return err
	}
	if m.DeviceID == nil {
		m.DeviceID = []byte{}
	}
	items = append(items, m)
	if err := e.state.KVPut(measurementKey(id), storedMeasurements{Items: items}); err != nil {
		return fmt.Errorf("delivery: store measurements: %w", err)
	}
	return nil
}
