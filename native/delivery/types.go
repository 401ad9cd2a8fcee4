package delivery

import "gridledger/native/common"

type TransferStatus uint8

const (
	TransferPending TransferStatus = iota
	TransferInProgress
	TransferCompleted
	TransferFailed
)

func (s TransferStatus) Valid() bool { return s <= TransferFailed }

func (s TransferStatus) String() string {
	switch s {
	case TransferPending:
		return "pending"
	case TransferInProgress:
		return "in_progress"
	case TransferCompleted:
		return "completed"
	case TransferFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transfer tracks physical delivery for one order. EndTime is set once the
// transfer completes.
type Transfer struct {
	OrderID         [32]byte
	StartTime       uint64
	EndTime         *uint64
	EnergyDelivered uint64
	Status          TransferStatus
}

// Measurement is one telemetry reading. Values are stored as reported.
type Measurement struct {
	DeviceID      []byte
	Timestamp     uint64
	EnergyAmount  uint64
	GridFrequency uint32
	Voltage       uint32
}

// Encode returns the canonical encoding handed to the order book as delivery
// evidence.
func (m Measurement) Encode() []byte {
	return common.NewEncoder().
		Bytes(m.DeviceID).
		Uint64(m.Timestamp).
		Uint64(m.EnergyAmount).
		Uint32(m.GridFrequency).
		Uint32(m.Voltage).
		Encoded()
}
