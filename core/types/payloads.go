package types

import "gridledger/crypto"

// Payload schemas for each Op. Amounts and prices are decimal strings so the
// full 256-bit range survives JSON.

type MintPayload struct {
	Account crypto.Address `json:"account"`
	Amount  string         `json:"amount"`
}

type TransferPayload struct {
	To     crypto.Address `json:"to"`
	Amount string         `json:"amount"`
}

type RegisterUserPayload struct {
	Role string `json:"role"`
}

type RegisterDevicePayload struct {
	DeviceType string `json:"deviceType"`
	Capacity   uint32 `json:"capacity"`
}

type UpdateUserRolePayload struct {
	Account crypto.Address `json:"account"`
	Role    string         `json:"role"`
}

type SetDeviceActivePayload struct {
	DeviceID Hash `json:"deviceId"`
	Active   bool `json:"active"`
}

// CreateOrderPayload serves both CreateAsk and CreateBid.
type CreateOrderPayload struct {
	EnergyAmount uint64 `json:"energyAmount"`
	PricePerUnit string `json:"pricePerUnit"`
	Location     string `json:"location"`
}

type MatchOrdersPayload struct {
	AskID Hash `json:"askId"`
	BidID Hash `json:"bidId"`
}

type VerifyTransferPayload struct {
	OrderID Hash   `json:"orderId"`
	Data    string `json:"data"`
}

// OrderPayload addresses a single order (CompleteTrade, CancelOrder,
// SuggestMatch).
type OrderPayload struct {
	OrderID Hash `json:"orderId"`
}

type FailOrderPayload struct {
	OrderID Hash   `json:"orderId"`
	Reason  string `json:"reason"`
}

type UpdateMarketDataPayload struct {
	Location string `json:"location"`
	Price    string `json:"price"`
	Volume   uint64 `json:"volume"`
}

type UpdateGridMetricsPayload struct {
	Location        string `json:"location"`
	CongestionLevel uint8  `json:"congestionLevel"`
	LossFactor      uint8  `json:"lossFactor"`
	StabilityIndex  uint8  `json:"stabilityIndex"`
}

type LocationPriorityEntry struct {
	Location       string `json:"location"`
	Priority       uint8  `json:"priority"`
	DistanceFactor uint8  `json:"distanceFactor"`
}

type UpdateLocationPrioritiesPayload struct {
	Source     string                  `json:"source"`
	Priorities []LocationPriorityEntry `json:"priorities"`
}

type StartTransferPayload struct {
	OrderID   Hash   `json:"orderId"`
	StartTime uint64 `json:"startTime"`
}

type MeasurementPayload struct {
	DeviceID      string `json:"deviceId"`
	Timestamp     uint64 `json:"timestamp"`
	EnergyAmount  uint64 `json:"energyAmount"`
	GridFrequency uint32 `json:"gridFrequency"`
	Voltage       uint32 `json:"voltage"`
}

type RecordMeasurementPayload struct {
	OrderID     Hash               `json:"orderId"`
	Measurement MeasurementPayload `json:"measurement"`
}

type CompleteTransferPayload struct {
	OrderID     Hash               `json:"orderId"`
	EndTime     uint64             `json:"endTime"`
	Measurement MeasurementPayload `json:"measurement"`
}

type ReportTransferFailurePayload struct {
	OrderID Hash   `json:"orderId"`
	Reason  string `json:"reason"`
}

type CreatePaymentPayload struct {
	OrderID     Hash   `json:"orderId"`
	Method      string `json:"method"`
	ExternalRef string `json:"externalRef,omitempty"`
}

type PaymentPayload struct {
	PaymentID Hash `json:"paymentId"`
}

type ProcessExternalPaymentPayload struct {
	PaymentID Hash   `json:"paymentId"`
	Proof     string `json:"proof"`
}

type UpdateExchangeRatePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Rate string `json:"rate"`
}
