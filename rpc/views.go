package rpc

import (
	"encoding/hex"

	"github.com/holiman/uint256"

	"gridledger/core/types"
	"gridledger/native/delivery"
	"gridledger/native/pricing"
	"gridledger/native/registry"
	"gridledger/native/settlement"
	"gridledger/native/trade"
)

// JSON views of engine records. Amounts are decimal strings and identifiers
// 0x-prefixed hex.

func amount(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

type profileView struct {
	Account         string       `json:"account"`
	Role            string       `json:"role"`
	Devices         []types.Hash `json:"devices"`
	Active          bool         `json:"active"`
	ReputationScore uint32       `json:"reputationScore"`
	RegisteredAt    uint64       `json:"registeredAt"`
}

func profileViewOf(p *registry.UserProfile) profileView {
	devices := make([]types.Hash, 0, len(p.Devices))
	for _, id := range p.Devices {
		devices = append(devices, types.Hash(id))
	}
	return profileView{
		Account:         p.Account.String(),
		Role:            p.Role.String(),
		Devices:         devices,
		Active:          p.Active,
		ReputationScore: p.ReputationScore,
		RegisteredAt:    p.RegisteredAt,
	}
}

type deviceView struct {
	ID           types.Hash `json:"id"`
	Owner        string     `json:"owner"`
	Type         string     `json:"type"`
	MaxCapacity  uint32     `json:"maxCapacity"`
	Active       bool       `json:"active"`
	RegisteredAt uint64     `json:"registeredAt"`
}

func deviceViewOf(d *registry.Device) deviceView {
	return deviceView{
		ID:           types.Hash(d.ID),
		Owner:        d.Owner.String(),
		Type:         d.Type.String(),
		MaxCapacity:  d.MaxCapacity,
		Active:       d.Active,
		RegisteredAt: d.RegisteredAt,
	}
}

type orderView struct {
	ID               types.Hash  `json:"id"`
	Type             string      `json:"type"`
	Creator          string      `json:"creator"`
	Counterparty     string      `json:"counterparty,omitempty"`
	EnergyAmount     uint64      `json:"energyAmount"`
	PricePerUnit     string      `json:"pricePerUnit"`
	TotalPrice       string      `json:"totalPrice"`
	Status           string      `json:"status"`
	Location         string      `json:"location"`
	CreatedAt        uint64      `json:"createdAt"`
	MatchedAt        *uint64     `json:"matchedAt,omitempty"`
	CompletedAt      *uint64     `json:"completedAt,omitempty"`
	VerificationHash *types.Hash `json:"verificationHash,omitempty"`
}

func orderViewOf(o *trade.Order) orderView {
	v := orderView{
		ID:           types.Hash(o.ID),
		Type:         o.Type.String(),
		Creator:      o.Creator.String(),
		EnergyAmount: o.EnergyAmount,
		PricePerUnit: amount(o.PricePerUnit),
		TotalPrice:   amount(o.TotalPrice),
		Status:       o.Status.String(),
		Location:     string(o.Location),
		CreatedAt:    o.CreatedAt,
		MatchedAt:    o.MatchedAt,
		CompletedAt:  o.CompletedAt,
	}
	if o.Counterparty != nil {
		v.Counterparty = o.Counterparty.String()
	}
	if o.VerificationHash != nil {
		h := types.Hash(*o.VerificationHash)
		v.VerificationHash = &h
	}
	return v
}

func orderViews(orders []*trade.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderViewOf(o))
	}
	return out
}

type transferView struct {
	OrderID         types.Hash `json:"orderId"`
	StartTime       uint64     `json:"startTime"`
	EndTime         *uint64    `json:"endTime,omitempty"`
	EnergyDelivered uint64     `json:"energyDelivered"`
	Status          string     `json:"status"`
}

func transferViewOf(t *delivery.Transfer) transferView {
	return transferView{
		OrderID:         types.Hash(t.OrderID),
		StartTime:       t.StartTime,
		EndTime:         t.EndTime,
		EnergyDelivered: t.EnergyDelivered,
		Status:          t.Status.String(),
	}
}

type measurementView struct {
	DeviceID      string `json:"deviceId"`
	Timestamp     uint64 `json:"timestamp"`
	EnergyAmount  uint64 `json:"energyAmount"`
	GridFrequency uint32 `json:"gridFrequency"`
	Voltage       uint32 `json:"voltage"`
}

func measurementViews(ms []delivery.Measurement) []measurementView {
	out := make([]measurementView, 0, len(ms))
	for _, m := range ms {
		out = append(out, measurementView{
			DeviceID:      hex.EncodeToString(m.DeviceID),
			Timestamp:     m.Timestamp,
			EnergyAmount:  m.EnergyAmount,
			GridFrequency: m.GridFrequency,
			Voltage:       m.Voltage,
		})
	}
	return out
}

type pricePointView struct {
	Price     string `json:"price"`
	Timestamp uint64 `json:"timestamp"`
	Volume    string `json:"volume"`
}

type marketView struct {
	CurrentPrice string           `json:"currentPrice"`
	DailyHigh    string           `json:"dailyHigh"`
	DailyLow     string           `json:"dailyLow"`
	DailyVolume  string           `json:"dailyVolume"`
	PriceHistory []pricePointView `json:"priceHistory"`
}

func marketViewOf(m *pricing.MarketData) marketView {
	history := make([]pricePointView, 0, len(m.PriceHistory))
	for _, p := range m.PriceHistory {
		history = append(history, pricePointView{Price: amount(p.Price), Timestamp: p.Timestamp, Volume: amount(p.Volume)})
	}
	return marketView{
		CurrentPrice: amount(m.CurrentPrice),
		DailyHigh:    amount(m.DailyHigh),
		DailyLow:     amount(m.DailyLow),
		DailyVolume:  amount(m.DailyVolume),
		PriceHistory: history,
	}
}

type gridView struct {
	CongestionLevel uint8 `json:"congestionLevel"`
	LossFactor      uint8 `json:"lossFactor"`
	StabilityIndex  uint8 `json:"stabilityIndex"`
}

type priorityView struct {
	Location       string `json:"location"`
	Priority       uint8  `json:"priority"`
	DistanceFactor uint8  `json:"distanceFactor"`
}

func priorityViews(ps []pricing.LocationPriority) []priorityView {
	out := make([]priorityView, 0, len(ps))
	for _, p := range ps {
		out = append(out, priorityView{Location: string(p.Location), Priority: p.Priority, DistanceFactor: p.DistanceFactor})
	}
	return out
}

type matchView struct {
	OrderID      types.Hash `json:"orderId"`
	PricePerUnit string     `json:"pricePerUnit"`
	Score        uint32     `json:"score"`
}

type paymentView struct {
	ID          types.Hash `json:"id"`
	OrderID     types.Hash `json:"orderId"`
	Payer       string     `json:"payer"`
	Payee       string     `json:"payee"`
	Amount      string     `json:"amount"`
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	ExternalRef *string    `json:"externalRef,omitempty"`
	Timestamp   uint64     `json:"timestamp"`
}

func paymentViewOf(p *settlement.Payment) paymentView {
	v := paymentView{
		ID:        types.Hash(p.ID),
		OrderID:   types.Hash(p.OrderID),
		Payer:     p.Payer.String(),
		Payee:     p.Payee.String(),
		Amount:    amount(p.Amount),
		Method:    p.Method.String(),
		Status:    p.Status.String(),
		Timestamp: p.Timestamp,
	}
	if p.HasRef {
		ref := string(p.ExternalRef)
		v.ExternalRef = &ref
	}
	return v
}

type rateView struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Rate      string `json:"rate"`
	Timestamp uint64 `json:"timestamp"`
}
