package trade

import (
	"github.com/holiman/uint256"

	"gridledger/crypto"
)

type OrderType uint8

const (
	OrderAsk OrderType = iota
	OrderBid
)

func (t OrderType) Valid() bool { return t == OrderAsk || t == OrderBid }

// Opposite returns the order type a match must pair with.
func (t OrderType) Opposite() OrderType {
	if t == OrderAsk {
		return OrderBid
	}
	return OrderAsk
}

func (t OrderType) String() string {
	switch t {
	case OrderAsk:
		return "ask"
	case OrderBid:
		return "bid"
	default:
		return "unknown"
	}
}

// OrderStatus tracks an order through
// Open -> Matched -> InTransfer -> Completed, with Cancelled reachable from
// Open and Failed from any non-terminal status.
type OrderStatus uint8

const (
	StatusOpen OrderStatus = iota
	StatusMatched
	StatusInTransfer
	StatusCompleted
	StatusCancelled
	StatusFailed
)

func (s OrderStatus) Valid() bool { return s <= StatusFailed }

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is legal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	switch s {
	case StatusOpen:
		return next == StatusMatched || next == StatusCancelled || next == StatusFailed
	case StatusMatched:
		return next == StatusInTransfer || next == StatusFailed
	case StatusInTransfer:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

func (s OrderStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusMatched:
		return "matched"
	case StatusInTransfer:
		return "in_transfer"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Order is a single ask or bid. Counterparty, MatchedAt, CompletedAt and
// VerificationHash are nil until the corresponding step happens.
type Order struct {
	ID               [32]byte
	Type             OrderType
	Creator          crypto.Address
	Counterparty     *crypto.Address
	EnergyAmount     uint64
	PricePerUnit     *uint256.Int
	TotalPrice       *uint256.Int
	Status           OrderStatus
	Location         []byte
	CreatedAt        uint64
	MatchedAt        *uint64
	CompletedAt      *uint64
	VerificationHash *[32]byte
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	if o.Counterparty != nil {
		cp := *o.Counterparty
		clone.Counterparty = &cp
	}
	if o.PricePerUnit != nil {
		clone.PricePerUnit = o.PricePerUnit.Clone()
	}
	if o.TotalPrice != nil {
		clone.TotalPrice = o.TotalPrice.Clone()
	}
	clone.Location = append([]byte(nil), o.Location...)
	if o.MatchedAt != nil {
		v := *o.MatchedAt
		clone.MatchedAt = &v
	}
	if o.CompletedAt != nil {
		v := *o.CompletedAt
		clone.CompletedAt = &v
	}
	if o.VerificationHash != nil {
		v := *o.VerificationHash
		clone.VerificationHash = &v
	}
	return &clone
}
