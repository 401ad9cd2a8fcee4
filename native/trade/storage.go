package trade

import (
	"fmt"

	"github.com/holiman/uint256"

	"gridledger/crypto"
)

type kvStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

var (
	orderPrefix   = []byte("trade/order/")
	accountPrefix = []byte("trade/account/")
	orderIndexKey = []byte("trade/index")
)

func orderKey(id [32]byte) []byte {
	return append(append([]byte(nil), orderPrefix...), id[:]...)
}

func accountKey(acct crypto.Address) []byte {
	return append(append([]byte(nil), accountPrefix...), acct[:]...)
}

// storedOrder is the RLP form of Order. Optional fields carry an explicit
// presence flag.
type storedOrder struct {
	ID              [32]byte
	Type            uint8
	Creator         [20]byte
	HasCounterparty bool
	Counterparty    [20]byte
	EnergyAmount    uint64
	PricePerUnit    *uint256.Int
	TotalPrice      *uint256.Int
	Status          uint8
	Location        []byte
	CreatedAt       uint64
	HasMatchedAt    bool
	MatchedAt       uint64
	HasCompletedAt  bool
	CompletedAt     uint64
	HasVerification bool
	Verification    [32]byte
}

func newStoredOrder(o *Order) storedOrder {
	rec := storedOrder{
		ID:           o.ID,
		Type:         uint8(o.Type),
		Creator:      o.Creator,
		EnergyAmount: o.EnergyAmount,
		PricePerUnit: o.PricePerUnit,
		TotalPrice:   o.TotalPrice,
		Status:       uint8(o.Status),
		Location:     o.Location,
		CreatedAt:    o.CreatedAt,
	}
	if rec.PricePerUnit == nil {
		rec.PricePerUnit = new(uint256.Int)
	}
	if rec.TotalPrice == nil {
		rec.TotalPrice = new(uint256.Int)
	}
	if o.Counterparty != nil {
		rec.HasCounterparty = true
		rec.Counterparty = *o.Counterparty
	}
	if o.MatchedAt != nil {
		rec.HasMatchedAt = true
		rec.MatchedAt = *o.MatchedAt
	}
	if o.CompletedAt != nil {
		rec.HasCompletedAt = true
		rec.CompletedAt = *o.CompletedAt
	}
	if o.VerificationHash != nil {
		rec.HasVerification = true
		rec.Verification = *o.VerificationHash
	}
	return rec
}

func (rec storedOrder) order() *Order {
	o := &Order{
		ID:           rec.ID,
		Type:         OrderType(rec.Type),
		Creator:      crypto.Address(rec.Creator),
		EnergyAmount: rec.EnergyAmount,
		PricePerUnit: rec.PricePerUnit,
		TotalPrice:   rec.TotalPrice,
		Status:       OrderStatus(rec.Status),
		Location:     rec.Location,
		CreatedAt:    rec.CreatedAt,
	}
	if o.PricePerUnit == nil {
		o.PricePerUnit = new(uint256.Int)
	}
	if o.TotalPrice == nil {
		o.TotalPrice = new(uint256.Int)
	}
	if rec.HasCounterparty {
		cp := crypto.Address(rec.Counterparty)
		o.Counterparty = &cp
	}
	if rec.HasMatchedAt {
		v := rec.MatchedAt
		o.MatchedAt = &v
	}
	if rec.HasCompletedAt {
		v := rec.CompletedAt
		o.CompletedAt = &v
	}
	if rec.HasVerification {
		v := rec.Verification
		o.VerificationHash = &v
	}
	return o
}

func (e *Engine) loadOrder(id [32]byte) (*Order, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	var rec storedOrder
	ok, err := e.state.KVGet(orderKey(id), &rec)
	if err != nil {
		return nil, false, fmt.Errorf("trade: load order: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return rec.order(), true, nil
}

func (e *Engine) storeOrder(o *Order) error {
	if err := e.state.KVPut(orderKey(o.ID), newStoredOrder(o)); err != nil {
		return fmt.Errorf("trade: store order: %w", err)
	}
	return nil
}

func (e *Engine) indexOrder(o *Order) error {
	if err := e.state.KVAppend(accountKey(o.Creator), o.ID[:]); err != nil {
		return fmt.Errorf("trade: index account: %w", err)
	}
	if err := e.state.KVAppend(orderIndexKey, o.ID[:]); err != nil {
		return fmt.Errorf("trade: index order: %w", err)
	}
	return nil
}

func (e *Engine) loadIDs(key []byte) ([][32]byte, error) {
	if e.state == nil {
		return nil, errNilState
	}
	var raw [][]byte
	if err := e.state.KVGetList(key, &raw); err != nil {
		return nil, fmt.Errorf("trade: load index: %w", err)
	}
	ids := make([][32]byte, 0, len(raw))
	for _, item := range raw {
		var id [32]byte
		copy(id[:], item)
		ids = append(ids, id)
	}
	return ids, nil
}
