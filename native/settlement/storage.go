package settlement

import (
	"fmt"

	"github.com/holiman/uint256"

	"gridledger/crypto"
	"gridledger/native/common"
)

type kvStore interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	paymentPrefix = []byte("settlement/payment/")
	ratePrefix    = []byte("settlement/rate/")
)

func paymentKey(id [32]byte) []byte {
	return append(append([]byte(nil), paymentPrefix...), id[:]...)
}

// rateKey length-prefixes both tokens so ("a/b","c") and ("a","b/c") never
// share a key.
func rateKey(from, to string) []byte {
	return append(append([]byte(nil), ratePrefix...), common.NewEncoder().String(from).String(to).Encoded()...)
}

type storedPayment struct {
	ID          [32]byte
	OrderID     [32]byte
	Payer       [20]byte
	Payee       [20]byte
	Amount      *uint256.Int
	Method      uint8
	Status      uint8
	HasRef      bool
	ExternalRef []byte
	Timestamp   uint64
}

func (e *Engine) loadPayment(id [32]byte) (*Payment, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	var rec storedPayment
	ok, err := e.state.KVGet(paymentKey(id), &rec)
	if err != nil {
		return nil, false, fmt.Errorf("settlement: load payment: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	p := &Payment{
		ID:          rec.ID,
		OrderID:     rec.OrderID,
		Payer:       crypto.Address(rec.Payer),
		Payee:       crypto.Address(rec.Payee),
		Amount:      rec.Amount,
		Method:      PaymentMethod(rec.Method),
		Status:      PaymentStatus(rec.Status),
		HasRef:      rec.HasRef,
		ExternalRef: rec.ExternalRef,
		Timestamp:   rec.Timestamp,
	}
	if p.Amount == nil {
		p.Amount = new(uint256.Int)
	}
	return p, true, nil
}

func (e *Engine) storePayment(p *Payment) error {
	rec := storedPayment{
		ID:          p.ID,
		OrderID:     p.OrderID,
		Payer:       p.Payer,
		Payee:       p.Payee,
		Amount:      p.Amount,
		Method:      uint8(p.Method),
		Status:      uint8(p.Status),
		HasRef:      p.HasRef,
		ExternalRef: p.ExternalRef,
		Timestamp:   p.Timestamp,
	}
	if rec.Amount == nil {
		rec.Amount = new(uint256.Int)
	}
	if rec.ExternalRef == nil {
		rec.ExternalRef = []byte{}
	}
	if err := e.state.KVPut(paymentKey(p.ID), rec); err != nil {
		return fmt.Errorf("settlement: store payment: %w", err)
	}
	return nil
}

func (e *Engine) loadRate(from, to string) (*ExchangeRate, bool, error) {
	if e.state == nil {
		return nil, false, errNilState
	}
	var rate ExchangeRate
	ok, err := e.state.KVGet(rateKey(from, to), &rate)
	if err != nil {
		return nil, false, fmt.Errorf("settlement: load rate: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	if rate.Rate == nil {
		rate.Rate = new(uint256.Int)
	}
	return &rate, true, nil
}

func (e *Engine) storeRate(rate *ExchangeRate) error {
	if err := e.state.KVPut(rateKey(rate.From, rate.To), rate); err != nil {
		return fmt.Errorf("settlement: store rate: %w", err)
	}
	return nil
}
