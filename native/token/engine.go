// Package token maintains the settlement token balances. Balances never go
// negative and the supply only grows through Mint.
package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"gridledger/core/events"
	"gridledger/crypto"
)

type engineState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

var (
	balancePrefix = []byte("token/balance/")
	supplyKey     = []byte("token/supply")
)

func balanceKey(acct crypto.Address) []byte {
	return append(append([]byte(nil), balancePrefix...), acct[:]...)
}

// Engine applies ledger mutations against the configured state.
type Engine struct {
	state   engineState
	emitter events.Emitter
}

func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
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

func (e *Engine) load(key []byte) (*uint256.Int, error) {
	if e.state == nil {
		return nil, errNilState
	}
	value := new(uint256.Int)
	ok, err := e.state.KVGet(key, value)
	if err != nil {
		return nil, fmt.Errorf("token: load: %w", err)
	}
	if !ok {
		return new(uint256.Int), nil
	}
	return value, nil
}

func (e *Engine) store(key []byte, value *uint256.Int) error {
	if err := e.state.KVPut(key, value); err != nil {
		return fmt.Errorf("token: store: %w", err)
	}
	return nil
}

// Balance returns the account balance; unknown accounts hold zero.
func (e *Engine) Balance(acct crypto.Address) (*uint256.Int, error) {
	return e.load(balanceKey(acct))
}

// TotalSupply returns the sum of every minted amount.
func (e *Engine) TotalSupply() (*uint256.Int, error) {
	return e.load(supplyKey)
}

// Mint credits amount to acct. Any caller may mint.
func (e *Engine) Mint(acct crypto.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	balance, err := e.Balance(acct)
	if err != nil {
		return err
	}
	supply, err := e.TotalSupply()
	if err != nil {
		return err
	}
	newBalance, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ErrOverflow
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return ErrOverflow
	}
	if err := e.store(balanceKey(acct), newBalance); err != nil {
		return err
	}
	if err := e.store(supplyKey, newSupply); err != nil {
		return err
	}
	e.emit(Minted{Account: acct, Amount: amount.Clone(), Supply: newSupply.Clone()})
	return nil
}

// Transfer moves amount from one account to another. Both legs are computed
// before anything is written.
func (e *Engine) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	if amount == nil {
		return ErrInvalidAmount
	}
	fromBalance, err := e.Balance(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return ErrInsufficientBalance
	}
	if from == to {
		e.emit(Transferred{From: from, To: to, Amount: amount.Clone()})
		return nil
	}
	toBalance, err := e.Balance(to)
	if err != nil {
		return err
	}
	credited, overflow := new(uint256.Int).AddOverflow(toBalance, amount)
	if overflow {
		return ErrOverflow
	}
	debited := new(uint256.Int).Sub(fromBalance, amount)
	if err := e.store(balanceKey(from), debited); err != nil {
		return err
	}
	if err := e.store(balanceKey(to), credited); err != nil {
		return err
	}
	e.emit(Transferred{From: from, To: to, Amount: amount.Clone()})
	return nil
}
