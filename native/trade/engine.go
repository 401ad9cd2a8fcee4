// Package trade holds the order book: asks and bids, matching, transfer
// verification and trade completion.
package trade

import (
	"github.com/holiman/uint256"

	"gridledger/core/events"
	"gridledger/crypto"
	"gridledger/native/common"
)

// Ledger is the subset of the token ledger the order book settles against.
type Ledger interface {
	Balance(acct crypto.Address) (*uint256.Int, error)
	Transfer(from, to crypto.Address, amount *uint256.Int) error
}

type Engine struct {
	state   kvStore
	ledger  Ledger
	emitter events.Emitter
	nowFn   func() uint64
}

func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() uint64 { return 0 },
	}
}

func (e *Engine) SetState(state kvStore) { e.state = state }

func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetNowFunc(now func() uint64) {
	if now == nil {
		e.nowFn = func() uint64 { return 0 }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

// OrderID derives an order identifier from its creation fields.
func OrderID(kind OrderType, creator crypto.Address, energy uint64, price, total *uint256.Int, location []byte, createdAt uint64) [32]byte {
	return common.NewEncoder().
		Uint8(uint8(kind)).
		Fixed(creator[:]).
		Uint64(energy).
		Uint256(price).
		Uint256(total).
		Bytes(location).
		Uint64(createdAt).
		Sum()
}

// CreateAsk places a sell order and returns its identifier.
func (e *Engine) CreateAsk(caller crypto.Address, energy uint64, price *uint256.Int, location []byte) ([32]byte, error) {
	return e.createOrder(OrderAsk, caller, energy, price, location)
}

// CreateBid places a buy order. The caller must currently hold the total
// price, but nothing is reserved.
func (e *Engine) CreateBid(caller crypto.Address, energy uint64, price *uint256.Int, location []byte) ([32]byte, error) {
	return e.createOrder(OrderBid, caller, energy, price, location)
}

func (e *Engine) createOrder(kind OrderType, caller crypto.Address, energy uint64, price *uint256.Int, location []byte) ([32]byte, error) {
	var id [32]byte
	if energy == 0 {
		return id, ErrInvalidAmount
	}
	if price == nil || price.IsZero() {
		return id, ErrInvalidPrice
	}
	total, overflow := new(uint256.Int).MulOverflow(price, uint256.NewInt(energy))
	if overflow {
		return id, ErrInvalidPrice
	}
	if kind == OrderBid {
		if e.ledger == nil {
			return id, errNilLedger
		}
		balance, err := e.ledger.Balance(caller)
		if err != nil {
			return id, err
		}
		if balance.Lt(total) {
			return id, ErrInsufficientBalance
		}
	}
	now := e.nowFn()
	loc := append([]byte(nil), location...)
	id = OrderID(kind, caller, energy, price, total, loc, now)
	_, exists, err := e.loadOrder(id)
	if err != nil {
		return id, err
	}
	if exists {
		return id, ErrOrderExists
	}
	order := &Order{
		ID:           id,
		Type:         kind,
		Creator:      caller,
		EnergyAmount: energy,
		PricePerUnit: price.Clone(),
		TotalPrice:   total,
		Status:       StatusOpen,
		Location:     loc,
		CreatedAt:    now,
	}
	if err := e.storeOrder(order); err != nil {
		return id, err
	}
	if err := e.indexOrder(order); err != nil {
		return id, err
	}
	eventType := EventTypeAskCreated
	if kind == OrderBid {
		eventType = EventTypeBidCreated
	}
	e.emit(newOrderEvent(eventType, order))
	return id, nil
}

func (e *Engine) mustOrder(id [32]byte) (*Order, error) {
	order, ok, err := e.loadOrder(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// MatchOrders pairs an open ask with an open bid for the same energy amount.
// The ask price must not exceed the bid price; settlement uses the ask's
// total.
func (e *Engine) MatchOrders(askID, bidID [32]byte) error {
	ask, err := e.mustOrder(askID)
	if err != nil {
		return err
	}
	bid, err := e.mustOrder(bidID)
	if err != nil {
		return err
	}
	if ask.Type != OrderAsk || bid.Type != OrderBid {
		return ErrOrderMismatch
	}
	if ask.Status != StatusOpen || bid.Status != StatusOpen {
		return ErrInvalidOrderStatus
	}
	if ask.EnergyAmount != bid.EnergyAmount {
		return ErrOrderMismatch
	}
	if ask.PricePerUnit.Gt(bid.PricePerUnit) {
		return ErrOrderMismatch
	}
	now := e.nowFn()
	seller, buyer := ask.Creator, bid.Creator
	ask.Status, bid.Status = StatusMatched, StatusMatched
	ask.Counterparty, bid.Counterparty = &buyer, &seller
	askAt, bidAt := now, now
	ask.MatchedAt, bid.MatchedAt = &askAt, &bidAt
	if err := e.storeOrder(ask); err != nil {
		return err
	}
	if err := e.storeOrder(bid); err != nil {
		return err
	}
	e.emit(newMatchedEvent(ask, bid))
	return nil
}

// VerifyTransfer records the hash of the delivery evidence and moves a
// matched order into transfer.
func (e *Engine) VerifyTransfer(orderID [32]byte, data []byte) error {
	order, err := e.mustOrder(orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusMatched {
		return ErrInvalidOrderStatus
	}
	hash := common.Keccak(data)
	order.VerificationHash = &hash
	order.Status = StatusInTransfer
	if err := e.storeOrder(order); err != nil {
		return err
	}
	e.emit(newVerifiedEvent(order))
	return nil
}

// CompleteTrade settles a verified order: the counterparty pays the creator
// the order's total price.
func (e *Engine) CompleteTrade(orderID [32]byte) error {
	order, err := e.mustOrder(orderID)
	if err != nil {
		return err
	}
	if order.Status != StatusInTransfer {
		return ErrInvalidOrderStatus
	}
	if order.VerificationHash == nil {
		return ErrTransferVerificationFailed
	}
	if order.Counterparty == nil {
		return ErrOrderMismatch
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if err := e.ledger.Transfer(*order.Counterparty, order.Creator, order.TotalPrice); err != nil {
		return err
	}
	now := e.nowFn()
	order.Status = StatusCompleted
	order.CompletedAt = &now
	if err := e.storeOrder(order); err != nil {
		return err
	}
	e.emit(newOrderEvent(EventTypeOrderCompleted, order))
	return nil
}

// CancelOrder withdraws an open order. Only the creator may cancel.
func (e *Engine) CancelOrder(caller crypto.Address, orderID [32]byte) error {
	order, err := e.mustOrder(orderID)
	if err != nil {
		return err
	}
	if order.Creator != caller {
		return ErrUnauthorized
	}
	if !order.Status.CanTransition(StatusCancelled) {
		return ErrInvalidOrderStatus
	}
	order.Status = StatusCancelled
	if err := e.storeOrder(order); err != nil {
		return err
	}
	e.emit(newOrderEvent(EventTypeOrderCancelled, order))
	return nil
}

// FailOrder marks a non-terminal order as failed. The creator or the matched
// counterparty may call it.
func (e *Engine) FailOrder(caller crypto.Address, orderID [32]byte, reason string) error {
	order, err := e.mustOrder(orderID)
	if err != nil {
		return err
	}
	if order.Creator != caller && (order.Counterparty == nil || *order.Counterparty != caller) {
		return ErrUnauthorized
	}
	if order.Status.Terminal() {
		return ErrInvalidOrderStatus
	}
	order.Status = StatusFailed
	if err := e.storeOrder(order); err != nil {
		return err
	}
	e.emit(newFailedEvent(order, reason))
	return nil
}

// Order returns the order with the given identifier.
func (e *Engine) Order(id [32]byte) (*Order, error) {
	return e.mustOrder(id)
}

// OrdersByAccount returns the orders created by acct in creation order.
func (e *Engine) OrdersByAccount(acct crypto.Address) ([]*Order, error) {
	ids, err := e.loadIDs(accountKey(acct))
	if err != nil {
		return nil, err
	}
	return e.loadAll(ids, nil)
}

// OpenOrders returns every open order in global creation order. This is the
// scan order used by match scoring.
func (e *Engine) OpenOrders() ([]*Order, error) {
	ids, err := e.loadIDs(orderIndexKey)
	if err != nil {
		return nil, err
	}
	return e.loadAll(ids, func(o *Order) bool { return o.Status == StatusOpen })
}

func (e *Engine) loadAll(ids [][32]byte, keep func(*Order) bool) ([]*Order, error) {
	out := make([]*Order, 0, len(ids))
	for _, id := range ids {
		order, ok, err := e.loadOrder(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if keep != nil && !keep(order) {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}
