// Package settlement records payments for orders and settles them either on
// the token ledger or against external proof.
package settlement

import (
	"github.com/holiman/uint256"

	"gridledger/core/events"
	"gridledger/crypto"
	"gridledger/native/common"
	"gridledger/native/trade"
)

type Ledger interface {
	Transfer(from, to crypto.Address, amount *uint256.Int) error
}

type OrderReader interface {
	Order(id [32]byte) (*trade.Order, error)
}

type Engine struct {
	state    kvStore
	ledger   Ledger
	orders   OrderReader
	verifier ProofVerifier
	emitter  events.Emitter
	nowFn    func() uint64
}

func NewEngine() *Engine {
	return &Engine{
		verifier: NonEmptyProof{},
		emitter:  events.NoopEmitter{},
		nowFn:    func() uint64 { return 0 },
	}
}

func (e *Engine) SetState(state kvStore) { e.state = state }

func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

func (e *Engine) SetOrderReader(orders OrderReader) { e.orders = orders }

// SetProofVerifier replaces the external proof check. nil restores the
// non-empty stub.
func (e *Engine) SetProofVerifier(v ProofVerifier) {
	if v == nil {
		v = NonEmptyProof{}
	}
	e.verifier = v
}

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

// PaymentID derives a payment identifier from its creation fields.
func PaymentID(orderID [32]byte, payer, payee crypto.Address, amount *uint256.Int, method PaymentMethod, ref []byte, hasRef bool, timestamp uint64) [32]byte {
	return common.NewEncoder().
		Fixed(orderID[:]).
		Fixed(payer[:]).
		Fixed(payee[:]).
		Uint256(amount).
		Uint8(uint8(method)).
		OptionalBytes(ref, hasRef).
		Uint64(timestamp).
		Sum()
}

// CreatePayment records a pending payment from caller to the order's creator
// for the order's current total price. A nil ref means no external reference.
func (e *Engine) CreatePayment(caller crypto.Address, orderID [32]byte, method PaymentMethod, ref []byte) ([32]byte, error) {
	var id [32]byte
	if !method.Valid() {
		return id, ErrInvalidMethod
	}
	if e.orders == nil {
		return id, errNilOrders
	}
	order, err := e.orders.Order(orderID)
	if err != nil {
		return id, err
	}
	now := e.nowFn()
	hasRef := ref != nil
	id = PaymentID(orderID, caller, order.Creator, order.TotalPrice, method, ref, hasRef, now)
	_, exists, err := e.loadPayment(id)
	if err != nil {
		return id, err
	}
	if exists {
		return id, ErrPaymentExists
	}
	payment := &Payment{
		ID:          id,
		OrderID:     orderID,
		Payer:       caller,
		Payee:       order.Creator,
		Amount:      order.TotalPrice.Clone(),
		Method:      method,
		Status:      PaymentPending,
		ExternalRef: append([]byte(nil), ref...),
		HasRef:      hasRef,
		Timestamp:   now,
	}
	if err := e.storePayment(payment); err != nil {
		return id, err
	}
	e.emit(newPaymentEvent(EventTypePaymentCreated, payment))
	return id, nil
}

func (e *Engine) pendingPayment(id [32]byte) (*Payment, error) {
	payment, ok, err := e.loadPayment(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != PaymentPending {
		return nil, ErrInvalidPaymentStatus
	}
	return payment, nil
}

// ProcessNativePayment settles a pending native payment on the token ledger.
func (e *Engine) ProcessNativePayment(id [32]byte) error {
	payment, err := e.pendingPayment(id)
	if err != nil {
		return err
	}
	if payment.Method != MethodNative {
		return ErrPaymentMethodNotSupported
	}
	if e.ledger == nil {
		return errNilLedger
	}
	if err := e.ledger.Transfer(payment.Payer, payment.Payee, payment.Amount); err != nil {
		return err
	}
	payment.Status = PaymentCompleted
	if err := e.storePayment(payment); err != nil {
		return err
	}
	e.emit(newPaymentEvent(EventTypePaymentCompleted, payment))
	return nil
}

// ProcessExternalPayment settles an off-ledger payment against proof. A
// rejected proof marks the payment failed and returns
// ErrExternalPaymentFailed; the processor discards that write along with the
// rest of the transition.
func (e *Engine) ProcessExternalPayment(id [32]byte, proof []byte) error {
	payment, err := e.pendingPayment(id)
	if err != nil {
		return err
	}
	if !payment.Method.External() {
		return ErrPaymentMethodNotSupported
	}
	if !e.verifier.Verify(payment, proof) {
		payment.Status = PaymentFailed
		if err := e.storePayment(payment); err != nil {
			return err
		}
		e.emit(newPaymentEvent(EventTypePaymentFailed, payment))
		return ErrExternalPaymentFailed
	}
	payment.Status = PaymentCompleted
	if err := e.storePayment(payment); err != nil {
		return err
	}
	e.emit(newPaymentEvent(EventTypePaymentCompleted, payment))
	return nil
}

// UpdateExchangeRate stores the rate for the ordered pair. The rate is not
// validated.
func (e *Engine) UpdateExchangeRate(from, to string, rate *uint256.Int) error {
	if e.state == nil {
		return errNilState
	}
	if rate == nil {
		rate = new(uint256.Int)
	}
	record := &ExchangeRate{From: from, To: to, Rate: rate.Clone(), Timestamp: e.nowFn()}
	if err := e.storeRate(record); err != nil {
		return err
	}
	e.emit(newRateEvent(record))
	return nil
}

// ConvertAmount multiplies amount by the stored rate for (from, to),
// saturating at the maximum value.
func (e *Engine) ConvertAmount(amount *uint256.Int, from, to string) (*uint256.Int, error) {
	rate, ok, err := e.loadRate(from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrExchangeRateNotFound
	}
	if amount == nil {
		amount = new(uint256.Int)
	}
	out, overflow := new(uint256.Int).MulOverflow(amount, rate.Rate)
	if overflow {
		out.SetAllOne()
	}
	return out, nil
}

func (e *Engine) Payment(id [32]byte) (*Payment, error) {
	payment, ok, err := e.loadPayment(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (e *Engine) ExchangeRate(from, to string) (*ExchangeRate, error) {
	rate, ok, err := e.loadRate(from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrExchangeRateNotFound
	}
	return rate, nil
}
