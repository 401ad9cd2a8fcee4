package settlement

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"gridledger/core/events"
	"gridledger/core/state"
	"gridledger/crypto"
	"gridledger/native/trade"
	"gridledger/storage"
)

type fakeOrders map[[32]byte]*trade.Order

func (f fakeOrders) Order(id [32]byte) (*trade.Order, error) {
	if o, ok := f[id]; ok {
		return o.Clone(), nil
	}
	return nil, trade.ErrOrderNotFound
}

type recordingLedger struct {
	moves []string
	err   error
}

func (l *recordingLedger) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	if l.err != nil {
		return l.err
	}
	l.moves = append(l.moves, from.String()+">"+to.String()+":"+amount.Dec())
	return nil
}

var (
	seller  = crypto.Address{0x11}
	buyer   = crypto.Address{0x22}
	orderID = [32]byte{0x01}
)

func newTestEngine(t *testing.T) (*Engine, fakeOrders, *recordingLedger, *events.Recorder) {
	t.Helper()
	orders := fakeOrders{orderID: {
		ID:           orderID,
		Type:         trade.OrderAsk,
		Creator:      seller,
		EnergyAmount: 100,
		PricePerUnit: uint256.NewInt(10),
		TotalPrice:   uint256.NewInt(1000),
	}}
	ledger := &recordingLedger{}
	engine := NewEngine()
	engine.SetState(state.NewManager(storage.NewMemDB()))
	engine.SetOrderReader(orders)
	engine.SetLedger(ledger)
	rec := &events.Recorder{}
	engine.SetEmitter(rec)
	engine.SetNowFunc(func() uint64 { return 77 })
	return engine, orders, ledger, rec
}

func TestNativePaymentSettlesSnapshot(t *testing.T) {
	engine, orders, ledger, _ := newTestEngine(t)
	if _, err := engine.CreatePayment(buyer, [32]byte{0x09}, MethodNative, nil); !errors.Is(err, trade.ErrOrderNotFound) {
		t.Fatalf("expected order not found, got %v", err)
	}
	id, err := engine.CreatePayment(buyer, orderID, MethodNative, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.CreatePayment(buyer, orderID, MethodNative, nil); !errors.Is(err, ErrPaymentExists) {
		t.Fatalf("expected duplicate payment, got %v", err)
	}
	orders[orderID].TotalPrice = uint256.NewInt(5)

	if err := engine.ProcessNativePayment(id); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(ledger.moves) != 1 || ledger.moves[0] != buyer.String()+">"+seller.String()+":1000" {
		t.Fatalf("unexpected ledger moves %v", ledger.moves)
	}
	payment, _ := engine.Payment(id)
	if payment.Status != PaymentCompleted {
		t.Fatalf("payment not completed: %s", payment.Status)
	}
	if err := engine.ProcessNativePayment(id); !errors.Is(err, ErrInvalidPaymentStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestMethodMismatch(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	native, _ := engine.CreatePayment(buyer, orderID, MethodNative, nil)
	fiat, _ := engine.CreatePayment(buyer, orderID, MethodFiat, []byte("wire-1"))
	if err := engine.ProcessExternalPayment(native, []byte("proof")); !errors.Is(err, ErrPaymentMethodNotSupported) {
		t.Fatalf("expected unsupported method, got %v", err)
	}
	if err := engine.ProcessNativePayment(fiat); !errors.Is(err, ErrPaymentMethodNotSupported) {
		t.Fatalf("expected unsupported method, got %v", err)
	}
	if err := engine.ProcessNativePayment([32]byte{0x42}); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExternalPaymentProof(t *testing.T) {
	engine, _, _, rec := newTestEngine(t)
	ok, _ := engine.CreatePayment(buyer, orderID, MethodStablecoin, nil)
	bad, _ := engine.CreatePayment(buyer, orderID, MethodExternalToken, nil)

	if err := engine.ProcessExternalPayment(ok, []byte("tx:0xabc")); err != nil {
		t.Fatalf("process external: %v", err)
	}
	if p, _ := engine.Payment(ok); p.Status != PaymentCompleted {
		t.Fatalf("expected completed, got %s", p.Status)
	}
	rec.Reset()
	if err := engine.ProcessExternalPayment(bad, nil); !errors.Is(err, ErrExternalPaymentFailed) {
		t.Fatalf("expected external failure, got %v", err)
	}
	evts := rec.Events()
	if len(evts) != 1 || evts[0].Type != EventTypePaymentFailed {
		t.Fatalf("expected failure event, got %+v", evts)
	}
}

func TestPaymentIDIncludesReference(t *testing.T) {
	amount := uint256.NewInt(1)
	a := PaymentID(orderID, buyer, seller, amount, MethodFiat, nil, false, 1)
	b := PaymentID(orderID, buyer, seller, amount, MethodFiat, []byte{}, true, 1)
	if a == b {
		t.Fatalf("absent and empty references must hash differently")
	}
}

func TestExchangeRates(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	if _, err := engine.ConvertAmount(uint256.NewInt(5), "USD", "GRID"); !errors.Is(err, ErrExchangeRateNotFound) {
		t.Fatalf("expected missing rate, got %v", err)
	}
	if err := engine.UpdateExchangeRate("USD", "GRID", uint256.NewInt(3)); err != nil {
		t.Fatalf("update rate: %v", err)
	}
	got, err := engine.ConvertAmount(uint256.NewInt(5), "USD", "GRID")
	if err != nil || got.Uint64() != 15 {
		t.Fatalf("convert = %v, %v", got, err)
	}
	if _, err := engine.ConvertAmount(uint256.NewInt(5), "GRID", "USD"); !errors.Is(err, ErrExchangeRateNotFound) {
		t.Fatalf("pairs are ordered, got %v", err)
	}
	_ = engine.UpdateExchangeRate("A", "B", new(uint256.Int).SetAllOne())
	saturated, _ := engine.ConvertAmount(uint256.NewInt(2), "A", "B")
	if !saturated.Eq(new(uint256.Int).SetAllOne()) {
		t.Fatalf("conversion must saturate")
	}
	rate, err := engine.ExchangeRate("USD", "GRID")
	if err != nil || rate.Timestamp != 77 {
		t.Fatalf("unexpected rate %+v %v", rate, err)
	}
}
