package trade

import (
	"bytes"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"gridledger/core/events"
	"gridledger/core/state"
	"gridledger/crypto"
	"gridledger/storage"
)

type fakeLedger struct {
	balances map[crypto.Address]uint64
	fail     error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[crypto.Address]uint64)}
}

func (l *fakeLedger) Balance(acct crypto.Address) (*uint256.Int, error) {
	return uint256.NewInt(l.balances[acct]), nil
}

func (l *fakeLedger) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	if l.fail != nil {
		return l.fail
	}
	if l.balances[from] < amount.Uint64() {
		return errors.New("insufficient")
	}
	l.balances[from] -= amount.Uint64()
	l.balances[to] += amount.Uint64()
	return nil
}

type fixture struct {
	engine *Engine
	ledger *fakeLedger
	rec    *events.Recorder
	now    uint64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{engine: NewEngine(), ledger: newFakeLedger(), rec: &events.Recorder{}, now: 1000}
	f.engine.SetState(state.NewManager(storage.NewMemDB()))
	f.engine.SetLedger(f.ledger)
	f.engine.SetEmitter(f.rec)
	f.engine.SetNowFunc(func() uint64 { return f.now })
	return f
}

var (
	seller = crypto.Address{0x01}
	buyer  = crypto.Address{0x02}
)

func (f *fixture) ask(t *testing.T, energy, price uint64, loc string) [32]byte {
	t.Helper()
	id, err := f.engine.CreateAsk(seller, energy, uint256.NewInt(price), []byte(loc))
	if err != nil {
		t.Fatalf("create ask: %v", err)
	}
	return id
}

func (f *fixture) bid(t *testing.T, energy, price uint64, loc string) [32]byte {
	t.Helper()
	id, err := f.engine.CreateBid(buyer, energy, uint256.NewInt(price), []byte(loc))
	if err != nil {
		t.Fatalf("create bid: %v", err)
	}
	return id
}

func (f *fixture) status(t *testing.T, id [32]byte) OrderStatus {
	t.Helper()
	order, err := f.engine.Order(id)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	return order.Status
}

func TestMatchUsesAskTotal(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances[buyer] = 5000
	askID := f.ask(t, 100, 10, "X")
	bidID := f.bid(t, 100, 12, "X")

	f.now = 1005
	if err := f.engine.MatchOrders(askID, bidID); err != nil {
		t.Fatalf("match: %v", err)
	}
	ask, _ := f.engine.Order(askID)
	bid, _ := f.engine.Order(bidID)
	if ask.Status != StatusMatched || bid.Status != StatusMatched {
		t.Fatalf("orders not matched: %v %v", ask.Status, bid.Status)
	}
	if ask.Counterparty == nil || *ask.Counterparty != buyer || bid.Counterparty == nil || *bid.Counterparty != seller {
		t.Fatalf("counterparties not cross-set")
	}
	if ask.MatchedAt == nil || *ask.MatchedAt != 1005 {
		t.Fatalf("matched_at not recorded")
	}
	evts := f.rec.Events()
	last := evts[len(evts)-1]
	if last.Type != EventTypeOrdersMatched || last.Attributes["total"] != "1000" {
		t.Fatalf("unexpected match event %+v", last)
	}
}

func TestMatchRejectsAmountMismatch(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances[buyer] = 5000
	askID := f.ask(t, 100, 10, "X")
	bidID := f.bid(t, 50, 12, "X")
	if err := f.engine.MatchOrders(askID, bidID); !errors.Is(err, ErrOrderMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if f.status(t, askID) != StatusOpen || f.status(t, bidID) != StatusOpen {
		t.Fatalf("orders must remain open")
	}
}

func TestMatchRejectsPriceAndOrientation(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances[buyer] = 5000
	askID := f.ask(t, 10, 20, "X")
	bidID := f.bid(t, 10, 15, "X")
	if err := f.engine.MatchOrders(askID, bidID); !errors.Is(err, ErrOrderMismatch) {
		t.Fatalf("expected price mismatch, got %v", err)
	}
	if err := f.engine.MatchOrders(bidID, askID); !errors.Is(err, ErrOrderMismatch) {
		t.Fatalf("expected orientation mismatch, got %v", err)
	}
	if err := f.engine.MatchOrders(askID, [32]byte{9}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine.CreateAsk(seller, 0, uint256.NewInt(1), nil); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := f.engine.CreateAsk(seller, 1, uint256.NewInt(0), nil); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got %v", err)
	}
	huge := new(uint256.Int).SetAllOne()
	if _, err := f.engine.CreateAsk(seller, 2, huge, nil); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected overflow to surface as invalid price, got %v", err)
	}
	if _, err := f.engine.CreateBid(buyer, 10, uint256.NewInt(10), nil); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestOrderIDStableAndCollisionRejected(t *testing.T) {
	f := newFixture(t)
	price := uint256.NewInt(7)
	total := uint256.NewInt(70)
	a := OrderID(OrderAsk, seller, 10, price, total, []byte("X"), 1000)
	b := OrderID(OrderAsk, seller, 10, price, total, []byte("X"), 1000)
	c := OrderID(OrderBid, seller, 10, price, total, []byte("X"), 1000)
	if a != b || a == c {
		t.Fatalf("order id must be stable and type sensitive")
	}
	id := f.ask(t, 10, 7, "X")
	if id != a {
		t.Fatalf("engine id differs from OrderID")
	}
	if _, err := f.engine.CreateAsk(seller, 10, price, []byte("X")); !errors.Is(err, ErrOrderExists) {
		t.Fatalf("expected collision, got %v", err)
	}
}

func TestVerifyAndCompleteTrade(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances[buyer] = 1000
	askID := f.ask(t, 100, 10, "X")
	bidID := f.bid(t, 100, 10, "X")

	if err := f.engine.CompleteTrade(askID); !errors.Is(err, ErrInvalidOrderStatus) {
		t.Fatalf("expected invalid status before verification, got %v", err)
	}
	if err := f.engine.VerifyTransfer(askID, []byte("evidence")); !errors.Is(err, ErrInvalidOrderStatus) {
		t.Fatalf("open order cannot be verified, got %v", err)
	}
	if err := f.engine.MatchOrders(askID, bidID); err != nil {
		t.Fatalf("match: %v", err)
	}
	if err := f.engine.VerifyTransfer(askID, []byte("evidence")); err != nil {
		t.Fatalf("verify: %v", err)
	}
	order, _ := f.engine.Order(askID)
	if order.Status != StatusInTransfer || order.VerificationHash == nil {
		t.Fatalf("order not in transfer: %+v", order)
	}
	if bytes.Equal(order.VerificationHash[:], make([]byte, 32)) {
		t.Fatalf("verification hash must be set")
	}

	f.now = 2000
	if err := f.engine.CompleteTrade(askID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if f.ledger.balances[buyer] != 0 || f.ledger.balances[seller] != 1000 {
		t.Fatalf("unexpected balances %v", f.ledger.balances)
	}
	order, _ = f.engine.Order(askID)
	if order.Status != StatusCompleted || order.CompletedAt == nil || *order.CompletedAt != 2000 {
		t.Fatalf("order not completed: %+v", order)
	}
}

func TestCompleteTradeLedgerFailureLeavesOrder(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances[buyer] = 1000
	askID := f.ask(t, 100, 10, "X")
	bidID := f.bid(t, 100, 10, "X")
	_ = f.engine.MatchOrders(askID, bidID)
	_ = f.engine.VerifyTransfer(askID, []byte("e"))
	f.ledger.fail = errors.New("ledger down")
	if err := f.engine.CompleteTrade(askID); err == nil {
		t.Fatalf("expected ledger error")
	}
	if f.status(t, askID) != StatusInTransfer {
		t.Fatalf("order must stay in transfer after ledger failure")
	}
}

func TestCompleteTradeRequiresVerificationHash(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances[buyer] = 20
	askID := f.ask(t, 10, 2, "A")
	bidID := f.bid(t, 10, 2, "A")
	if err := f.engine.MatchOrders(askID, bidID); err != nil {
		t.Fatalf("match: %v", err)
	}
	order, err := f.engine.Order(askID)
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	order.Status = StatusInTransfer
	order.VerificationHash = nil
	if err := f.engine.storeOrder(order); err != nil {
		t.Fatalf("store: %v", err)
	}

	if err := f.engine.CompleteTrade(askID); !errors.Is(err, ErrTransferVerificationFailed) {
		t.Fatalf("expected verification failure, got %v", err)
	}
	if got := f.status(t, askID); got != StatusInTransfer {
		t.Fatalf("order advanced to %s", got)
	}
	if f.ledger.balances[buyer] != 20 || f.ledger.balances[seller] != 0 {
		t.Fatalf("ledger moved funds: %v", f.ledger.balances)
	}
}

func TestCancelAndFail(t *testing.T) {
	f := newFixture(t)
	askID := f.ask(t, 5, 1, "X")
	if err := f.engine.CancelOrder(buyer, askID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := f.engine.CancelOrder(seller, askID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.engine.CancelOrder(seller, askID); !errors.Is(err, ErrInvalidOrderStatus) {
		t.Fatalf("cancelled order cannot be cancelled again, got %v", err)
	}
	if err := f.engine.FailOrder(seller, askID, "meter offline"); !errors.Is(err, ErrInvalidOrderStatus) {
		t.Fatalf("terminal order cannot fail, got %v", err)
	}

	f.now++
	other := f.ask(t, 5, 1, "X")
	if err := f.engine.FailOrder(seller, other, "meter offline"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	evts := f.rec.Events()
	last := evts[len(evts)-1]
	if last.Type != EventTypeOrderFailed || last.Attributes["reason"] != "meter offline" {
		t.Fatalf("unexpected event %+v", last)
	}
}

func TestStatusTransitions(t *testing.T) {
	legal := map[OrderStatus][]OrderStatus{
		StatusOpen:       {StatusMatched, StatusCancelled, StatusFailed},
		StatusMatched:    {StatusInTransfer, StatusFailed},
		StatusInTransfer: {StatusCompleted, StatusFailed},
	}
	all := []OrderStatus{StatusOpen, StatusMatched, StatusInTransfer, StatusCompleted, StatusCancelled, StatusFailed}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range legal[from] {
				if ok == to {
					want = true
				}
			}
			if got := from.CanTransition(to); got != want {
				t.Fatalf("%s -> %s: got %v want %v", from, to, got, want)
			}
		}
		if terminal := len(legal[from]) == 0; from.Terminal() != terminal {
			t.Fatalf("%s: terminal = %v, want %v", from, from.Terminal(), terminal)
		}
	}
}

func TestOpenOrdersScanOrder(t *testing.T) {
	f := newFixture(t)
	first := f.ask(t, 10, 1, "A")
	f.now++
	second := f.ask(t, 10, 2, "B")
	f.now++
	third := f.ask(t, 10, 3, "C")
	_ = f.engine.CancelOrder(seller, second)

	open, err := f.engine.OpenOrders()
	if err != nil {
		t.Fatalf("open orders: %v", err)
	}
	if len(open) != 2 || open[0].ID != first || open[1].ID != third {
		t.Fatalf("unexpected scan order")
	}
	mine, err := f.engine.OrdersByAccount(seller)
	if err != nil {
		t.Fatalf("orders by account: %v", err)
	}
	if len(mine) != 3 {
		t.Fatalf("expected 3 orders for seller, got %d", len(mine))
	}
}
