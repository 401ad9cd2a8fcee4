package core

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	coreerrors "gridledger/core/errors"
	"gridledger/core/types"
	"gridledger/crypto"
	"gridledger/native/common"
	"gridledger/native/delivery"
	"gridledger/native/pricing"
	"gridledger/native/settlement"
	"gridledger/native/token"
	"gridledger/native/trade"
	"gridledger/storage"
)

var (
	alice = crypto.Address{0xa1}
	bob   = crypto.Address{0xb2}
	carol = crypto.Address{0xc3}
)

type harness struct {
	t   *testing.T
	db  storage.Database
	seq *Sequencer
	now time.Time
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{t: t, db: storage.NewMemDB(), now: time.Unix(1_700_000_000, 0)}
	proc := NewProcessor(h.db, cfg, nil)
	seq, err := NewSequencer(proc, func() time.Time { return h.now })
	require.NoError(t, err)
	h.seq = seq
	return h
}

func (h *harness) submit(caller crypto.Address, op types.Op, payload interface{}) (*types.Receipt, error) {
	h.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(h.t, err)
	h.now = h.now.Add(time.Second)
	return h.seq.Submit(context.Background(), caller, op, raw)
}

func (h *harness) mustSubmit(caller crypto.Address, op types.Op, payload interface{}) *types.Receipt {
	h.t.Helper()
	receipt, err := h.submit(caller, op, payload)
	require.NoError(h.t, err, "op %s", op)
	return receipt
}

func (h *harness) balance(acct crypto.Address) uint64 {
	h.t.Helper()
	var out uint64
	require.NoError(h.t, h.seq.View(func(q *Query) error {
		bal, err := q.Balance(acct)
		if err != nil {
			return err
		}
		out = bal.Uint64()
		return nil
	}))
	return out
}

func (h *harness) order(id types.Hash) *trade.Order {
	h.t.Helper()
	var out *trade.Order
	require.NoError(h.t, h.seq.View(func(q *Query) error {
		o, err := q.Order(id)
		out = o
		return err
	}))
	return out
}

func eventID(t *testing.T, r *types.Receipt, eventType, attr string) types.Hash {
	t.Helper()
	for _, evt := range r.Events {
		if evt.Type != eventType {
			continue
		}
		id, err := types.ParseHash(evt.Attributes[attr])
		require.NoError(t, err)
		return id
	}
	t.Fatalf("event %s not found in %+v", eventType, r.Events)
	return types.Hash{}
}

func (h *harness) createOrder(caller crypto.Address, op types.Op, energy uint64, price, location string) types.Hash {
	h.t.Helper()
	r := h.mustSubmit(caller, op, types.CreateOrderPayload{EnergyAmount: energy, PricePerUnit: price, Location: location})
	kind := trade.EventTypeAskCreated
	if op == types.OpCreateBid {
		kind = trade.EventTypeBidCreated
	}
	return eventID(h.t, r, kind, "orderId")
}

func TestLedgerTransfers(t *testing.T) {
	h := newHarness(t, Config{})
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: alice, Amount: "100"})
	r := h.mustSubmit(alice, types.OpTransfer, types.TransferPayload{To: bob, Amount: "50"})
	require.Len(t, r.Events, 1)
	require.Equal(t, token.EventTypeTransferred, r.Events[0].Type)
	require.Equal(t, uint64(50), h.balance(alice))
	require.Equal(t, uint64(50), h.balance(bob))

	_, err := h.submit(alice, types.OpTransfer, types.TransferPayload{To: bob, Amount: "60"})
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	require.Equal(t, uint64(50), h.balance(alice))
	require.Equal(t, uint64(50), h.balance(bob))
	require.Equal(t, uint64(2), h.seq.Height())
}

func TestMatchUsesAskTotal(t *testing.T) {
	h := newHarness(t, Config{})
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: bob, Amount: "1200"})
	ask := h.createOrder(alice, types.OpCreateAsk, 100, "10", "X")
	bid := h.createOrder(bob, types.OpCreateBid, 100, "12", "X")

	r := h.mustSubmit(carol, types.OpMatchOrders, types.MatchOrdersPayload{AskID: ask, BidID: bid})
	require.Equal(t, "1000", r.Events[0].Attributes["total"])
	require.Equal(t, trade.StatusMatched, h.order(ask).Status)
	require.Equal(t, trade.StatusMatched, h.order(bid).Status)
	require.Equal(t, uint64(1000), h.order(ask).TotalPrice.Uint64())
}

func TestMatchAmountMismatch(t *testing.T) {
	h := newHarness(t, Config{})
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: bob, Amount: "1000"})
	ask := h.createOrder(alice, types.OpCreateAsk, 100, "10", "X")
	bid := h.createOrder(bob, types.OpCreateBid, 50, "10", "X")

	_, err := h.submit(carol, types.OpMatchOrders, types.MatchOrdersPayload{AskID: ask, BidID: bid})
	require.ErrorIs(t, err, trade.ErrOrderMismatch)
	require.Equal(t, trade.StatusOpen, h.order(ask).Status)
	require.Equal(t, trade.StatusOpen, h.order(bid).Status)
}

func measurement(energy uint64) types.MeasurementPayload {
	return types.MeasurementPayload{DeviceID: "meter-1", Timestamp: 1, EnergyAmount: energy, GridFrequency: 50000, Voltage: 230}
}

func matchedPair(h *harness) (ask, bid types.Hash) {
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: bob, Amount: "1500"})
	ask = h.createOrder(alice, types.OpCreateAsk, 100, "10", "X")
	bid = h.createOrder(bob, types.OpCreateBid, 100, "12", "X")
	h.mustSubmit(carol, types.OpMatchOrders, types.MatchOrdersPayload{AskID: ask, BidID: bid})
	return ask, bid
}

func TestFullLifecycle(t *testing.T) {
	h := newHarness(t, Config{})
	ask, _ := matchedPair(h)

	h.mustSubmit(alice, types.OpStartTransfer, types.StartTransferPayload{OrderID: ask, StartTime: 10})
	h.mustSubmit(alice, types.OpRecordMeasurement, types.RecordMeasurementPayload{OrderID: ask, Measurement: measurement(40)})
	r := h.mustSubmit(alice, types.OpCompleteTransfer, types.CompleteTransferPayload{OrderID: ask, EndTime: 20, Measurement: measurement(100)})

	kinds := make([]string, 0, len(r.Events))
	for _, evt := range r.Events {
		kinds = append(kinds, evt.Type)
	}
	require.Equal(t, []string{trade.EventTypeTransferVerified, delivery.EventTypeTransferCompleted}, kinds)

	order := h.order(ask)
	require.Equal(t, trade.StatusInTransfer, order.Status)
	require.NotNil(t, order.VerificationHash)
	require.NotEqual(t, [32]byte{}, *order.VerificationHash)

	require.NoError(t, h.seq.View(func(q *Query) error {
		tr, err := q.Transfer(ask)
		require.NoError(t, err)
		require.Equal(t, delivery.TransferCompleted, tr.Status)
		require.Equal(t, uint64(100), tr.EnergyDelivered)
		ms, err := q.Measurements(ask)
		require.NoError(t, err)
		require.Len(t, ms, 2)
		return nil
	}))

	h.mustSubmit(alice, types.OpCompleteTrade, types.OrderPayload{OrderID: ask})
	require.Equal(t, trade.StatusCompleted, h.order(ask).Status)
	require.Equal(t, uint64(1000), h.balance(alice))
	require.Equal(t, uint64(500), h.balance(bob))
}

func TestCompleteTransferRollsBackWhenOrderNotMatched(t *testing.T) {
	h := newHarness(t, Config{})
	ask := h.createOrder(alice, types.OpCreateAsk, 100, "10", "X")
	h.mustSubmit(alice, types.OpStartTransfer, types.StartTransferPayload{OrderID: ask, StartTime: 10})
	height := h.seq.Height()

	_, err := h.submit(alice, types.OpCompleteTransfer, types.CompleteTransferPayload{OrderID: ask, EndTime: 20, Measurement: measurement(100)})
	require.ErrorIs(t, err, trade.ErrInvalidOrderStatus)
	require.Equal(t, height, h.seq.Height())

	require.NoError(t, h.seq.View(func(q *Query) error {
		tr, err := q.Transfer(ask)
		require.NoError(t, err)
		require.Equal(t, delivery.TransferInProgress, tr.Status)
		require.Nil(t, tr.EndTime)
		ms, err := q.Measurements(ask)
		require.NoError(t, err)
		require.Empty(t, ms)
		return nil
	}))
}

func TestOptimalPrice(t *testing.T) {
	h := newHarness(t, Config{})
	h.mustSubmit(carol, types.OpUpdateMarketData, types.UpdateMarketDataPayload{Location: "X", Price: "100", Volume: 5})
	h.mustSubmit(carol, types.OpUpdateMarketData, types.UpdateMarketDataPayload{Location: "X", Price: "150", Volume: 5})
	h.mustSubmit(carol, types.OpUpdateGridMetrics, types.UpdateGridMetricsPayload{Location: "X", CongestionLevel: 20, LossFactor: 10, StabilityIndex: 90})

	require.NoError(t, h.seq.View(func(q *Query) error {
		price, err := q.CalculateOptimalPrice([]byte("X"), uint256.NewInt(100))
		require.NoError(t, err)
		require.Equal(t, uint64(132), price.Uint64())

		_, err = q.CalculateOptimalPrice([]byte("X"), uint256.NewInt(50))
		require.ErrorIs(t, err, pricing.ErrPriceOutOfRange)

		md, err := q.MarketData([]byte("X"))
		require.NoError(t, err)
		require.Equal(t, uint64(10), md.DailyVolume.Uint64())
		return nil
	}))
}

func TestSuggestMatchEmitsBestCandidate(t *testing.T) {
	h := newHarness(t, Config{})
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: bob, Amount: "5000"})
	h.mustSubmit(carol, types.OpUpdateMarketData, types.UpdateMarketDataPayload{Location: "X", Price: "10", Volume: 1})
	h.mustSubmit(carol, types.OpUpdateGridMetrics, types.UpdateGridMetricsPayload{Location: "X", CongestionLevel: 10, LossFactor: 10, StabilityIndex: 90})
	h.mustSubmit(carol, types.OpUpdateGridMetrics, types.UpdateGridMetricsPayload{Location: "Y", CongestionLevel: 90, LossFactor: 90, StabilityIndex: 10})
	bid := h.createOrder(bob, types.OpCreateBid, 100, "12", "X")
	near := h.createOrder(alice, types.OpCreateAsk, 100, "10", "X")
	h.createOrder(carol, types.OpCreateAsk, 100, "10", "Y")

	r := h.mustSubmit(bob, types.OpSuggestMatch, types.OrderPayload{OrderID: bid})
	require.Len(t, r.Events, 1)
	require.Equal(t, pricing.EventTypeOptimalMatchFound, r.Events[0].Type)

	require.NoError(t, h.seq.View(func(q *Query) error {
		match, err := q.FindOptimalMatch(bid)
		require.NoError(t, err)
		require.Equal(t, [32]byte(near), match.OrderID)
		return nil
	}))
}

func TestExternalPaymentFailureIsNotPersisted(t *testing.T) {
	h := newHarness(t, Config{})
	ask := h.createOrder(alice, types.OpCreateAsk, 10, "3", "X")
	r := h.mustSubmit(bob, types.OpCreatePayment, types.CreatePaymentPayload{OrderID: ask, Method: "fiat", ExternalRef: "wire-42"})
	pid := eventID(t, r, settlement.EventTypePaymentCreated, "paymentId")

	_, err := h.submit(bob, types.OpProcessExternalPayment, types.ProcessExternalPaymentPayload{PaymentID: pid})
	require.ErrorIs(t, err, settlement.ErrExternalPaymentFailed)
	require.Equal(t, coreerrors.KindExternal, coreerrors.KindOf(err))

	require.NoError(t, h.seq.View(func(q *Query) error {
		p, err := q.Payment(pid)
		require.NoError(t, err)
		require.Equal(t, settlement.PaymentPending, p.Status)
		require.Equal(t, uint64(30), p.Amount.Uint64())
		return nil
	}))

	h.mustSubmit(bob, types.OpProcessExternalPayment, types.ProcessExternalPaymentPayload{PaymentID: pid, Proof: "receipt"})
	require.NoError(t, h.seq.View(func(q *Query) error {
		p, err := q.Payment(pid)
		require.NoError(t, err)
		require.Equal(t, settlement.PaymentCompleted, p.Status)
		return nil
	}))
}

func TestNativePaymentMovesTokens(t *testing.T) {
	h := newHarness(t, Config{})
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: bob, Amount: "100"})
	ask := h.createOrder(alice, types.OpCreateAsk, 10, "3", "X")
	r := h.mustSubmit(bob, types.OpCreatePayment, types.CreatePaymentPayload{OrderID: ask, Method: "native"})
	pid := eventID(t, r, settlement.EventTypePaymentCreated, "paymentId")
	h.mustSubmit(bob, types.OpProcessNativePayment, types.PaymentPayload{PaymentID: pid})
	require.Equal(t, uint64(30), h.balance(alice))
	require.Equal(t, uint64(70), h.balance(bob))

	_, err := h.submit(bob, types.OpProcessNativePayment, types.PaymentPayload{PaymentID: pid})
	require.ErrorIs(t, err, settlement.ErrInvalidPaymentStatus)
}

func TestSupplyIsConserved(t *testing.T) {
	h := newHarness(t, Config{})
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: alice, Amount: "700"})
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: bob, Amount: "300"})
	for i := 0; i < 5; i++ {
		h.mustSubmit(alice, types.OpTransfer, types.TransferPayload{To: bob, Amount: "20"})
		h.mustSubmit(bob, types.OpTransfer, types.TransferPayload{To: carol, Amount: "7"})
	}
	total := h.balance(alice) + h.balance(bob) + h.balance(carol)
	require.NoError(t, h.seq.View(func(q *Query) error {
		supply, err := q.TotalSupply()
		require.NoError(t, err)
		require.Equal(t, total, supply.Uint64())
		require.Equal(t, uint64(1000), supply.Uint64())
		return nil
	}))
}

func TestPausedModuleRejects(t *testing.T) {
	h := newHarness(t, Config{PausedModules: []string{"trade"}})
	_, err := h.submit(alice, types.OpCreateAsk, types.CreateOrderPayload{EnergyAmount: 1, PricePerUnit: "1", Location: "X"})
	require.ErrorIs(t, err, common.ErrModulePaused)
	require.Equal(t, uint64(0), h.seq.Height())
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: alice, Amount: "1"})
}

func TestBadPayloads(t *testing.T) {
	h := newHarness(t, Config{})
	_, err := h.seq.Submit(context.Background(), alice, types.OpMint, json.RawMessage(`{"account":"x","amount":"1"}`))
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = h.seq.Submit(context.Background(), alice, types.OpTransfer, json.RawMessage(`{"to":"`+bob.String()+`","amount":"1","memo":"x"}`))
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = h.seq.Submit(context.Background(), alice, types.OpTransfer, nil)
	require.ErrorIs(t, err, ErrInvalidPayload)

	_, err = h.seq.Submit(context.Background(), alice, types.Op("token.burn"), json.RawMessage(`{}`))
	require.ErrorIs(t, err, ErrUnknownOp)
	require.Equal(t, uint64(0), h.seq.Height())
}

func TestSequenceIsChecked(t *testing.T) {
	db := storage.NewMemDB()
	proc := NewProcessor(db, Config{}, nil)
	payload, _ := json.Marshal(types.MintPayload{Account: alice, Amount: "1"})
	_, err := proc.Apply(context.Background(), types.Transition{Seq: 2, Caller: alice, Op: types.OpMint, Payload: payload})
	require.ErrorIs(t, err, ErrBadSequence)

	receipt, err := proc.Apply(context.Background(), types.Transition{Seq: 1, Timestamp: 5, Caller: alice, Op: types.OpMint, Payload: payload})
	require.NoError(t, err)
	require.Equal(t, uint64(1), receipt.Seq)
	height, err := proc.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)

	// a second sequencer resumes at the committed height
	seq, err := NewSequencer(proc, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(1), seq.Height())
}

func TestTimestampsAreMonotonic(t *testing.T) {
	h := newHarness(t, Config{})
	var seen []uint64
	h.seq.OnCommit(func(r *types.Receipt) { seen = append(seen, r.Timestamp) })
	h.mustSubmit(carol, types.OpMint, types.MintPayload{Account: alice, Amount: "1"})
	h.now = h.now.Add(-time.Hour)
	raw, _ := json.Marshal(types.MintPayload{Account: alice, Amount: "1"})
	_, err := h.seq.Submit(context.Background(), carol, types.OpMint, raw)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	require.Equal(t, seen[0], seen[1])
}

func TestApplyLogsWithoutProof(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	proc := NewProcessor(storage.NewMemDB(), Config{}, logger)

	mint, err := json.Marshal(types.MintPayload{Account: alice, Amount: "5"})
	require.NoError(t, err)
	_, err = proc.Apply(context.Background(), types.Transition{Seq: 1, Timestamp: 10, Caller: carol, Op: types.OpMint, Payload: mint})
	require.NoError(t, err)

	var applied map[string]any
	require.NoError(t, json.Unmarshal(bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))[0], &applied))
	require.Equal(t, "transition applied", applied["msg"])
	// balance, supply and height
	require.EqualValues(t, 3, applied["writes"])

	buf.Reset()
	pay, err := json.Marshal(types.ProcessExternalPaymentPayload{PaymentID: types.Hash{9}, Proof: "bank-receipt-4411"})
	require.NoError(t, err)
	_, err = proc.Apply(context.Background(), types.Transition{Seq: 2, Timestamp: 11, Caller: carol, Op: types.OpProcessExternalPayment, Payload: pay})
	require.ErrorIs(t, err, settlement.ErrPaymentNotFound)
	require.Contains(t, buf.String(), "transition rejected")
	require.NotContains(t, buf.String(), "bank-receipt-4411")
}
