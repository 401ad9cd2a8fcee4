package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gridledger/core/types"
	"gridledger/crypto"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	ix, err := Open("sqlite", dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func receipt(seq uint64, caller crypto.Address, op types.Op, evts ...types.Event) *types.Receipt {
	return &types.Receipt{Seq: seq, Timestamp: 1000 + seq, Caller: caller, Op: op, Events: evts}
}

func TestRecordAndQuery(t *testing.T) {
	ix := newTestIndexer(t)
	ctx := context.Background()
	alice, bob := crypto.Address{1}, crypto.Address{2}

	require.NoError(t, ix.Record(ctx, receipt(1, alice, types.OpMint,
		types.Event{Type: "token.minted", Attributes: map[string]string{"amount": "5"}})))
	require.NoError(t, ix.Record(ctx, receipt(2, bob, types.OpCreateAsk,
		types.Event{Type: "trade.ask_created", Attributes: map[string]string{"orderId": "0xabc"}})))
	require.NoError(t, ix.Record(ctx, receipt(3, alice, types.OpMatchOrders,
		types.Event{Type: "trade.orders_matched", Attributes: map[string]string{"askId": "0xabc"}},
		types.Event{Type: "trade.order_completed", Attributes: map[string]string{"orderId": "0xabc"}})))

	all, err := ix.Transitions(ctx, TransitionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, uint64(3), all[0].Seq)

	mine, err := ix.Transitions(ctx, TransitionFilter{Caller: alice.String()})
	require.NoError(t, err)
	require.Len(t, mine, 2)

	page, err := ix.Transitions(ctx, TransitionFilter{Before: 3, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, uint64(2), page[0].Seq)

	evts, err := ix.Events(ctx, EventFilter{OrderID: "0xabc"})
	require.NoError(t, err)
	require.Len(t, evts, 2)
	require.Equal(t, "trade.order_completed", evts[0].Type)
	require.Equal(t, 1, evts[0].Position)

	minted, err := ix.Events(ctx, EventFilter{Type: "token.minted"})
	require.NoError(t, err)
	require.Len(t, minted, 1)
	require.Equal(t, "5", minted[0].Attributes["amount"])

	last, err := ix.LastSeq(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), last)
}

func TestRecordIsIdempotent(t *testing.T) {
	ix := newTestIndexer(t)
	ctx := context.Background()
	r := receipt(7, crypto.Address{9}, types.OpTransfer, types.Event{Type: "token.transferred", Attributes: map[string]string{}})
	require.NoError(t, ix.Record(ctx, r))
	require.NoError(t, ix.Record(ctx, r))

	evts, err := ix.Events(ctx, EventFilter{})
	require.NoError(t, err)
	require.Len(t, evts, 1)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "x", nil)
	require.Error(t, err)
}
