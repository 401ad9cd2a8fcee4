package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"gridledger/core"
	"gridledger/core/types"
	"gridledger/crypto"
	"gridledger/indexer"
	"gridledger/rpc/middleware"
	"gridledger/storage"
)

const testSecret = "test-secret"

var (
	seller = crypto.Address{0x51}
	buyer  = crypto.Address{0xb1}
)

type fixture struct {
	t      *testing.T
	srv    *httptest.Server
	seq    *core.Sequencer
	issuer string
}

func newFixture(t *testing.T, limit middleware.RateLimit) *fixture {
	t.Helper()
	proc := core.NewProcessor(storage.NewMemDB(), core.Config{}, nil)
	seq, err := core.NewSequencer(proc, nil)
	require.NoError(t, err)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	ix, err := indexer.Open("sqlite", dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	seq.OnCommit(ix.Hook())

	server := New(seq, ix, Config{
		Auth:      middleware.AuthConfig{HMACSecret: testSecret, Issuer: "gridledger"},
		RateLimit: limit,
	}, nil)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return &fixture{t: t, srv: srv, seq: seq, issuer: "gridledger"}
}

func (f *fixture) token(caller crypto.Address) string {
	f.t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": caller.String(),
		"iss": f.issuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(f.t, err)
	return signed
}

func (f *fixture) submit(caller crypto.Address, op types.Op, payload interface{}) (*http.Response, []byte) {
	f.t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(f.t, err)
	body, err := json.Marshal(submitRequest{Op: op, Payload: raw})
	require.NoError(f.t, err)
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/v1/transitions", bytes.NewReader(body))
	require.NoError(f.t, err)
	req.Header.Set("Authorization", "Bearer "+f.token(caller))
	return f.do(req)
}

func (f *fixture) get(path string) (*http.Response, []byte) {
	f.t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	require.NoError(f.t, err)
	return f.do(req)
}

func (f *fixture) do(req *http.Request) (*http.Response, []byte) {
	f.t.Helper()
	resp, err := f.srv.Client().Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(f.t, err)
	return resp, buf.Bytes()
}

func TestSubmitAndQuery(t *testing.T) {
	f := newFixture(t, middleware.RateLimit{})

	resp, body := f.submit(seller, types.OpMint, types.MintPayload{Account: buyer, Amount: "2000"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
	var receipt types.Receipt
	require.NoError(t, json.Unmarshal(body, &receipt))
	require.Equal(t, uint64(1), receipt.Seq)
	require.Equal(t, seller, receipt.Caller)

	resp, body = f.submit(seller, types.OpCreateAsk, types.CreateOrderPayload{EnergyAmount: 100, PricePerUnit: "10", Location: "zone-a"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &receipt))
	askID := receipt.Events[0].Attributes["orderId"]

	resp, body = f.get("/v1/accounts/" + buyer.String() + "/balance")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bal map[string]string
	require.NoError(t, json.Unmarshal(body, &bal))
	require.Equal(t, "2000", bal["balance"])

	resp, body = f.get("/v1/orders/" + askID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var order orderView
	require.NoError(t, json.Unmarshal(body, &order))
	require.Equal(t, "1000", order.TotalPrice)
	require.Equal(t, seller.String(), order.Creator)

	resp, body = f.get("/v1/orders")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var open []orderView
	require.NoError(t, json.Unmarshal(body, &open))
	require.Len(t, open, 1)

	resp, body = f.get("/v1/history/transitions?caller=" + seller.String())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []indexer.TransitionRecord
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 2)
	require.Equal(t, string(types.OpCreateAsk), history[0].Op)

	resp, body = f.get("/v1/history/events?orderId=" + askID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var evts []indexer.Event
	require.NoError(t, json.Unmarshal(body, &evts))
	require.Len(t, evts, 1)
}

func TestErrorStatusMapping(t *testing.T) {
	f := newFixture(t, middleware.RateLimit{})

	resp, body := f.submit(seller, types.OpTransfer, types.TransferPayload{To: buyer, Amount: "5"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var e errorBody
	require.NoError(t, json.Unmarshal(body, &e))
	require.Equal(t, "InsufficientBalance", e.Error.Code)
	require.Equal(t, "validation", e.Error.Kind)

	resp, _ = f.get("/v1/orders/0x" + strings.Repeat("ab", 32))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.get("/v1/orders/not-a-hash")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.submit(seller, types.Op("token.burn"), map[string]string{})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body = f.submit(seller, types.OpRegisterUser, types.RegisterUserPayload{Role: "prosumer"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	resp, _ = f.submit(seller, types.OpRegisterUser, types.RegisterUserPayload{Role: "prosumer"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = f.submit(buyer, types.OpRegisterUser, types.RegisterUserPayload{Role: "consumer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.submit(buyer, types.OpUpdateUserRole, types.UpdateUserRolePayload{Account: seller, Role: "admin"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSubmitRequiresToken(t *testing.T) {
	f := newFixture(t, middleware.RateLimit{})
	req, err := http.NewRequest(http.MethodPost, f.srv.URL+"/v1/transitions", strings.NewReader(`{"op":"token.mint"}`))
	require.NoError(t, err)
	resp, _ := f.do(req)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	f.issuer = "someone-else"
	resp, _ = f.submit(seller, types.OpMint, types.MintPayload{Account: buyer, Amount: "1"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, uint64(0), f.seq.Height())
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, middleware.RateLimit{RequestsPerSecond: 0.001, Burst: 2})
	for i := 0; i < 2; i++ {
		resp, _ := f.get("/v1/height")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, _ := f.get("/v1/height")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, _ = f.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventStream(t *testing.T) {
	f := newFixture(t, middleware.RateLimit{})
	resp, _ := f.submit(seller, types.OpMint, types.MintPayload{Account: buyer, Amount: "10"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/v1/events/ws?cursor=0&types=token.transferred"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	resp, _ = f.submit(buyer, types.OpTransfer, types.TransferPayload{To: seller, Amount: "4"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var receipt types.Receipt
	require.NoError(t, json.Unmarshal(data, &receipt))
	require.Equal(t, uint64(2), receipt.Seq)
	require.Len(t, receipt.Events, 1)
	require.Equal(t, "token.transferred", receipt.Events[0].Type)
}

func TestHubBacklogAndFilter(t *testing.T) {
	hub := NewHub()
	for seq := uint64(1); seq <= 3; seq++ {
		hub.Publish(&types.Receipt{Seq: seq, Events: []types.Event{{Type: "a"}, {Type: "b"}}})
	}
	_, backlog, cancel := hub.Subscribe(1)
	defer cancel()
	require.Len(t, backlog, 2)
	require.Equal(t, uint64(2), backlog[0].Seq)

	filtered, ok := parseEventFilter("b").apply(backlog[0])
	require.True(t, ok)
	require.Len(t, filtered.Events, 1)
	require.Len(t, backlog[0].Events, 2)

	_, ok = parseEventFilter("c").apply(backlog[0])
	require.False(t, ok)
}
