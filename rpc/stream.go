package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"gridledger/core/types"
)

const (
	streamHistoryLimit = 1024
	streamBuffer       = 64
	wsWriteTimeout     = 10 * time.Second
)

// Hub fans committed receipts out to websocket subscribers and keeps a
// bounded backlog so clients can resume from a sequence cursor. Slow
// subscribers drop receipts rather than block the sequencer.
type Hub struct {
	mu      sync.Mutex
	history []*types.Receipt
	subs    map[uint64]chan *types.Receipt
	nextID  uint64
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan *types.Receipt)}
}

// Publish is registered as a sequencer commit hook.
func (h *Hub) Publish(r *types.Receipt) {
	if r == nil {
		return
	}
	h.mu.Lock()
	h.history = append(h.history, r)
	if excess := len(h.history) - streamHistoryLimit; excess > 0 {
		trimmed := make([]*types.Receipt, streamHistoryLimit)
		copy(trimmed, h.history[excess:])
		h.history = trimmed
	}
	subscribers := make([]chan *types.Receipt, 0, len(h.subs))
	for _, ch := range h.subs {
		subscribers = append(subscribers, ch)
	}
	h.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- r:
		default:
		}
	}
}

// Subscribe returns the retained receipts after cursor and a channel of new
// ones. The returned cancel func must be called to release the slot.
func (h *Hub) Subscribe(cursor uint64) (<-chan *types.Receipt, []*types.Receipt, func()) {
	ch := make(chan *types.Receipt, streamBuffer)
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	backlog := make([]*types.Receipt, 0)
	for _, r := range h.history {
		if r.Seq > cursor {
			backlog = append(backlog, r)
		}
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
	return ch, backlog, cancel
}

type eventFilter map[string]struct{}

func parseEventFilter(raw string) eventFilter {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	f := make(eventFilter)
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			f[part] = struct{}{}
		}
	}
	return f
}

// apply drops events outside the filter; a receipt with nothing left is
// skipped.
func (f eventFilter) apply(r *types.Receipt) (*types.Receipt, bool) {
	if f == nil {
		return r, true
	}
	kept := make([]types.Event, 0, len(r.Events))
	for _, evt := range r.Events {
		if _, ok := f[evt.Type]; ok {
			kept = append(kept, evt)
		}
	}
	if len(kept) == 0 {
		return nil, false
	}
	out := *r
	out.Events = kept
	return &out, true
}

func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	var cursor uint64
	if raw := strings.TrimSpace(r.URL.Query().Get("cursor")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid cursor")
			return
		}
		cursor = parsed
	}
	filter := parseEventFilter(r.URL.Query().Get("types"))
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	// The client never sends; CloseRead surfaces its close frame.
	ctx := conn.CloseRead(r.Context())
	if err := s.streamReceipts(ctx, conn, cursor, filter); err != nil {
		if websocket.CloseStatus(err) == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamReceipts(ctx context.Context, conn *websocket.Conn, cursor uint64, filter eventFilter) error {
	updates, backlog, cancel := s.hub.Subscribe(cursor)
	defer cancel()

	last := cursor
	send := func(r *types.Receipt) error {
		if r.Seq <= last {
			return nil
		}
		last = r.Seq
		out, ok := filter.apply(r)
		if !ok {
			return nil
		}
		return writeReceipt(ctx, conn, out)
	}
	for _, r := range backlog {
		if err := send(r); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-updates:
			if err := send(r); err != nil {
				return err
			}
		}
	}
}

func writeReceipt(ctx context.Context, conn *websocket.Conn, r *types.Receipt) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
