package rpc

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"gridledger/core"
	"gridledger/core/types"
	"gridledger/crypto"
	"gridledger/indexer"
)

func (s *Server) view(w http.ResponseWriter, fn func(q *core.Query) (interface{}, error)) {
	var out interface{}
	err := s.seq.View(func(q *core.Query) error {
		v, err := fn(q)
		out = v
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func addressParam(w http.ResponseWriter, r *http.Request) (crypto.Address, bool) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeBadRequest(w, "invalid address")
		return crypto.Address{}, false
	}
	return addr, true
}

func idParam(w http.ResponseWriter, r *http.Request) (types.Hash, bool) {
	id, err := types.ParseHash(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid id")
		return types.Hash{}, false
	}
	return id, true
}

func amountQuery(w http.ResponseWriter, r *http.Request, name string) (*uint256.Int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	v, err := uint256.FromDecimal(raw)
	if raw == "" || err != nil {
		writeBadRequest(w, "invalid "+name)
		return nil, false
	}
	return v, true
}

func (s *Server) handleHeight(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]uint64{"height": s.seq.Height()})
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	s.view(w, func(q *core.Query) (interface{}, error) {
		supply, err := q.TotalSupply()
		if err != nil {
			return nil, err
		}
		return map[string]string{"totalSupply": amount(supply)}, nil
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		bal, err := q.Balance(addr)
		if err != nil {
			return nil, err
		}
		return map[string]string{"account": addr.String(), "balance": amount(bal)}, nil
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		p, err := q.Profile(addr)
		if err != nil {
			return nil, err
		}
		return profileViewOf(p), nil
	})
}

func (s *Server) handleAccountOrders(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r)
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		orders, err := q.OrdersByAccount(addr)
		if err != nil {
			return nil, err
		}
		return orderViews(orders), nil
	})
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		d, err := q.Device(id)
		if err != nil {
			return nil, err
		}
		return deviceViewOf(d), nil
	})
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, r *http.Request) {
	s.view(w, func(q *core.Query) (interface{}, error) {
		orders, err := q.OpenOrders()
		if err != nil {
			return nil, err
		}
		return orderViews(orders), nil
	})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		o, err := q.Order(id)
		if err != nil {
			return nil, err
		}
		return orderViewOf(o), nil
	})
}

func (s *Server) handleFindMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		m, err := q.FindOptimalMatch(id)
		if err != nil {
			return nil, err
		}
		return matchView{OrderID: types.Hash(m.OrderID), PricePerUnit: amount(m.PricePerUnit), Score: m.Score}, nil
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		t, err := q.Transfer(id)
		if err != nil {
			return nil, err
		}
		return transferViewOf(t), nil
	})
}

func (s *Server) handleMeasurements(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		ms, err := q.Measurements(id)
		if err != nil {
			return nil, err
		}
		return measurementViews(ms), nil
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	loc := []byte(chi.URLParam(r, "location"))
	s.view(w, func(q *core.Query) (interface{}, error) {
		m, err := q.MarketData(loc)
		if err != nil {
			return nil, err
		}
		return marketViewOf(m), nil
	})
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	loc := []byte(chi.URLParam(r, "location"))
	s.view(w, func(q *core.Query) (interface{}, error) {
		g, err := q.GridMetrics(loc)
		if err != nil {
			return nil, err
		}
		return gridView{CongestionLevel: g.CongestionLevel, LossFactor: g.LossFactor, StabilityIndex: g.StabilityIndex}, nil
	})
}

func (s *Server) handlePriorities(w http.ResponseWriter, r *http.Request) {
	loc := []byte(chi.URLParam(r, "location"))
	s.view(w, func(q *core.Query) (interface{}, error) {
		ps, err := q.LocationPriorities(loc)
		if err != nil {
			return nil, err
		}
		return priorityViews(ps), nil
	})
}

func (s *Server) handleOptimalPrice(w http.ResponseWriter, r *http.Request) {
	loc := []byte(chi.URLParam(r, "location"))
	base, ok := amountQuery(w, r, "base")
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		price, err := q.CalculateOptimalPrice(loc, base)
		if err != nil {
			return nil, err
		}
		return map[string]string{"location": string(loc), "price": amount(price)}, nil
	})
}

func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		p, err := q.Payment(id)
		if err != nil {
			return nil, err
		}
		return paymentViewOf(p), nil
	})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	from, to := chi.URLParam(r, "from"), chi.URLParam(r, "to")
	s.view(w, func(q *core.Query) (interface{}, error) {
		rate, err := q.ExchangeRate(from, to)
		if err != nil {
			return nil, err
		}
		return rateView{From: rate.From, To: rate.To, Rate: amount(rate.Rate), Timestamp: rate.Timestamp}, nil
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	from, to := chi.URLParam(r, "from"), chi.URLParam(r, "to")
	value, ok := amountQuery(w, r, "amount")
	if !ok {
		return
	}
	s.view(w, func(q *core.Query) (interface{}, error) {
		out, err := q.ConvertAmount(value, from, to)
		if err != nil {
			return nil, err
		}
		return map[string]string{"from": from, "to": to, "amount": amount(value), "converted": amount(out)}, nil
	})
}

func pageParams(r *http.Request) (before uint64, limit int, ok bool) {
	query := r.URL.Query()
	if raw := query.Get("before"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, 0, false
		}
		before = v
	}
	if raw := query.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return 0, 0, false
		}
		limit = v
	}
	return before, limit, true
}

func (s *Server) handleHistoryTransitions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}
	before, limit, ok := pageParams(r)
	if !ok {
		writeBadRequest(w, "invalid paging parameters")
		return
	}
	filter := indexer.TransitionFilter{
		Caller: r.URL.Query().Get("caller"),
		Op:     r.URL.Query().Get("op"),
		Before: before,
		Limit:  limit,
	}
	rows, err := s.history.Transitions(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHistoryEvents(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.NotFound(w, r)
		return
	}
	before, limit, ok := pageParams(r)
	if !ok {
		writeBadRequest(w, "invalid paging parameters")
		return
	}
	filter := indexer.EventFilter{
		Type:    r.URL.Query().Get("type"),
		OrderID: r.URL.Query().Get("orderId"),
		Before:  before,
		Limit:   limit,
	}
	evts, err := s.history.Events(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, evts)
}
