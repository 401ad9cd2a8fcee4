package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	coreerrors "gridledger/core/errors"
	"gridledger/core/types"
	"gridledger/observability/logging"
	"gridledger/rpc/middleware"
)

type submitRequest struct {
	Op      types.Op        `json:"op"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	var req submitRequest
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeBadRequest(w, "invalid request body")
		return
	}
	if strings.TrimSpace(string(req.Op)) == "" {
		writeBadRequest(w, "op is required")
		return
	}
	receipt, err := s.seq.Submit(r.Context(), caller, req.Op, req.Payload)
	if err != nil {
		if coreerrors.KindOf(err) == coreerrors.KindInternal {
			s.logger.Error("transition failed",
				slog.String("requestId", middleware.RequestIDFromContext(r.Context())),
				slog.String("op", string(req.Op)),
				logging.PayloadAttr(req.Payload),
				slog.String("error", err.Error()))
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
