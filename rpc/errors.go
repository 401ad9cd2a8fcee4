package rpc

import (
	"encoding/json"
	"net/http"

	coreerrors "gridledger/core/errors"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// statusFor maps an engine error kind onto an HTTP status.
func statusFor(err error) int {
	switch coreerrors.KindOf(err) {
	case coreerrors.KindValidation, coreerrors.KindArithmetic, coreerrors.KindExternal:
		return http.StatusUnprocessableEntity
	case coreerrors.KindState:
		return http.StatusConflict
	case coreerrors.KindAuthorization:
		return http.StatusForbidden
	case coreerrors.KindResource:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:    coreerrors.CodeOf(err),
		Kind:    coreerrors.KindOf(err).String(),
		Message: message,
	}})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
		Code:    "BadRequest",
		Kind:    coreerrors.KindValidation.String(),
		Message: message,
	}})
}
