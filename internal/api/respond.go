package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/gpures/internal/reservation"
)

type successEnvelope map[string]any

type failureEnvelope struct {
	Success   bool   `json:"success"`
	ErrorKind string `json:"errorKind"`
	Error     string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	body := successEnvelope{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

func writeFailure(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, failureEnvelope{Success: false, ErrorKind: kind, Error: message})
}

// writeError maps an engine error to its HTTP status.
func writeError(w http.ResponseWriter, err error) {
	var re *reservation.Error
	if !errors.As(err, &re) {
		writeFailure(w, http.StatusInternalServerError, "InternalError", "internal error")
		return
	}
	writeFailure(w, statusFor(re.Kind), string(re.Kind), re.Message)
}

func statusFor(kind reservation.ErrorKind) int {
	switch kind {
	case reservation.KindInvalidInterval, reservation.KindPastInterval, reservation.KindMalformedRequest:
		return http.StatusBadRequest
	case reservation.KindResourceNotFound, reservation.KindReservationNotFound:
		return http.StatusNotFound
	case reservation.KindForbidden:
		return http.StatusForbidden
	case reservation.KindInvalidStateTransition:
		return http.StatusConflict
	case reservation.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON body into v. Unknown fields are rejected when
// strict is set.
func decodeBody(r *http.Request, v any, strict bool) error {
	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return reservation.NewMalformedRequestError(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
