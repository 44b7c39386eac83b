package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/gpures/internal/reservation"
)

// IdempotencyHeader may carry the idempotency key instead of the body.
const IdempotencyHeader = "Idempotency-Key"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body CreateRequest
	if err := decodeBody(r, &body, true); err != nil {
		writeError(w, err)
		return
	}

	created, err := s.svc.Create(r.Context(), reservation.Request{
		OwnerID:        actorFrom(r.Context()),
		ResourceID:     body.ResourceID,
		Interval:       reservation.Interval{Start: body.Start, End: body.End},
		Purpose:        body.Purpose,
		Priority:       body.Priority,
		IdempotencyKey: idempotencyKey(r, body.IdempotencyKey),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"reservation": s.view(r.Context(), created)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"reservations": s.views(r.Context(), list)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	got, err := s.svc.Get(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"reservation": s.view(r.Context(), got)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.History(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]EventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, toEventDTO(e))
	}
	writeSuccess(w, http.StatusOK, map[string]any{"events": out})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var body ResolveRequest
	if err := decodeBody(r, &body, true); err != nil {
		writeError(w, err)
		return
	}
	s.resolve(w, r, chi.URLParam(r, "id"), body.Decision, idempotencyKey(r, body.IdempotencyKey))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.cancel(w, r, chi.URLParam(r, "id"), idempotencyKey(r, ""))
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request, id, decision, key string) {
	d, err := reservation.ParseDecision(decision)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := s.svc.Resolve(r.Context(), actorFrom(r.Context()), id, d, key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"reservation": s.view(r.Context(), out)})
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request, id, key string) {
	out, err := s.svc.Cancel(r.Context(), actorFrom(r.Context()), id, key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"reservation": s.view(r.Context(), out)})
}

// handleAction serves the single-endpoint envelope:
//
//	{"action": "reserve", "gpuType": ..., "startTime": ..., "endTime": ..., "details": ...}
//	{"action": "list"}
//	{"action": "confirm_reject", "reservationId": ..., "decision": "accept"|"dispute"}
//	{"action": "cancel", "reservationId": ...}
//
// An empty action lists.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var body ActionRequest
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, err)
		return
	}
	key := idempotencyKey(r, body.IdempotencyKey)

	switch body.Action {
	case "reserve":
		created, err := s.svc.Create(r.Context(), reservation.Request{
			OwnerID:        actorFrom(r.Context()),
			ResourceID:     body.GPUType,
			Interval:       reservation.Interval{Start: body.StartTime, End: body.EndTime},
			Purpose:        body.Details,
			Priority:       body.Priority,
			IdempotencyKey: key,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{
			"reservationId": created.ID,
			"status":        string(created.Status),
			"priority":      created.Priority,
			"reservation":   s.view(r.Context(), created),
		})

	case "list", "":
		s.handleList(w, r)

	case "confirm_reject":
		s.resolve(w, r, body.ReservationID, body.Decision, key)

	case "cancel":
		s.cancel(w, r, body.ReservationID, key)

	default:
		writeError(w, reservation.NewMalformedRequestError(fmt.Sprintf("unknown action %q", body.Action)))
	}
}

// view renders r for its owner, attaching the negotiation block when r is
// waiting on a decision.
func (s *Server) view(ctx context.Context, r reservation.Reservation) ReservationDTO {
	dto := toDTO(r)
	if r.Status != reservation.StatusNeedConfirm {
		return dto
	}
	challenger, err := s.svc.Challenger(ctx, r.OwnerID, r.ID)
	if err != nil {
		s.logger.Warn("negotiation lookup failed", "id", r.ID, "error", err)
		return dto
	}
	dto.Negotiation = negotiationFor(challenger)
	return dto
}

func (s *Server) views(ctx context.Context, list []reservation.Reservation) []ReservationDTO {
	out := make([]ReservationDTO, 0, len(list))
	for _, r := range list {
		out = append(out, s.view(ctx, r))
	}
	return out
}

func idempotencyKey(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get(IdempotencyHeader)
}
