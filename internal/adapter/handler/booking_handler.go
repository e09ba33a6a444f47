package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/srgjo27/puja_booking/internal/core/services"
)

type BookingHandler struct {
	svc *services.BookingService
	log *zap.Logger
}

func NewBookingHandler(svc *services.BookingService, log *zap.Logger) *BookingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{svc: svc, log: log}
}

func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /bookings", h.CreateBooking)
	mux.HandleFunc("GET /bookings/{id}", h.GetBooking)
	mux.HandleFunc("POST /bookings/{id}/actions", h.HandleAction)
	mux.HandleFunc("GET /bookings/{id}/breakdown", h.GetBreakdown)
	mux.HandleFunc("POST /bookings/{id}/settlement", h.Settle)
	mux.HandleFunc("POST /bookings/{id}/cancellation", h.RequestCancellation)
	mux.HandleFunc("POST /bookings/{id}/cancellation/approve", h.ApproveCancellation)
	mux.HandleFunc("GET /healthz", h.Health)
}

func (h *BookingHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	b, err := h.svc.CreateBooking(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusCreated, newBookingResponse(b, h.svc.Now()))
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	b, err := h.svc.GetBooking(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, newBookingResponse(b, h.svc.Now()))
}

type actionRequest struct {
	Action    string          `json:"action"`
	ActorID   uuid.UUID       `json:"actor_id"`
	ActorRole domain.Role     `json:"actor_role"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (h *BookingHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	cmd, err := services.ParseCommand(req.Action, req.Payload)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	b, err := h.svc.HandleAction(r.Context(), services.ActionRequest{
		BookingID: id,
		Actor:     domain.Actor{ID: req.ActorID, Role: req.ActorRole},
		Command:   cmd,
	})
	if err != nil {
		h.writeError(w, r, err, b)
		return
	}

	writeJSON(w, http.StatusOK, newBookingResponse(b, h.svc.Now()))
}

func (h *BookingHandler) GetBreakdown(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	bd, err := h.svc.GetBreakdown(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, newBreakdownResponse(*bd))
}

func (h *BookingHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	bd, err := h.svc.Settle(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, newBreakdownResponse(*bd))
}

type cancellationRequest struct {
	ActorID   uuid.UUID   `json:"actor_id"`
	ActorRole domain.Role `json:"actor_role"`
	Reason    string      `json:"reason"`
}

func (h *BookingHandler) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	var req cancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	if req.ActorRole == "" {
		req.ActorRole = domain.RoleCustomer
	}

	b, err := h.svc.RequestCancellation(r.Context(), id, domain.Actor{ID: req.ActorID, Role: req.ActorRole}, req.Reason)
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, newCancellationResponse(b))
}

type approveRequest struct {
	AdminID uuid.UUID `json:"admin_id"`
}

func (h *BookingHandler) ApproveCancellation(w http.ResponseWriter, r *http.Request) {
	id, ok := bookingID(w, r)
	if !ok {
		return
	}

	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	b, err := h.svc.ApproveCancellation(r.Context(), id, domain.Actor{ID: req.AdminID, Role: domain.RoleAdmin})
	if err != nil {
		h.writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, newCancellationResponse(b))
}

func bookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid booking id"})
		return uuid.Nil, false
	}
	return id, true
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status,omitempty"`
	Action string `json:"action,omitempty"`
}

var errorStatus = []struct {
	err  error
	code int
}{
	{domain.ErrBookingNotFound, http.StatusNotFound},
	{domain.ErrNotYetSettled, http.StatusNotFound},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrVersionConflict, http.StatusConflict},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrRequestExpired, http.StatusGone},
	{domain.ErrSettlementFailed, http.StatusUnprocessableEntity},
	{domain.ErrInvalidPayload, http.StatusBadRequest},
	{domain.ErrInvalidBooking, http.StatusBadRequest},
	{domain.ErrDuplicateBooking, http.StatusConflict},
	{domain.ErrBookingBusy, http.StatusLocked},
	{services.ErrBoundaryUnavailable, http.StatusServiceUnavailable},
}

func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return http.StatusInternalServerError
}

// writeError reports the current status and attempted action with every rejection so the caller
// can refresh and decide whether to retry. b is the booking as committed, if any.
func (h *BookingHandler) writeError(w http.ResponseWriter, r *http.Request, err error, b *domain.Booking) {
	code := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var te *domain.TransitionError
	if errors.As(err, &te) {
		resp.Status = string(te.Status)
		resp.Action = string(te.Action)
	}
	if b != nil {
		resp.Status = string(b.Status)
	}

	if code == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		resp = errorResponse{Error: "internal server error"}
	}

	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
