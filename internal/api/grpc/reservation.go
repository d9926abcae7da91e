package grpc

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reservation-engine/internal/domain"
	"reservation-engine/internal/service"
)

type ReservationHandler struct {
	reservationSvc service.ReservationService
	paymentSvc     service.PaymentService
}

func NewReservationHandler(reservationSvc service.ReservationService, paymentSvc service.PaymentService) *ReservationHandler {
	return &ReservationHandler{reservationSvc: reservationSvc, paymentSvc: paymentSvc}
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid reservation id %q", raw)
	}
	return id, nil
}

func (h *ReservationHandler) CreateReservation(ctx context.Context, req *CreateReservationRequest) (*ReservationResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	r, err := h.reservationSvc.CreateReservation(ctx, service.CreateReservationInput{
		RenterID:       actor.ID,
		AssetID:        req.AssetID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Notes:          req.Notes,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReservationResponse{Reservation: r}, nil
}

func (h *ReservationHandler) GetReservation(ctx context.Context, req *GetReservationRequest) (*ReservationResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	r, err := h.reservationSvc.GetReservation(ctx, actor, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReservationResponse{Reservation: r}, nil
}

func (h *ReservationHandler) TransitionReservation(ctx context.Context, req *TransitionReservationRequest) (*ReservationResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}

	target := domain.ReservationStatus(strings.ToUpper(req.TargetStatus))
	r, err := h.reservationSvc.TransitionReservation(ctx, id, actor, target)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ReservationResponse{Reservation: r}, nil
}

func (h *ReservationHandler) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	a, err := h.reservationSvc.CheckAvailability(ctx, req.AssetID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, toStatus(err)
	}
	return &CheckAvailabilityResponse{Available: a.Available, ConflictingReservation: a.ConflictingReservation}, nil
}

func (h *ReservationHandler) ListReservations(ctx context.Context, req *ListReservationsRequest) (*ListReservationsResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	filter := domain.ReservationFilter{
		Status:   domain.ReservationStatus(strings.ToUpper(req.Status)),
		AssetID:  req.AssetID,
		RenterID: req.RenterID,
		OwnerID:  req.OwnerID,
	}
	page := domain.PageRequest{
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortField: req.SortField,
		SortDir:   domain.SortDirection(strings.ToUpper(req.SortDir)),
	}

	res, err := h.reservationSvc.ListReservations(ctx, actor, service.ListScope(strings.ToUpper(req.Scope)), filter, page)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListReservationsResponse{
		Reservations: res.Items,
		TotalCount:   res.TotalCount,
		Page:         res.Page,
		PageSize:     res.PageSize,
	}, nil
}

func (h *ReservationHandler) InitiateCheckout(ctx context.Context, req *InitiateCheckoutRequest) (*InitiateCheckoutResponse, error) {
	actor, err := GetActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(req.ReservationID)
	if err != nil {
		return nil, err
	}

	session, err := h.paymentSvc.InitiateCheckout(ctx, actor, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return &InitiateCheckoutResponse{SessionID: session.SessionID, RedirectURL: session.RedirectURL}, nil
}
