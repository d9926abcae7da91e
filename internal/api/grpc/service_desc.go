package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "reservation.v1.ReservationService"

// ReservationServer is implemented by ReservationHandler.
type ReservationServer interface {
	CreateReservation(context.Context, *CreateReservationRequest) (*ReservationResponse, error)
	GetReservation(context.Context, *GetReservationRequest) (*ReservationResponse, error)
	TransitionReservation(context.Context, *TransitionReservationRequest) (*ReservationResponse, error)
	CheckAvailability(context.Context, *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error)
	ListReservations(context.Context, *ListReservationsRequest) (*ListReservationsResponse, error)
	InitiateCheckout(context.Context, *InitiateCheckoutRequest) (*InitiateCheckoutResponse, error)
}

var ReservationServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateReservation", Handler: unary("CreateReservation", ReservationServer.CreateReservation)},
		{MethodName: "GetReservation", Handler: unary("GetReservation", ReservationServer.GetReservation)},
		{MethodName: "TransitionReservation", Handler: unary("TransitionReservation", ReservationServer.TransitionReservation)},
		{MethodName: "CheckAvailability", Handler: unary("CheckAvailability", ReservationServer.CheckAvailability)},
		{MethodName: "ListReservations", Handler: unary("ListReservations", ReservationServer.ListReservations)},
		{MethodName: "InitiateCheckout", Handler: unary("InitiateCheckout", ReservationServer.InitiateCheckout)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reservation/v1/reservation_service",
}

func RegisterReservationServer(s grpc.ServiceRegistrar, srv ReservationServer) {
	s.RegisterService(&ReservationServiceDesc, srv)
}

func unary[Req, Resp any](method string, call func(ReservationServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReservationServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReservationServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ReservationClient calls ReservationService over a JSON-codec connection.
type ReservationClient struct {
	cc grpc.ClientConnInterface
}

func NewReservationClient(cc grpc.ClientConnInterface) *ReservationClient {
	return &ReservationClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReservationClient) CreateReservation(ctx context.Context, in *CreateReservationRequest, opts ...grpc.CallOption) (*ReservationResponse, error) {
	return invoke[ReservationResponse](ctx, c.cc, "CreateReservation", in, opts...)
}

func (c *ReservationClient) GetReservation(ctx context.Context, in *GetReservationRequest, opts ...grpc.CallOption) (*ReservationResponse, error) {
	return invoke[ReservationResponse](ctx, c.cc, "GetReservation", in, opts...)
}

func (c *ReservationClient) TransitionReservation(ctx context.Context, in *TransitionReservationRequest, opts ...grpc.CallOption) (*ReservationResponse, error) {
	return invoke[ReservationResponse](ctx, c.cc, "TransitionReservation", in, opts...)
}

func (c *ReservationClient) CheckAvailability(ctx context.Context, in *CheckAvailabilityRequest, opts ...grpc.CallOption) (*CheckAvailabilityResponse, error) {
	return invoke[CheckAvailabilityResponse](ctx, c.cc, "CheckAvailability", in, opts...)
}

func (c *ReservationClient) ListReservations(ctx context.Context, in *ListReservationsRequest, opts ...grpc.CallOption) (*ListReservationsResponse, error) {
	return invoke[ListReservationsResponse](ctx, c.cc, "ListReservations", in, opts...)
}

func (c *ReservationClient) InitiateCheckout(ctx context.Context, in *InitiateCheckoutRequest, opts ...grpc.CallOption) (*InitiateCheckoutResponse, error) {
	return invoke[InitiateCheckoutResponse](ctx, c.cc, "InitiateCheckout", in, opts...)
}
