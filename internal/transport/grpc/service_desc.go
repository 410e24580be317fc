package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "salonpro.v1.SalonService"

// SalonServiceServer is implemented by *SalonServer.
type SalonServiceServer interface {
	ScheduleAppointment(context.Context, *ScheduleAppointmentRequest) (*AppointmentResponse, error)
	RescheduleAppointment(context.Context, *RescheduleAppointmentRequest) (*AppointmentResponse, error)
	CancelAppointment(context.Context, *IDRequest) (*AppointmentResponse, error)
	CompleteAppointment(context.Context, *IDRequest) (*AppointmentResponse, error)
	MarkNoShow(context.Context, *IDRequest) (*AppointmentResponse, error)
	GetAppointment(context.Context, *IDRequest) (*AppointmentResponse, error)

	TodaysAppointments(context.Context, *TodaysAppointmentsRequest) (*AppointmentsResponse, error)
	UpcomingAppointments(context.Context, *UpcomingAppointmentsRequest) (*AppointmentsResponse, error)
	StylistAvailability(context.Context, *StylistAvailabilityRequest) (*StylistAvailabilityResponse, error)
	ClientHistory(context.Context, *ClientHistoryRequest) (*AppointmentsResponse, error)
	StylistSchedule(context.Context, *StylistRangeRequest) (*AppointmentsResponse, error)
	AppointmentsOn(context.Context, *DateRequest) (*AppointmentsResponse, error)

	DailyRevenue(context.Context, *DateRequest) (*RevenueResponse, error)
	RevenueBetween(context.Context, *RangeRequest) (*RevenueResponse, error)
	ServicePopularity(context.Context, *RangeRequest) (*ServicePopularityResponse, error)
	StylistPerformance(context.Context, *StylistRangeRequest) (*StylistPerformanceResponse, error)

	CreateClient(context.Context, *ClientMessage) (*ClientMessage, error)
	GetClient(context.Context, *IDRequest) (*ClientMessage, error)
	ListClients(context.Context, *ListClientsRequest) (*ClientsResponse, error)
	DeleteClient(context.Context, *IDRequest) (*emptypb.Empty, error)
	CreateStylist(context.Context, *StylistMessage) (*StylistMessage, error)
	GetStylist(context.Context, *IDRequest) (*StylistMessage, error)
	ListStylists(context.Context, *ListRequest) (*StylistsResponse, error)
	DeactivateStylist(context.Context, *IDRequest) (*emptypb.Empty, error)
	CreateService(context.Context, *ServiceMessage) (*ServiceMessage, error)
	GetService(context.Context, *IDRequest) (*ServiceMessage, error)
	ListServices(context.Context, *ListRequest) (*ServicesResponse, error)
	DeactivateService(context.Context, *IDRequest) (*emptypb.Empty, error)
}

// ServiceDesc is written by hand in place of protoc output; messages are
// encoded with the JSON codec registered in codec.go.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SalonServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ScheduleAppointment", SalonServiceServer.ScheduleAppointment),
		unary("RescheduleAppointment", SalonServiceServer.RescheduleAppointment),
		unary("CancelAppointment", SalonServiceServer.CancelAppointment),
		unary("CompleteAppointment", SalonServiceServer.CompleteAppointment),
		unary("MarkNoShow", SalonServiceServer.MarkNoShow),
		unary("GetAppointment", SalonServiceServer.GetAppointment),
		unary("TodaysAppointments", SalonServiceServer.TodaysAppointments),
		unary("UpcomingAppointments", SalonServiceServer.UpcomingAppointments),
		unary("StylistAvailability", SalonServiceServer.StylistAvailability),
		unary("ClientHistory", SalonServiceServer.ClientHistory),
		unary("StylistSchedule", SalonServiceServer.StylistSchedule),
		unary("AppointmentsOn", SalonServiceServer.AppointmentsOn),
		unary("DailyRevenue", SalonServiceServer.DailyRevenue),
		unary("RevenueBetween", SalonServiceServer.RevenueBetween),
		unary("ServicePopularity", SalonServiceServer.ServicePopularity),
		unary("StylistPerformance", SalonServiceServer.StylistPerformance),
		unary("CreateClient", SalonServiceServer.CreateClient),
		unary("GetClient", SalonServiceServer.GetClient),
		unary("ListClients", SalonServiceServer.ListClients),
		unary("DeleteClient", SalonServiceServer.DeleteClient),
		unary("CreateStylist", SalonServiceServer.CreateStylist),
		unary("GetStylist", SalonServiceServer.GetStylist),
		unary("ListStylists", SalonServiceServer.ListStylists),
		unary("DeactivateStylist", SalonServiceServer.DeactivateStylist),
		unary("CreateService", SalonServiceServer.CreateService),
		unary("GetService", SalonServiceServer.GetService),
		unary("ListServices", SalonServiceServer.ListServices),
		unary("DeactivateService", SalonServiceServer.DeactivateService),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "salonpro/v1/salon.json",
}

func RegisterSalonServiceServer(s grpc.ServiceRegistrar, srv SalonServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](name string, call func(SalonServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := FullMethod(name)
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			impl := srv.(SalonServiceServer)
			if interceptor == nil {
				return call(impl, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(impl, ctx, req.(*Req))
			})
		},
	}
}

// SalonServiceClient invokes SalonService methods over a client connection
// using the JSON codec.
type SalonServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSalonServiceClient(cc grpc.ClientConnInterface) *SalonServiceClient {
	return &SalonServiceClient{cc: cc}
}

// Call invokes method, decoding the reply into out.
func (c *SalonServiceClient) Call(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, FullMethod(method), in, out, opts...)
}
