package grpc

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/protobuf/types/known/emptypb"

	"salonpro/internal/domain"
)

func (s *SalonServer) CreateClient(ctx context.Context, req *ClientMessage) (*ClientMessage, error) {
	log := s.log.With(slog.String("rpc", "CreateClient"))

	if req == nil {
		return nil, nilRequest(log)
	}
	in := req.Client
	in.ID = 0

	c, err := s.entities.CreateClient(ctx, in)
	if err != nil {
		return nil, s.fail(log, "client create", err)
	}
	log.Info("client created", slog.Int64("client_id", c.ID))
	return &ClientMessage{Client: c}, nil
}

func (s *SalonServer) GetClient(ctx context.Context, req *IDRequest) (*ClientMessage, error) {
	log := s.log.With(slog.String("rpc", "GetClient"))

	if req == nil {
		return nil, nilRequest(log)
	}
	c, err := s.entities.GetClient(ctx, req.ID)
	if err != nil {
		return nil, s.fail(log, "client get", err, slog.Int64("client_id", req.ID))
	}
	return &ClientMessage{Client: c}, nil
}

// ListClients returns every client, or the single client owning Phone when
// it is set.
func (s *SalonServer) ListClients(ctx context.Context, req *ListClientsRequest) (*ClientsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListClients"))

	if req == nil {
		return nil, nilRequest(log)
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		c, err := s.entities.FindClientByPhone(ctx, phone)
		if err != nil {
			return nil, s.fail(log, "client lookup", err)
		}
		return &ClientsResponse{Clients: []domain.Client{c}}, nil
	}

	clients, err := s.entities.ListClients(ctx)
	if err != nil {
		return nil, s.fail(log, "client list", err)
	}
	return &ClientsResponse{Clients: clients}, nil
}

func (s *SalonServer) DeleteClient(ctx context.Context, req *IDRequest) (*emptypb.Empty, error) {
	log := s.log.With(slog.String("rpc", "DeleteClient"))

	if req == nil {
		return nil, nilRequest(log)
	}
	if err := s.entities.DeleteClient(ctx, req.ID); err != nil {
		return nil, s.fail(log, "client delete", err, slog.Int64("client_id", req.ID))
	}
	log.Info("client deleted", slog.Int64("client_id", req.ID))
	return &emptypb.Empty{}, nil
}

func (s *SalonServer) CreateStylist(ctx context.Context, req *StylistMessage) (*StylistMessage, error) {
	log := s.log.With(slog.String("rpc", "CreateStylist"))

	if req == nil {
		return nil, nilRequest(log)
	}
	in := req.Stylist
	in.ID = 0

	st, err := s.entities.CreateStylist(ctx, in)
	if err != nil {
		return nil, s.fail(log, "stylist create", err)
	}
	log.Info("stylist created", slog.Int64("stylist_id", st.ID))
	return &StylistMessage{Stylist: st}, nil
}

func (s *SalonServer) GetStylist(ctx context.Context, req *IDRequest) (*StylistMessage, error) {
	log := s.log.With(slog.String("rpc", "GetStylist"))

	if req == nil {
		return nil, nilRequest(log)
	}
	st, err := s.entities.GetStylist(ctx, req.ID)
	if err != nil {
		return nil, s.fail(log, "stylist get", err, slog.Int64("stylist_id", req.ID))
	}
	return &StylistMessage{Stylist: st}, nil
}

func (s *SalonServer) ListStylists(ctx context.Context, req *ListRequest) (*StylistsResponse, error) {
	log := s.log.With(slog.String("rpc", "ListStylists"))

	if req == nil {
		return nil, nilRequest(log)
	}
	stylists, err := s.entities.ListStylists(ctx, req.ActiveOnly)
	if err != nil {
		return nil, s.fail(log, "stylist list", err)
	}
	return &StylistsResponse{Stylists: stylists}, nil
}

func (s *SalonServer) DeactivateStylist(ctx context.Context, req *IDRequest) (*emptypb.Empty, error) {
	log := s.log.With(slog.String("rpc", "DeactivateStylist"))

	if req == nil {
		return nil, nilRequest(log)
	}
	if err := s.entities.DeactivateStylist(ctx, req.ID); err != nil {
		return nil, s.fail(log, "stylist deactivate", err, slog.Int64("stylist_id", req.ID))
	}
	log.Info("stylist deactivated", slog.Int64("stylist_id", req.ID))
	return &emptypb.Empty{}, nil
}

func (s *SalonServer) CreateService(ctx context.Context, req *ServiceMessage) (*ServiceMessage, error) {
	log := s.log.With(slog.String("rpc", "CreateService"))

	if req == nil {
		return nil, nilRequest(log)
	}
	in := req.Service
	in.ID = 0

	svc, err := s.entities.CreateService(ctx, in)
	if err != nil {
		return nil, s.fail(log, "service create", err)
	}
	log.Info("service created", slog.Int64("service_id", svc.ID))
	return &ServiceMessage{Service: svc}, nil
}

func (s *SalonServer) GetService(ctx context.Context, req *IDRequest) (*ServiceMessage, error) {
	log := s.log.With(slog.String("rpc", "GetService"))

	if req == nil {
		return nil, nilRequest(log)
	}
	svc, err := s.entities.GetService(ctx, req.ID)
	if err != nil {
		return nil, s.fail(log, "service get", err, slog.Int64("service_id", req.ID))
	}
	return &ServiceMessage{Service: svc}, nil
}

func (s *SalonServer) ListServices(ctx context.Context, req *ListRequest) (*ServicesResponse, error) {
	log := s.log.With(slog.String("rpc", "ListServices"))

	if req == nil {
		return nil, nilRequest(log)
	}
	services, err := s.entities.ListServices(ctx, req.ActiveOnly)
	if err != nil {
		return nil, s.fail(log, "service list", err)
	}
	return &ServicesResponse{Services: services}, nil
}

func (s *SalonServer) DeactivateService(ctx context.Context, req *IDRequest) (*emptypb.Empty, error) {
	log := s.log.With(slog.String("rpc", "DeactivateService"))

	if req == nil {
		return nil, nilRequest(log)
	}
	if err := s.entities.DeactivateService(ctx, req.ID); err != nil {
		return nil, s.fail(log, "service deactivate", err, slog.Int64("service_id", req.ID))
	}
	log.Info("service deactivated", slog.Int64("service_id", req.ID))
	return &emptypb.Empty{}, nil
}
