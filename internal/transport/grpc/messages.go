package grpc

import (
	"time"

	"salonpro/internal/domain"
	"salonpro/internal/service/analytics"
)

// Wire messages for the SalonService. They travel through the JSON codec, so
// timestamps are RFC 3339 strings and durations are whole minutes. RPCs with
// nothing to return answer with emptypb.Empty.

type IDRequest struct {
	ID int64 `json:"id"`
}

type ScheduleAppointmentRequest struct {
	ClientID       int64     `json:"client_id"`
	StylistID      int64     `json:"stylist_id"`
	ServiceID      int64     `json:"service_id"`
	StartTime      time.Time `json:"start_time"`
	Notes          string    `json:"notes,omitempty"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
}

type RescheduleAppointmentRequest struct {
	ID        int64     `json:"id"`
	StartTime time.Time `json:"start_time"`
}

type AppointmentResponse struct {
	Appointment domain.Appointment `json:"appointment"`
}

type AppointmentsResponse struct {
	Appointments []domain.Appointment `json:"appointments"`
}

// TodaysAppointmentsRequest uses the server clock when Reference is zero.
type TodaysAppointmentsRequest struct {
	Reference time.Time `json:"reference,omitempty"`
}

type UpcomingAppointmentsRequest struct {
	Reference      time.Time `json:"reference,omitempty"`
	HorizonMinutes int64     `json:"horizon_minutes,omitempty"`
}

type StylistAvailabilityRequest struct {
	StylistID       int64     `json:"stylist_id"`
	Date            time.Time `json:"date"`
	DurationMinutes int       `json:"duration_minutes"`
	// StepMinutes, when positive, also returns bookable start times.
	StepMinutes int `json:"step_minutes,omitempty"`
}

type StylistAvailabilityResponse struct {
	Free  []domain.Interval `json:"free"`
	Slots []time.Time       `json:"slots,omitempty"`
}

type ClientHistoryRequest struct {
	ClientID int64 `json:"client_id"`
}

type StylistRangeRequest struct {
	StylistID int64     `json:"stylist_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
}

type DateRequest struct {
	Date time.Time `json:"date"`
}

type RangeRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type RevenueResponse struct {
	Revenue float64 `json:"revenue"`
}

type ServicePopularityResponse struct {
	Services []analytics.ServiceCount `json:"services"`
}

type StylistPerformanceResponse struct {
	Performance analytics.StylistPerformance `json:"performance"`
}

type ListClientsRequest struct {
	Phone string `json:"phone,omitempty"`
}

type ListRequest struct {
	ActiveOnly bool `json:"active_only,omitempty"`
}

type ClientMessage struct {
	Client domain.Client `json:"client"`
}

type ClientsResponse struct {
	Clients []domain.Client `json:"clients"`
}

type StylistMessage struct {
	Stylist domain.Stylist `json:"stylist"`
}

type StylistsResponse struct {
	Stylists []domain.Stylist `json:"stylists"`
}

type ServiceMessage struct {
	Service domain.Service `json:"service"`
}

type ServicesResponse struct {
	Services []domain.Service `json:"services"`
}
