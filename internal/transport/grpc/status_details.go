package grpc

import (
	"strconv"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/durationpb"

	"salonpro/internal/domain"
)

// ErrorDomain scopes the ErrorInfo reasons below.
const ErrorDomain = "salonpro.v1"

const (
	ReasonSlotUnavailable = "SLOT_UNAVAILABLE"
	ReasonInvalidState    = "INVALID_STATE"
	ReasonEntityInUse     = "ENTITY_IN_USE"
	ReasonRateLimited     = "RATE_LIMITED"
)

// withDetails falls back to the bare status if the details cannot be
// marshalled; the code and message stay authoritative.
func withDetails(st *status.Status, details ...protoadapt.MessageV1) error {
	detailed, err := st.WithDetails(details...)
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

func conflictStatus(conflict *domain.ConflictError) error {
	st := status.New(codes.FailedPrecondition, "The stylist already has an appointment during that time. Pick a different slot.")
	id := strconv.FormatInt(conflict.AppointmentID, 10)
	return withDetails(st,
		&errdetails.ErrorInfo{
			Reason: ReasonSlotUnavailable,
			Domain: ErrorDomain,
			Metadata: map[string]string{
				"appointment_id": id,
				"start":          conflict.Start.UTC().Format(time.RFC3339Nano),
				"end":            conflict.End.UTC().Format(time.RFC3339Nano),
			},
		},
		&errdetails.ResourceInfo{
			ResourceType: ErrorDomain + ".Appointment",
			ResourceName: "appointments/" + id,
			Description:  "blocking appointment",
		},
	)
}

func invalidStateStatus(e *domain.InvalidStateError) error {
	st := status.New(codes.FailedPrecondition, e.Error())
	return withDetails(st, &errdetails.ErrorInfo{
		Reason: ReasonInvalidState,
		Domain: ErrorDomain,
		Metadata: map[string]string{
			"appointment_id": strconv.FormatInt(e.AppointmentID, 10),
			"from":           string(e.From),
			"to":             string(e.To),
		},
	})
}

func entityInUseStatus(err error) error {
	st := status.New(codes.FailedPrecondition, err.Error())
	return withDetails(st, &errdetails.ErrorInfo{Reason: ReasonEntityInUse, Domain: ErrorDomain})
}

func rateLimitedStatus(client string, retryIn time.Duration) error {
	st := status.New(codes.ResourceExhausted, "rate limit exceeded")
	if retryIn < 0 {
		retryIn = 0
	}
	return withDetails(st,
		&errdetails.ErrorInfo{
			Reason:   ReasonRateLimited,
			Domain:   ErrorDomain,
			Metadata: map[string]string{"client": client},
		},
		&errdetails.RetryInfo{RetryDelay: durationpb.New(retryIn)},
	)
}

// ConflictFromError recovers the blocking appointment from a status
// returned by ScheduleAppointment or RescheduleAppointment.
func ConflictFromError(err error) (*domain.ConflictError, bool) {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.FailedPrecondition {
		return nil, false
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != ErrorDomain || info.GetReason() != ReasonSlotUnavailable {
			continue
		}
		md := info.GetMetadata()
		id, err := strconv.ParseInt(md["appointment_id"], 10, 64)
		if err != nil {
			return nil, false
		}
		start, err := time.Parse(time.RFC3339Nano, md["start"])
		if err != nil {
			return nil, false
		}
		end, err := time.Parse(time.RFC3339Nano, md["end"])
		if err != nil {
			return nil, false
		}
		return &domain.ConflictError{AppointmentID: id, Start: start, End: end}, true
	}
	return nil, false
}

// RetryDelay reports how long a rate-limited caller should wait.
func RetryDelay(err error) (time.Duration, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return 0, false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.RetryInfo); ok && info.GetRetryDelay() != nil {
			return info.GetRetryDelay().AsDuration(), true
		}
	}
	return 0, false
}
