package domain

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	ErrIdempotencyConflict = errors.New("idempotency key conflict")
	ErrEntityInUse         = errors.New("entity is referenced by scheduled appointments")
)

// ValidationError reports malformed input: unknown references, non-positive
// durations, bookings in the past and the like.
type ValidationError struct {
	msg string
	err error
}

func NewValidationError(msg string) error {
	return &ValidationError{msg: msg}
}

// WrapValidation reports msg as a validation failure caused by err.
func WrapValidation(msg string, err error) error {
	return &ValidationError{msg: msg, err: err}
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

type NotFoundError struct {
	Kind string
	ID   int64
}

func NewNotFound(kind string, id int64) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return e.Kind + " " + strconv.FormatInt(e.ID, 10) + " not found"
}

// ConflictError carries the appointment that blocks the requested slot.
type ConflictError struct {
	AppointmentID int64
	Start         time.Time
	End           time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stylist is already booked by appointment %d from %s to %s",
		e.AppointmentID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

type InvalidStateError struct {
	AppointmentID int64
	From          Status
	To            Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("appointment %d cannot move from %s to %s", e.AppointmentID, e.From, e.To)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
