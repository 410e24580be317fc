package domain

import (
	"context"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no-show"
)

// ParseStatus accepts the canonical status names plus the underscore spelling of no-show.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "no_show" || st == "noshow" {
		st = StatusNoShow
	}
	if !st.Valid() {
		return "", false
	}
	return st, true
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible out of s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// BlocksTime reports whether an appointment in this status occupies the stylist's time.
func (s Status) BlocksTime() bool {
	return s == StatusScheduled || s == StatusCompleted
}

// CanTransitionTo encodes the appointment state machine: scheduled is the only
// state with outgoing edges and every edge leads to a terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if s != StatusScheduled {
		return false
	}
	return next.Terminal()
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id" yaml:"id"`
	ClientID        int64     `bun:"client_id,notnull" json:"client_id" yaml:"client_id"`
	StylistID       int64     `bun:"stylist_id,notnull" json:"stylist_id" yaml:"stylist_id"`
	ServiceID       int64     `bun:"service_id,notnull" json:"service_id" yaml:"service_id"`
	StartTime       time.Time `bun:"start_time,notnull" json:"start_time" yaml:"start_time"`
	EndTime         time.Time `bun:"end_time,notnull" json:"end_time" yaml:"end_time"`
	DurationMinutes int       `bun:"duration_minutes,notnull" json:"duration_minutes" yaml:"duration_minutes"`
	Price           float64   `bun:"price,notnull" json:"price" yaml:"price"`
	Status          Status    `bun:"status,notnull" json:"status" yaml:"status"`
	Notes           string    `bun:"notes" json:"notes,omitempty" yaml:"notes,omitempty"`
	IdempotencyKey  *string   `bun:"idempotency_key" json:"-" yaml:"-"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at,notnull" json:"updated_at" yaml:"updated_at"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

func (a Appointment) Duration() time.Duration {
	return time.Duration(a.DurationMinutes) * time.Minute
}

// End is the computed end of the appointment; it falls back to start+duration
// when EndTime has not been materialised yet.
func (a Appointment) End() time.Time {
	if !a.EndTime.IsZero() {
		return a.EndTime
	}
	return a.StartTime.Add(a.Duration())
}

func (a Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.End()}
}

// Revenue is the realised revenue of the appointment: its price once completed, zero otherwise.
func (a Appointment) Revenue() float64 {
	if a.Status != StatusCompleted {
		return 0
	}
	return a.Price
}

func (a Appointment) Key() string {
	if a.IdempotencyKey == nil {
		return ""
	}
	return *a.IdempotencyKey
}
