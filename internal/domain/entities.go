package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/uptrace/bun"
)

type Client struct {
	bun.BaseModel `bun:"table:clients"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id" yaml:"id"`
	FirstName string    `bun:"first_name,notnull" json:"first_name" yaml:"first_name" validate:"required,max=50"`
	LastName  string    `bun:"last_name,notnull" json:"last_name" yaml:"last_name" validate:"required,max=50"`
	Phone     string    `bun:"phone,notnull" json:"phone" yaml:"phone" validate:"required,max=20"`
	Email     string    `bun:"email" json:"email,omitempty" yaml:"email,omitempty" validate:"omitempty,email,max=100"`
	Notes     string    `bun:"notes" json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at" yaml:"created_at"`
}

func (c Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Stylist struct {
	bun.BaseModel `bun:"table:stylists"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id" yaml:"id"`
	FirstName  string    `bun:"first_name,notnull" json:"first_name" yaml:"first_name" validate:"required,max=50"`
	LastName   string    `bun:"last_name,notnull" json:"last_name" yaml:"last_name" validate:"required,max=50"`
	Phone      string    `bun:"phone,notnull" json:"phone" yaml:"phone" validate:"required,max=20"`
	Email      string    `bun:"email,notnull" json:"email" yaml:"email" validate:"required,email,max=100"`
	Specialty  string    `bun:"specialty" json:"specialty,omitempty" yaml:"specialty,omitempty" validate:"max=100"`
	HourlyRate float64   `bun:"hourly_rate,notnull" json:"hourly_rate" yaml:"hourly_rate" validate:"gte=0"`
	Active     bool      `bun:"active,notnull" json:"active" yaml:"active"`
	HiredAt    time.Time `bun:"hired_at,notnull" json:"hired_at" yaml:"hired_at"`
}

func (s Stylist) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              int64     `bun:"id,pk,autoincrement" json:"id" yaml:"id"`
	Name            string    `bun:"name,notnull" json:"name" yaml:"name" validate:"required,max=100"`
	Description     string    `bun:"description" json:"description,omitempty" yaml:"description,omitempty"`
	DurationMinutes int       `bun:"duration_minutes,notnull" json:"duration_minutes" yaml:"duration_minutes" validate:"gt=0,lte=1440"`
	Price           float64   `bun:"price,notnull" json:"price" yaml:"price" validate:"gte=0"`
	Category        string    `bun:"category" json:"category,omitempty" yaml:"category,omitempty" validate:"max=50"`
	Active          bool      `bun:"active,notnull" json:"active" yaml:"active"`
	CreatedAt       time.Time `bun:"created_at,notnull" json:"created_at" yaml:"created_at"`
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (c *Client) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (s *Stylist) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && s.HiredAt.IsZero() {
		s.HiredAt = time.Now().UTC()
	}
	return nil
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func entityValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateEntity checks the field-level rules of a Client, Stylist or Service
// and reports the first violation as a *ValidationError.
func ValidateEntity(v any) error {
	err := entityValidator().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return NewValidationError(fmt.Sprintf("%s failed %q validation", toSnake(fe.Field()), fe.Tag()))
	}
	return NewValidationError(err.Error())
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
