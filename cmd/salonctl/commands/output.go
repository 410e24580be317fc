package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"salonpro/internal/domain"
)

// table is the tabular rendering of a result; json and yaml encode the
// value itself.
type table struct {
	header []string
	rows   [][]string
}

func (e *env) print(v any, t table) error {
	switch e.output {
	case "json":
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(e.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(t.header, "\t"))
		for _, row := range t.rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	}
}

func (e *env) loc() *time.Location {
	if e.svcs != nil && e.svcs.Hours.Location != nil {
		return e.svcs.Hours.Location
	}
	return time.UTC
}

func (e *env) local(t time.Time) string {
	return t.In(e.loc()).Format("2006-01-02 15:04")
}

func (e *env) printAppointments(appts []domain.Appointment) error {
	t := table{header: []string{"ID", "START", "END", "STYLIST", "CLIENT", "SERVICE", "STATUS", "PRICE"}}
	for _, a := range appts {
		t.rows = append(t.rows, []string{
			id(a.ID),
			e.local(a.StartTime),
			e.local(a.End()),
			id(a.StylistID),
			id(a.ClientID),
			id(a.ServiceID),
			string(a.Status),
			money(a.Price),
		})
	}
	if appts == nil {
		appts = []domain.Appointment{}
	}
	return e.print(appts, t)
}

func (e *env) printAppointment(a domain.Appointment) error {
	t := table{
		header: []string{"FIELD", "VALUE"},
		rows: [][]string{
			{"id", id(a.ID)},
			{"client", id(a.ClientID)},
			{"stylist", id(a.StylistID)},
			{"service", id(a.ServiceID)},
			{"start", e.local(a.StartTime)},
			{"end", e.local(a.End())},
			{"duration", strconv.Itoa(a.DurationMinutes) + "m"},
			{"price", money(a.Price)},
			{"status", string(a.Status)},
			{"notes", a.Notes},
		},
	}
	return e.print(a, t)
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseDateTime reads an operator-supplied timestamp. Values without an
// offset are salon-local.
func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewValidationError(fmt.Sprintf("cannot parse %q as a date and time (use YYYY-MM-DD HH:MM)", s))
}

// parseDate reads YYYY-MM-DD as salon-local midnight.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError(fmt.Sprintf("cannot parse %q as a date (use YYYY-MM-DD)", s))
	}
	return t, nil
}

func parseID(s, what string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || v <= 0 {
		return 0, domain.NewValidationError(fmt.Sprintf("%s must be a positive integer, got %q", what, s))
	}
	return v, nil
}
