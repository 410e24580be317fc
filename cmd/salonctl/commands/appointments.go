package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"salonpro/internal/app"
	"salonpro/internal/domain"
	"salonpro/internal/service/scheduling"
)

func newAppointmentsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appointments",
		Aliases: []string{"appt"},
		Short:   "Book, change and look up appointments",
	}

	cmd.AddCommand(
		newScheduleCommand(e),
		newRescheduleCommand(e),
		newTransitionCommand(e, "cancel", "Cancel a scheduled appointment", (*scheduling.Service).Cancel),
		newTransitionCommand(e, "complete", "Mark an appointment as completed", (*scheduling.Service).Complete),
		newTransitionCommand(e, "no-show", "Record that the client did not turn up", (*scheduling.Service).MarkNoShow),
		newGetAppointmentCommand(e),
		newTodayCommand(e),
		newUpcomingCommand(e),
		newOnCommand(e),
		newHistoryCommand(e),
		newScheduleOfCommand(e),
		newAvailabilityCommand(e),
	)
	return cmd
}

func newScheduleCommand(e *env) *cobra.Command {
	var (
		in    scheduling.ScheduleInput
		start string
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Book an appointment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			if in.StartTime, err = parseDateTime(start, e.loc()); err != nil {
				return err
			}
			appt, err := svcs.Scheduling.Schedule(cmd.Context(), in)
			if err != nil {
				return err
			}
			return e.printAppointment(appt)
		},
	}
	cmd.Flags().Int64Var(&in.ClientID, "client", 0, "client id")
	cmd.Flags().Int64Var(&in.StylistID, "stylist", 0, "stylist id")
	cmd.Flags().Int64Var(&in.ServiceID, "service", 0, "service id")
	cmd.Flags().StringVar(&start, "start", "", "start time, YYYY-MM-DD HH:MM in salon time")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
	cmd.Flags().StringVar(&in.IdempotencyKey, "key", "", "idempotency key; repeating it returns the original booking")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newRescheduleCommand(e *env) *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "reschedule APPOINTMENT_ID",
		Short: "Move a scheduled appointment to a new start time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apptID, err := parseID(args[0], "appointment id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			newStart, err := parseDateTime(start, e.loc())
			if err != nil {
				return err
			}
			appt, err := svcs.Scheduling.Reschedule(cmd.Context(), apptID, newStart)
			if err != nil {
				return err
			}
			return e.printAppointment(appt)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "new start time, YYYY-MM-DD HH:MM in salon time")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newTransitionCommand(e *env, use, short string, apply func(*scheduling.Service, context.Context, int64) (domain.Appointment, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " APPOINTMENT_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apptID, err := parseID(args[0], "appointment id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			appt, err := apply(svcs.Scheduling, cmd.Context(), apptID)
			if err != nil {
				return err
			}
			return e.printAppointment(appt)
		},
	}
}

func newGetAppointmentCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "get APPOINTMENT_ID",
		Short: "Show one appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apptID, err := parseID(args[0], "appointment id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			appt, err := svcs.Queries.Get(cmd.Context(), apptID)
			if err != nil {
				return err
			}
			return e.printAppointment(appt)
		},
	}
}

func newTodayCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List today's scheduled and completed appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			appts, err := svcs.Queries.TodaysAppointments(cmd.Context(), e.now())
			if err != nil {
				return err
			}
			return e.printAppointments(appts)
		},
	}
}

func newUpcomingCommand(e *env) *cobra.Command {
	var hours int
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List scheduled appointments from now on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			appts, err := svcs.Queries.Upcoming(cmd.Context(), e.now(), time.Duration(hours)*time.Hour)
			if err != nil {
				return err
			}
			return e.printAppointments(appts)
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "only the next N hours (0 means no limit)")
	return cmd
}

func newOnCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "on DATE",
		Short: "List every appointment starting on a salon-local date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			date, err := parseDate(args[0], e.loc())
			if err != nil {
				return err
			}
			appts, err := svcs.Queries.AppointmentsOn(cmd.Context(), date)
			if err != nil {
				return err
			}
			return e.printAppointments(appts)
		},
	}
}

func newHistoryCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "history CLIENT_ID",
		Short: "List a client's appointments, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseID(args[0], "client id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			appts, err := svcs.Queries.ClientHistory(cmd.Context(), clientID)
			if err != nil {
				return err
			}
			return e.printAppointments(appts)
		},
	}
}

func newScheduleOfCommand(e *env) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "schedule-of STYLIST_ID",
		Short: "List a stylist's appointments between two dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stylistID, err := parseID(args[0], "stylist id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			start, end, err := dateRange(svcs, from, to, e.now())
			if err != nil {
				return err
			}
			appts, err := svcs.Queries.StylistSchedule(cmd.Context(), stylistID, start, end)
			if err != nil {
				return err
			}
			return e.printAppointments(appts)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&to, "to", "", "last date inclusive, YYYY-MM-DD (default --from)")
	return cmd
}

func newAvailabilityCommand(e *env) *cobra.Command {
	var (
		date           string
		duration, step int
	)
	cmd := &cobra.Command{
		Use:   "availability STYLIST_ID",
		Short: "Show a stylist's free time on a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stylistID, err := parseID(args[0], "stylist id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			day := e.now()
			if date != "" {
				if day, err = parseDate(date, e.loc()); err != nil {
					return err
				}
			}
			length := time.Duration(duration) * time.Minute

			if step > 0 {
				slots, err := svcs.Queries.AvailableSlots(cmd.Context(), stylistID, day, length, time.Duration(step)*time.Minute, e.now())
				if err != nil {
					return err
				}
				t := table{header: []string{"START", "END"}}
				for _, s := range slots {
					t.rows = append(t.rows, []string{e.local(s), e.local(s.Add(length))})
				}
				if slots == nil {
					slots = []time.Time{}
				}
				return e.print(slots, t)
			}

			free, err := svcs.Queries.StylistAvailability(cmd.Context(), stylistID, day, length)
			if err != nil {
				return err
			}
			t := table{header: []string{"FROM", "TO", "MINUTES"}}
			for _, iv := range free {
				t.rows = append(t.rows, []string{e.local(iv.Start), e.local(iv.End), id(int64(iv.Duration() / time.Minute))})
			}
			if free == nil {
				free = []domain.Interval{}
			}
			return e.print(free, t)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&duration, "duration", 30, "minimum gap length in minutes")
	cmd.Flags().IntVar(&step, "step", 0, "list bookable start times every N minutes instead of gaps")
	return cmd
}

// dateRange converts inclusive salon-local dates into a half-open range.
func dateRange(svcs *app.Services, from, to string, now time.Time) (time.Time, time.Time, error) {
	loc := svcs.Hours.Location
	if loc == nil {
		loc = time.UTC
	}
	start := svcs.Hours.Day(now).Start
	if from != "" {
		d, err := parseDate(from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = d
	}
	last := start
	if to != "" {
		d, err := parseDate(to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		last = d
	}
	return start, svcs.Hours.Day(last).End, nil
}
