// Package commands is the salonctl command tree. Commands only collect input,
// call the services and format results; every rule lives in the services.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"salonpro/internal/app"
	"salonpro/internal/config"
	"salonpro/internal/domain"
)

// env is shared by every command of one invocation. The store is opened on
// first use so --help never touches the database.
type env struct {
	configPath string
	output     string
	verbose    bool
	out        io.Writer
	now        func() time.Time

	cfg  config.Config
	svcs *app.Services
}

func Execute(ctx context.Context, version string, args []string, out io.Writer) error {
	return execute(ctx, &env{out: out, now: time.Now}, version, args)
}

func execute(ctx context.Context, e *env, version string, args []string) error {
	root := newRootCommand(e, version)
	root.SetArgs(args)
	root.SetOut(e.out)
	defer e.close()
	return root.ExecuteContext(ctx)
}

func newRootCommand(e *env, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "salonctl",
		Short:         "Manage salon clients, stylists, services and appointments",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch e.output {
			case "table", "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want table, json or yaml)", e.output)
			}
		},
	}

	root.PersistentFlags().StringVarP(&e.configPath, "config", "c", "", "config file path (default $SALONPRO_CONFIG)")
	root.PersistentFlags().StringVarP(&e.output, "output", "o", "table", "output format: table, json or yaml")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "log store activity to stderr")

	root.AddCommand(newClientsCommand(e))
	root.AddCommand(newStylistsCommand(e))
	root.AddCommand(newServicesCommand(e))
	root.AddCommand(newAppointmentsCommand(e))
	root.AddCommand(newReportsCommand(e))
	root.AddCommand(newMigrateCommand(e))
	return root
}

func (e *env) services(ctx context.Context) (*app.Services, error) {
	if e.svcs != nil {
		return e.svcs, nil
	}
	cfg, err := config.Load(e.configPath)
	if err != nil {
		return nil, err
	}
	level := "warn"
	if e.verbose {
		level = "debug"
	}
	log := app.NewLogger(os.Stderr, level, "salonctl")

	st, err := app.OpenStore(ctx, cfg, log, true)
	if err != nil {
		return nil, err
	}
	svcs, err := app.NewServices(st, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	e.cfg = cfg
	e.svcs = svcs
	return svcs, nil
}

func (e *env) close() {
	if e.svcs != nil {
		_ = e.svcs.Store.Close()
		e.svcs = nil
	}
}

// Describe turns a service error into the one-line message shown to the
// operator.
func Describe(err error) string {
	var (
		conflict     *domain.ConflictError
		invalidState *domain.InvalidStateError
		vErr         *domain.ValidationError
		notFound     *domain.NotFoundError
	)
	switch {
	case errors.As(err, &conflict):
		return fmt.Sprintf("time slot unavailable: appointment %d already runs %s-%s",
			conflict.AppointmentID, conflict.Start.Format("2006-01-02 15:04"), conflict.End.Format("15:04"))
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return "this request key was already used for a different appointment"
	case errors.As(err, &invalidState):
		return fmt.Sprintf("appointment %d is %s and cannot become %s", invalidState.AppointmentID, invalidState.From, invalidState.To)
	case errors.Is(err, domain.ErrEntityInUse):
		return "still referenced by scheduled appointments; cancel or complete them first"
	case errors.As(err, &vErr):
		return "invalid input: " + vErr.Error()
	case errors.As(err, &notFound):
		return notFound.Error()
	default:
		return err.Error()
	}
}
