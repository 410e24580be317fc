package commands

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"salonpro/internal/app"
)

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store applies pending migrations.
			if _, err := e.services(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("schema is up to date (%s)\n", describeDatabase(e.cfg.DatabaseURL))
			return nil
		},
	}
}

func describeDatabase(databaseURL string) string {
	if strings.HasPrefix(databaseURL, "memory://") {
		return "in-memory store"
	}
	var parts []string
	for _, a := range app.DatabaseLogArgs(databaseURL) {
		if attr, ok := a.(slog.Attr); ok {
			parts = append(parts, attr.String())
		}
	}
	return strings.Join(parts, " ")
}
