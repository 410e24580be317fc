package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"salonpro/internal/domain"
)

func newClientsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "clients", Short: "Manage clients"}

	var in domain.Client
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			c, err := svcs.Store.CreateClient(cmd.Context(), in)
			if err != nil {
				return err
			}
			return e.printClients([]domain.Client{c})
		},
	}
	add.Flags().StringVar(&in.FirstName, "first", "", "first name")
	add.Flags().StringVar(&in.LastName, "last", "", "last name")
	add.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&in.Email, "email", "", "email address")
	add.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")

	var phone string
	list := &cobra.Command{
		Use:   "list",
		Short: "List clients, or find one by phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			if phone != "" {
				c, err := svcs.Store.FindClientByPhone(cmd.Context(), phone)
				if err != nil {
					return err
				}
				return e.printClients([]domain.Client{c})
			}
			clients, err := svcs.Store.ListClients(cmd.Context())
			if err != nil {
				return err
			}
			return e.printClients(clients)
		},
	}
	list.Flags().StringVar(&phone, "phone", "", "only the client with this phone number")

	get := &cobra.Command{
		Use:   "get CLIENT_ID",
		Short: "Show one client",
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
			c, err := svcs.Store.GetClient(cmd.Context(), clientID)
			if err != nil {
				return err
			}
			return e.printClients([]domain.Client{c})
		},
	}

	del := &cobra.Command{
		Use:   "delete CLIENT_ID",
		Short: "Remove a client with no scheduled appointments",
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
			if err := svcs.Store.DeleteClient(cmd.Context(), clientID); err != nil {
				return err
			}
			cmd.Printf("client %d deleted\n", clientID)
			return nil
		},
	}

	cmd.AddCommand(add, list, get, del)
	return cmd
}

func (e *env) printClients(clients []domain.Client) error {
	t := table{header: []string{"ID", "NAME", "PHONE", "EMAIL"}}
	for _, c := range clients {
		t.rows = append(t.rows, []string{id(c.ID), c.FullName(), c.Phone, c.Email})
	}
	if clients == nil {
		clients = []domain.Client{}
	}
	return e.print(clients, t)
}

func newStylistsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "stylists", Short: "Manage stylists"}

	in := domain.Stylist{Active: true}
	add := &cobra.Command{
		Use:   "add",
		Short: "Hire a stylist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			st, err := svcs.Store.CreateStylist(cmd.Context(), in)
			if err != nil {
				return err
			}
			return e.printStylists([]domain.Stylist{st})
		},
	}
	add.Flags().StringVar(&in.FirstName, "first", "", "first name")
	add.Flags().StringVar(&in.LastName, "last", "", "last name")
	add.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	add.Flags().StringVar(&in.Email, "email", "", "email address")
	add.Flags().StringVar(&in.Specialty, "specialty", "", "specialty")
	add.Flags().Float64Var(&in.HourlyRate, "rate", 0, "hourly rate")

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List active stylists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			stylists, err := svcs.Store.ListStylists(cmd.Context(), !all)
			if err != nil {
				return err
			}
			return e.printStylists(stylists)
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include deactivated stylists")

	get := &cobra.Command{
		Use:   "get STYLIST_ID",
		Short: "Show one stylist",
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
			st, err := svcs.Store.GetStylist(cmd.Context(), stylistID)
			if err != nil {
				return err
			}
			return e.printStylists([]domain.Stylist{st})
		},
	}

	del := &cobra.Command{
		Use:     "delete STYLIST_ID",
		Aliases: []string{"deactivate"},
		Short:   "Deactivate a stylist with no scheduled appointments",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stylistID, err := parseID(args[0], "stylist id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			if err := svcs.Store.DeactivateStylist(cmd.Context(), stylistID); err != nil {
				return err
			}
			cmd.Printf("stylist %d deactivated\n", stylistID)
			return nil
		},
	}

	cmd.AddCommand(add, list, get, del)
	return cmd
}

func (e *env) printStylists(stylists []domain.Stylist) error {
	t := table{header: []string{"ID", "NAME", "PHONE", "EMAIL", "SPECIALTY", "RATE", "ACTIVE"}}
	for _, s := range stylists {
		t.rows = append(t.rows, []string{id(s.ID), s.FullName(), s.Phone, s.Email, s.Specialty, money(s.HourlyRate), strconv.FormatBool(s.Active)})
	}
	if stylists == nil {
		stylists = []domain.Stylist{}
	}
	return e.print(stylists, t)
}

func newServicesCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{Use: "services", Short: "Manage the service catalogue"}

	in := domain.Service{Active: true}
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svcs.Store.CreateService(cmd.Context(), in)
			if err != nil {
				return err
			}
			return e.printServices([]domain.Service{s})
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "service name")
	add.Flags().StringVar(&in.Description, "description", "", "description")
	add.Flags().IntVar(&in.DurationMinutes, "duration", 0, "duration in minutes")
	add.Flags().Float64Var(&in.Price, "price", 0, "price")
	add.Flags().StringVar(&in.Category, "category", "", "category")

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List active services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			services, err := svcs.Store.ListServices(cmd.Context(), !all)
			if err != nil {
				return err
			}
			return e.printServices(services)
		},
	}
	list.Flags().BoolVar(&all, "all", false, "include deactivated services")

	get := &cobra.Command{
		Use:   "get SERVICE_ID",
		Short: "Show one service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceID, err := parseID(args[0], "service id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svcs.Store.GetService(cmd.Context(), serviceID)
			if err != nil {
				return err
			}
			return e.printServices([]domain.Service{s})
		},
	}

	del := &cobra.Command{
		Use:     "delete SERVICE_ID",
		Aliases: []string{"deactivate"},
		Short:   "Retire a service with no scheduled appointments",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceID, err := parseID(args[0], "service id")
			if err != nil {
				return err
			}
			svcs, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			if err := svcs.Store.DeactivateService(cmd.Context(), serviceID); err != nil {
				return err
			}
			cmd.Printf("service %d deactivated\n", serviceID)
			return nil
		},
	}

	cmd.AddCommand(add, list, get, del)
	return cmd
}

func (e *env) printServices(services []domain.Service) error {
	t := table{header: []string{"ID", "NAME", "DURATION", "PRICE", "CATEGORY", "ACTIVE"}}
	for _, s := range services {
		t.rows = append(t.rows, []string{id(s.ID), s.Name, strconv.Itoa(s.DurationMinutes) + "m", money(s.Price), s.Category, strconv.FormatBool(s.Active)})
	}
	if services == nil {
		services = []domain.Service{}
	}
	return e.print(services, t)
}
