package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ukydev/rentacar/internal/models"
	"github.com/ukydev/rentacar/internal/store"
)

func (a *app) vehiclesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vehicles",
		Short: "Fetch and list the fleet",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if err := a.store.FetchVehicles(ctx); err != nil {
				return fmt.Errorf("fetch vehicles: %w", err)
			}
			return printVehicles(cmd.OutOrStdout(), a.store.Vehicles())
		}),
	}
}

func (a *app) locationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "Fetch and list pickup locations",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if err := a.store.FetchLocations(ctx); err != nil {
				return fmt.Errorf("fetch locations: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCITY")
			for _, l := range a.store.Locations() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", l.ID, l.Name, l.City)
			}
			return w.Flush()
		}),
	}
}

func (a *app) vehicleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vehicle <slug>",
		Short: "Show one vehicle of the fleet",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			v, err := a.selectVehicle(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s (%d)\n", v.Make, v.Model, v.Year)
			fmt.Fprintf(out, "  slug:      %s\n", v.Slug)
			fmt.Fprintf(out, "  type:      %s\n", v.Type)
			fmt.Fprintf(out, "  price/day: %.2f\n", v.PricePerDay)
			fmt.Fprintf(out, "  locations: %s\n", locationNames(v.Locations))
			for _, d := range v.Dates {
				fmt.Fprintf(out, "  booked:    %s -> %s\n", formatTime(d.Pickup.Time), formatTime(d.DropOff.Time))
			}
			return nil
		}),
	}
}

// selectVehicle makes slug current, fetching the fleet first when none is held.
func (a *app) selectVehicle(ctx context.Context, slug string) (models.Vehicle, error) {
	if len(a.store.Vehicles()) == 0 {
		if err := a.store.FetchVehicles(ctx); err != nil {
			return models.Vehicle{}, fmt.Errorf("fetch vehicles: %w", err)
		}
	}
	if !a.store.SelectVehicle(slug) {
		return models.Vehicle{}, fmt.Errorf("vehicle %q not found", slug)
	}
	v, _ := a.store.CurrentVehicle()
	return v, nil
}

func (a *app) searchCmd() *cobra.Command {
	var (
		location int64
		pickup   string
		dropoff  string
		remote   string
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find vehicles available at a location for a period",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("remote") {
				vehicles, err := a.store.FilterVehiclesRemote(ctx, remote)
				if err != nil {
					return fmt.Errorf("filter vehicles: %w", err)
				}
				return printVehicles(cmd.OutOrStdout(), vehicles)
			}

			if err := a.applyCriteria(cmd, location, pickup, dropoff); err != nil {
				return err
			}
			if err := a.store.FetchVehicles(ctx); err != nil {
				return fmt.Errorf("fetch vehicles: %w", err)
			}
			return printVehicles(cmd.OutOrStdout(), a.store.FilterVehiclesLocally())
		}),
	}
	cmd.Flags().Int64Var(&location, "location", 0, "pickup location id")
	cmd.Flags().StringVar(&pickup, "pickup", "", "pickup date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&dropoff, "dropoff", "", "drop-off date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&remote, "remote", "", "let the backend filter by this criteria instead")
	return cmd
}

// applyCriteria stores the flags that were given. Unset flags keep the
// criteria saved by an earlier run.
func (a *app) applyCriteria(cmd *cobra.Command, location int64, pickup, dropoff string) error {
	if cmd.Flags().Changed("location") {
		a.store.SetLocation(location)
	}
	for kind, raw := range map[models.DateKind]string{models.DatePickup: pickup, models.DateDropOff: dropoff} {
		if !cmd.Flags().Changed(string(kind)) {
			continue
		}
		ts, err := models.ParseTimestamp(raw)
		if err != nil {
			return fmt.Errorf("--%s: %w", kind, err)
		}
		if err := a.store.SetSearchDate(kind, ts.Time); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) registerCmd() *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if req.PasswordConfirmation == "" {
				req.PasswordConfirmation = req.Password
			}
			if err := a.store.RegisterUser(ctx, req); err != nil {
				return fmt.Errorf("register: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s, you can now log in\n", req.Email)
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	cmd.Flags().StringVar(&req.PasswordConfirmation, "password-confirmation", "", "password again (defaults to --password)")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var req models.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			err := a.store.Login(ctx, req)
			out := cmd.OutOrStdout()
			var failure *models.LoginFailure
			if errors.As(err, &failure) {
				if msg := a.store.InvalidCredentials(); msg != "" {
					fmt.Fprintln(out, msg)
				}
				for _, msg := range a.store.LoginErrors() {
					fmt.Fprintln(out, "-", msg)
				}
				return errors.New("login failed")
			}
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			user, _ := a.store.User()
			fmt.Fprintf(out, "Logged in as %s\n", displayName(user))
			return nil
		}),
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token",
		Args:  cobra.NoArgs,
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, _ []string) error {
			a.store.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func (a *app) reserveCmd() *cobra.Command {
	var (
		slug     string
		location int64
		pickup   string
		dropoff  string
		notes    string
	)
	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Book a vehicle for the search period",
		Args:  cobra.NoArgs,
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, _ []string) error {
			if err := a.applyCriteria(cmd, location, pickup, dropoff); err != nil {
				return err
			}
			v, err := a.selectVehicle(ctx, slug)
			if err != nil {
				return err
			}
			criteria := a.store.Criteria()
			req := models.ReservationRequest{
				VehicleID:  v.ID,
				LocationID: criteria.LocationID,
				Pickup:     models.Timestamp{Time: criteria.Pickup},
				DropOff:    models.Timestamp{Time: criteria.DropOff},
				Notes:      notes,
			}
			if err := a.store.MakeReservation(ctx, req); err != nil {
				if errors.Is(err, store.ErrNotAuthenticated) {
					return errors.New("log in first")
				}
				return fmt.Errorf("reserve: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reserved %s from %s to %s\n",
				v.Slug, formatTime(criteria.Pickup), formatTime(criteria.DropOff))
			return nil
		}),
	}
	cmd.Flags().StringVar(&slug, "vehicle", "", "vehicle slug")
	cmd.Flags().Int64Var(&location, "location", 0, "pickup location id (defaults to the search location)")
	cmd.Flags().StringVar(&pickup, "pickup", "", "pickup date (defaults to the search date)")
	cmd.Flags().StringVar(&dropoff, "dropoff", "", "drop-off date (defaults to the search date)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes for the agency")
	_ = cmd.MarkFlagRequired("vehicle")
	return cmd
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session",
		Args:  cobra.NoArgs,
		RunE: a.run(func(_ context.Context, cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			user, ok := a.store.User()
			if !ok {
				fmt.Fprintln(out, "Not logged in")
				return nil
			}
			state := "logged out"
			if a.store.IsAuthenticated() {
				state = "logged in"
			}
			fmt.Fprintf(out, "%s <%s> (%s)\n", displayName(user), user.Email, state)
			if claims, ok := a.store.Claims(); ok && !claims.ExpiresAt.IsZero() {
				fmt.Fprintf(out, "Token expires %s\n", formatTime(claims.ExpiresAt))
			}
			return nil
		}),
	}
}

func printVehicles(out io.Writer, vehicles []models.Vehicle) error {
	if len(vehicles) == 0 {
		_, err := fmt.Fprintln(out, "No vehicles")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tVEHICLE\tTYPE\tPRICE/DAY\tLOCATIONS")
	for _, v := range vehicles {
		fmt.Fprintf(w, "%s\t%s %s %d\t%s\t%.2f\t%s\n",
			v.Slug, v.Make, v.Model, v.Year, v.Type, v.PricePerDay, locationNames(v.Locations))
	}
	return w.Flush()
}

func locationNames(locations []models.Location) string {
	names := make([]string, 0, len(locations))
	for _, l := range locations {
		names = append(names, fmt.Sprintf("%s (#%d)", l.Name, l.ID))
	}
	return strings.Join(names, ", ")
}

func displayName(u models.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}
