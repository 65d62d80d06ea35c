package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/longevaiapp/EVEREST-sub000/config"
	"github.com/longevaiapp/EVEREST-sub000/internal/app"
	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository/postgres"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/care"
	"github.com/longevaiapp/EVEREST-sub000/pkg/auth"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate needs database.driver %q, got %q", config.DriverPostgres, cfg.Database.Driver)
			}

			db, err := postgres.NewDB(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			l.Info("schema is up to date", "database", cfg.Database.Name)
			return nil
		},
	}
}

func newBoardCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print the hospitalization ward board",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, l, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg, l)
			if err != nil {
				return err
			}
			defer a.Close()

			board, err := a.Care.Tick(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(board)
			}
			return printBoard(cmd.OutOrStdout(), board)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the board as JSON")
	return cmd
}

func printBoard(w io.Writer, board *care.Board) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATIENT\tTYPE\tSTATUS\tMONITORING\tLATE\tPENDING")
	for _, e := range board.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n",
			e.PatientName, e.Type, e.Monitoring.Status, e.Monitoring.Message,
			e.LateAdministrations, e.PendingAdministrations)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d patients, %d urgent, %d overdue\n",
		len(board.Entries), board.Counts[care.StatusUrgent], board.Counts[care.StatusOverdue])
	return err
}

func newTokenCommand() *cobra.Command {
	var (
		id   string
		name string
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return fmt.Errorf("jwt.secret is not configured")
			}
			r, ok := model.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}

			token, err := auth.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer).
				Issue(model.Actor{ID: id, Name: name, Role: r}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "staff member id")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(model.RoleReception), "dashboard role")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
