package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/logging"
	"github.com/dsa-patterns/dsa-api/internal/mail"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

var readPasswordFunc = term.ReadPassword // mockable

// env is what the database-backed commands need.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *store.Store
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	db, err := store.NewGormStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) close() {
	_ = e.db.Close()
	logging.Close(e.log)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dsactl",
		Short:         "Operational commands for the DSA Patterns API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newHashPasswordCmd(), newMigrateCmd(), newMaintenanceCmd(), newCreateAdminCmd())
	return root
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		return "", fmt.Errorf("empty password")
	}
	return string(pwd), nil
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password (prompted when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pwd string
			if len(args) == 1 {
				pwd = args[0]
			} else {
				var err error
				if pwd, err = promptPassword(cmd, "Enter password:"); err != nil {
					return err
				}
			}
			hash, err := utils.HashPassword(pwd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()
			// NewGormStore migrates on open; this second pass is a no-op
			if err := e.db.AutoMigrate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newMaintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Run the escalation, login-failure and token sweeps once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()
			m := service.NewMaintenanceService(e.db, mail.New(e.cfg, e.log), e.cfg, e.log)
			sum, err := m.Run(cmd.Context(), utils.Now())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or promote an existing one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email = strings.TrimSpace(email)
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()
			return createAdmin(cmd, e, email, name)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	return cmd
}

func createAdmin(cmd *cobra.Command, e *env, email, name string) error {
	ctx := cmd.Context()
	if u, err := e.db.GetUserByEmail(ctx, email); err == nil {
		if err := e.db.ChangeUserRole(ctx, u.ID, models.RoleAdmin); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "promoted %s (%s) to admin\n", u.Email, u.ID)
		return nil
	} else if !store.IsNotFound(err) {
		return err
	}
	pwd, err := promptPassword(cmd, "Enter password:")
	if err != nil {
		return err
	}
	u, err := service.NewUserService(e.db, e.log).CreateUser(ctx, email, pwd, name, models.RoleAdmin, "")
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
	return nil
}
