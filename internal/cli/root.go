// Package cli implements datahub-admin, the command-line tool for managing
// users in the DataHub document without going through the web login.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/datahub/internal/logging"
	"github.com/dmitrijs2005/datahub/internal/server/config"
	"github.com/dmitrijs2005/datahub/internal/server/models"
	"github.com/dmitrijs2005/datahub/internal/server/store"
	"github.com/spf13/cobra"
)

// UserStore is the subset of the user store the commands use.
type UserStore interface {
	CreateUser(ctx context.Context, name, email string, hash []byte, role string, active bool) (int, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) []models.UserView
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "text" | "json"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// openStore is a test seam for store.Open.
var openStore = func(ctx context.Context, cfg *config.Config, log logging.Logger) (UserStore, io.Closer, error) {
	s, backend, err := store.Open(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return s, backend, nil
}

// NewRootCommand creates the datahub-admin root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "datahub-admin",
		Short: "Manage DataHub users",
		Long:  "Create and inspect users in the encrypted DataHub document.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the TOML configuration file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log store activity to stderr")

	cmd.AddCommand(NewCreateUserCommand(opts))
	cmd.AddCommand(NewGetUserCommand(opts))
	cmd.AddCommand(NewListUsersCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withStore loads the configuration, opens the store and runs fn.
func withStore(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s UserStore) error) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logging.Nop()
	if opts.Verbose {
		log, err = logging.New(cfg.LogBackend, "debug")
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, closer, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closer.Close()

	return fn(ctx, s)
}
