package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/cryptox"
	"github.com/spf13/cobra"
)

const minPasswordLen = 8

type createUserOptions struct {
	Name     string
	Email    string
	Password string
	Role     string
	Inactive bool
}

// NewCreateUserCommand creates the create-user command.
func NewCreateUserCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &createUserOptions{}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a user",
		Long: `Create a user in the DataHub document.

The password is read from the terminal without echo unless --password is
given. An existing email is reported and left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, rootOpts, func(ctx context.Context, s UserStore) error {
				return runCreateUser(ctx, cmd.OutOrStdout(), s, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "login email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&opts.Role, "role", common.RoleAdmin, "role name")
	cmd.Flags().BoolVar(&opts.Inactive, "inactive", false, "create the account disabled")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runCreateUser(ctx context.Context, w io.Writer, s UserStore, opts *createUserOptions) error {
	email := common.NormalizeEmail(opts.Email)
	if email == "" {
		return errors.New("email is required")
	}

	if u, err := s.GetUserByEmail(ctx, email); err == nil {
		fmt.Fprintf(w, "User %s already exists (id %d)\n", u.Email, u.ID)
		return nil
	}

	pw := []byte(opts.Password)
	if len(pw) == 0 {
		var err error
		if pw, err = promptPassword(w, "Password: "); err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}
	defer common.WipeByteArray(pw)

	if len(pw) < minPasswordLen {
		return fmt.Errorf("%w: at least %d characters", common.ErrPasswordTooShort, minPasswordLen)
	}

	hash, err := cryptox.HashPassword(string(pw))
	if err != nil {
		return err
	}

	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = email
	}

	id, err := s.CreateUser(ctx, name, email, hash, strings.TrimSpace(opts.Role), !opts.Inactive)
	switch {
	case errors.Is(err, common.ErrDuplicateEmail):
		fmt.Fprintf(w, "User %s already exists\n", email)
		return nil
	case err != nil:
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(w, "User %s created (id %d)\n", email, id)
	return nil
}

// NewGetUserCommand creates the get-user command.
func NewGetUserCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get-user <email>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, rootOpts, func(ctx context.Context, s UserStore) error {
				u, err := s.GetUserByEmail(ctx, args[0])
				if err != nil {
					if errors.Is(err, common.ErrorNotFound) {
						return fmt.Errorf("user %s not found", common.NormalizeEmail(args[0]))
					}
					return err
				}

				v := u.View()
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), v)
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "ID:         %d\n", v.ID)
				fmt.Fprintf(w, "Name:       %s\n", v.Name)
				fmt.Fprintf(w, "Email:      %s\n", v.Email)
				fmt.Fprintf(w, "Role:       %s\n", v.Role)
				fmt.Fprintf(w, "Active:     %t\n", v.Active)
				fmt.Fprintf(w, "Last login: %s\n", formatTime(v.LastLogin))
				return nil
			})
		},
	}
}

// NewListUsersCommand creates the list-users command.
func NewListUsersCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list-users",
		Short: "List all users, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, rootOpts, func(ctx context.Context, s UserStore) error {
				users := s.ListUsers(ctx)
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), users)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE\tACTIVE\tLAST LOGIN")
				for _, u := range users {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Email, u.Name, u.Role, u.Active, formatTime(u.LastLogin))
				}
				return tw.Flush()
			})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
