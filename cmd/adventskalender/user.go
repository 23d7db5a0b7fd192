package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dukerupert/adventskalender/internal/auth"
	"github.com/dukerupert/adventskalender/internal/config"
	"github.com/dukerupert/adventskalender/internal/database"
	"github.com/dukerupert/adventskalender/internal/model"
	"github.com/dukerupert/adventskalender/internal/store"
)

func newUserCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(
		newCreateAdminCommand(configPath),
		newListUsersCommand(configPath),
	)
	return cmd
}

func newCreateAdminCommand(configPath *string) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, or promote an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			users := store.NewUserStore(db)
			user, created, err := ensureAdmin(cmd.Context(), users, username, password, cfg.Auth.BcryptCost)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "created admin %q (id %d)\n", user.Username, user.ID)
			} else {
				fmt.Fprintf(out, "user %q (id %d) is admin\n", user.Username, user.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "Admin username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for a new admin (at least 6 characters)")
	return cmd
}

// ensureAdmin promotes username to admin if it exists, otherwise creates it
// with password. The password is ignored for existing users.
func ensureAdmin(ctx context.Context, users *store.UserStore, username, password string, cost int) (*model.User, bool, error) {
	if len(username) < 3 {
		return nil, false, fmt.Errorf("username must be at least 3 characters long")
	}

	existing, err := users.GetByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if existing.IsAdmin() {
			return existing, false, nil
		}
		promoted, err := users.UpdateRole(ctx, existing.ID, model.RoleAdmin)
		if err != nil {
			return nil, false, err
		}
		return promoted, false, nil
	}

	if len(password) < 6 {
		return nil, false, fmt.Errorf("password must be at least 6 characters long")
	}
	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return nil, false, err
	}
	user, err := users.Create(ctx, username, hash, model.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func newListUsersCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			users, err := store.NewUserStore(db).List(cmd.Context())
			if err != nil {
				return err
			}
			return printUsers(cmd.OutOrStdout(), users)
		},
	}
}

func printUsers(w io.Writer, users []model.User) error {
	if len(users) == 0 {
		_, err := fmt.Fprintln(w, "no users")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tROLE\tCALENDARS\tCREATED")
	for _, u := range users {
		count := 0
		if u.CalendarCount != nil {
			count = *u.CalendarCount
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", u.ID, u.Username, u.Role, count, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(tw, "\n%d users\n", len(users))
	return tw.Flush()
}
