package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/macromojo/macromojo/internal/application/user"
	"github.com/macromojo/macromojo/internal/infrastructure/config"
	"github.com/macromojo/macromojo/internal/infrastructure/container"
)

var (
	newUsername string
	newPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an account with the default targets",
	Long: `Creates an account the same way the signup page does: the username
and password rules apply and the new account starts with the default
daily targets.

Example:
  macromojo user create --username alice --password 'hungry123'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return createUser(cmd, cfg)
	},
}

func createUser(cmd *cobra.Command, cfg *config.Config) error {
	var users *user.Service
	app := fx.New(container.New(cfg, container.Core), fx.Populate(&users))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = app.Stop(context.Background()) }()

	id, err := users.Register(ctx, user.SignupCommand{
		Username: newUsername,
		Password: newPassword,
		Confirm:  newPassword,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", newUsername, id)
	return nil
}

func init() {
	userCreateCmd.Flags().StringVarP(&newUsername, "username", "u", "", "username")
	userCreateCmd.Flags().StringVarP(&newPassword, "password", "p", "", "password")
	_ = userCreateCmd.MarkFlagRequired("username")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}
