package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/flotilla-sh/flotilla/pkg/types"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage alert recipients",
}

var adminAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register an administrator webhook for alerts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		webhook, _ := cmd.Flags().GetString("webhook")
		email, _ := cmd.Flags().GetString("email")
		if webhook == "" {
			return fmt.Errorf("--webhook is required")
		}

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		admin := &types.Administrator{
			ID:         uuid.New().String(),
			Name:       args[0],
			Email:      email,
			WebhookURL: webhook,
		}
		if err := app.store.CreateAdministrator(admin); err != nil {
			return err
		}

		fmt.Printf("✓ Administrator %s registered (id %s)\n", admin.Name, admin.ID)
		return nil
	},
}

var adminRemoveCmd = &cobra.Command{
	Use:     "rm ADMIN_ID",
	Aliases: []string{"remove"},
	Short:   "Remove an administrator",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		if err := app.store.DeleteAdministrator(args[0]); err != nil {
			return err
		}
		fmt.Println("✓ Administrator removed")
		return nil
	},
}

var adminListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List administrators",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		admins, err := app.store.ListAdministrators()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tEMAIL\tWEBHOOK")
		for _, a := range admins {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", shortID(a.ID), a.Name, a.Email, a.WebhookURL)
		}
		return w.Flush()
	},
}

func init() {
	adminCmd.AddCommand(adminAddCmd)
	adminCmd.AddCommand(adminRemoveCmd)
	adminCmd.AddCommand(adminListCmd)

	adminAddCmd.Flags().String("webhook", "", "Webhook URL alerts are POSTed to")
	adminAddCmd.Flags().String("email", "", "Contact email (informational)")
}
