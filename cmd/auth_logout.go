package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"dlchat/internal/auth"
	"dlchat/internal/cli"
)

func newAuthLogoutCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove cached accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every cached account")

	return cmd
}

func runAuthLogout(all bool) error {
	cfg, err := loadConfigAndInitLogging()
	if err != nil {
		return err
	}

	store, err := auth.NewAccountStore(auth.AccountStoreConfig{FileMode: true})
	if err != nil {
		return err
	}

	if all {
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("Removed all cached accounts.")
		return nil
	}

	if !entraConfigured(cfg) {
		return &cli.AuthRequiredError{
			Reason: "Entra ID is not configured; use --all to clear every cached account",
		}
	}

	if store.Get(cfg.Entra.TenantID, cfg.Entra.ClientID) == nil {
		fmt.Println("No cached account for the configured tenant.")
		return nil
	}

	if err := store.Remove(cfg.Entra.TenantID, cfg.Entra.ClientID); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}
