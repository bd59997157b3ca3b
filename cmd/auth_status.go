package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dlchat/internal/auth"
	"dlchat/internal/cli"
)

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cached accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus()
		},
	}
}

func runAuthStatus() error {
	if _, err := loadConfigAndInitLogging(); err != nil {
		return err
	}

	store, err := auth.NewAccountStore(auth.AccountStoreConfig{FileMode: true})
	if err != nil {
		return err
	}

	accounts := store.List()
	if len(accounts) == 0 {
		fmt.Println("No accounts cached. Run 'dlchat auth login' to sign in.")
		return nil
	}

	cli.RenderAccounts(os.Stdout, accounts)
	return nil
}
