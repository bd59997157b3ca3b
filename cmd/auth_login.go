package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dlchat/internal/cli"
)

func newAuthLoginCmd() *cobra.Command {
	var appToken bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to Entra ID",
		Long: `Signs in interactively through the browser and caches the account for
later runs. With --app, acquires an application token using the client
credentials flow instead; application tokens are not cached.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd, appToken)
		},
	}

	cmd.Flags().BoolVar(&appToken, "app", false, "Use the client credentials flow (requires a client secret)")

	return cmd
}

func runAuthLogin(cmd *cobra.Command, appToken bool) error {
	cfg, err := loadConfigAndInitLogging()
	if err != nil {
		return err
	}

	if !entraConfigured(cfg) {
		return &cli.AuthRequiredError{
			Reason: "Entra ID is not configured (set ENTRA_TENANT_ID and ENTRA_CLIENT_ID, or entra.tenantId and entra.clientId in config.yaml)",
		}
	}

	provider, err := newAuthProvider(cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if appToken {
		token, err := provider.AcquireClientCredentials(ctx)
		if err != nil {
			return &cli.AuthFailedError{Reason: err}
		}
		fmt.Printf("Acquired application token (expires in %s)\n",
			(time.Duration(token.ExpiresIn) * time.Second).Round(time.Second))
		return nil
	}

	token, err := provider.AcquireInteractive(ctx)
	if err != nil {
		return &cli.AuthFailedError{Reason: err}
	}

	who := token.Username
	if who == "" {
		who = "(unknown user)"
	}
	fmt.Printf("Signed in as %s (token valid for %s)\n", who,
		(time.Duration(token.ExpiresIn) * time.Second).Round(time.Second))
	return nil
}
