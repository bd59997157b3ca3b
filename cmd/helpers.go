package cmd

import (
	"dlchat/internal/auth"
	"dlchat/internal/cli"
	"dlchat/internal/config"
	"dlchat/internal/directline"
)

// newDirectLineClient builds a Direct Line client from the configuration.
// A missing secret is an auth-required condition: there is nothing to talk
// to the channel with.
func newDirectLineClient(cfg config.Config) (*directline.Client, error) {
	if cfg.DirectLine.Secret == "" {
		return nil, &cli.AuthRequiredError{
			Reason: "no Direct Line secret configured (set DIRECT_LINE_SECRET or directline.secret in config.yaml)",
		}
	}

	return directline.NewClient(directline.ClientConfig{
		Secret:   cfg.DirectLine.Secret,
		Endpoint: cfg.DirectLine.Endpoint,
		UserID:   cfg.DirectLine.UserID,
	})
}

// newAuthProvider builds an Entra ID token provider with a file-backed
// account store.
func newAuthProvider(cfg config.Config) (*auth.Provider, error) {
	store, err := auth.NewAccountStore(auth.AccountStoreConfig{FileMode: true})
	if err != nil {
		return nil, err
	}

	return auth.NewProvider(auth.ProviderConfig{
		TenantID:     cfg.Entra.TenantID,
		ClientID:     cfg.Entra.ClientID,
		ClientSecret: cfg.Entra.ClientSecret,
		Authority:    cfg.Entra.Authority,
		Scopes:       cfg.Entra.Scopes,
		CallbackPort: cfg.Entra.CallbackPort,
		Store:        store,
	})
}

// entraConfigured reports whether interactive sign-in is possible at all.
func entraConfigured(cfg config.Config) bool {
	return cfg.Entra.TenantID != "" && cfg.Entra.ClientID != ""
}
