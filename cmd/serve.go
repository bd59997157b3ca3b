package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"dlchat/internal/config"
	"dlchat/internal/reconciler"
	"dlchat/internal/webchat"
	"dlchat/pkg/logging"
)

func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local web chat page",
		Long: `Runs a local HTTP server with a browser chat page backed by the
configured agent. The config file is watched; changing the Direct Line
secret takes effect on the next conversation without a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), host, port)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host to bind (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config)")

	return cmd
}

func runServe(ctx context.Context, host string, port int) error {
	cfg, err := loadConfigAndInitLogging()
	if err != nil {
		return err
	}

	if host == "" {
		host = cfg.Serve.Host
	}
	if port == 0 {
		port = cfg.Serve.Port
	}

	client, err := newDirectLineClient(cfg)
	if err != nil {
		return err
	}

	configPath := configPathFlag
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	server, err := webchat.NewServer(client, webchat.Config{
		Host:       host,
		Port:       port,
		BotName:    cfg.DirectLine.BotName,
		ConfigPath: filepath.Join(configPath, "config.yaml"),
		Await:      reconciler.Options{},
	})
	if err != nil {
		return err
	}

	// Rebuild the client when the config file changes, so a rotated Direct
	// Line secret applies to new conversations without a restart.
	server.SetConfigChangeHandler(func() {
		reloaded, err := config.LoadConfig(configPath)
		if err != nil {
			logging.Warn("Serve", "Config reload failed: %v", err)
			return
		}
		if reloaded.DirectLine.Secret == cfg.DirectLine.Secret &&
			reloaded.DirectLine.Endpoint == cfg.DirectLine.Endpoint {
			return
		}
		rebuilt, err := newDirectLineClient(reloaded)
		if err != nil {
			logging.Warn("Serve", "Config reload ignored: %v", err)
			return
		}
		server.SetClient(rebuilt)
		cfg = reloaded
		logging.Info("Serve", "Direct Line settings changed; new conversations will use them")
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}
