package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"dlchat/internal/cli"
	"dlchat/internal/config"
	"dlchat/internal/directline"
	"dlchat/internal/reconciler"
	"dlchat/pkg/logging"
)

type chatOptions struct {
	message        string
	conversationID string
	noAuth         bool
	userName       string
}

func newChatCmd() *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the configured agent",
		Long: `Starts a conversation with the configured Copilot Studio agent.

Without -m, an interactive prompt opens; type 'exit', 'quit' or 'q' to
leave. With -m, the message is sent, the bot's responses are printed and
the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "Single message to send (non-interactive mode)")
	cmd.Flags().StringVarP(&opts.conversationID, "conversation-id", "c", "", "Continue an existing conversation by ID")
	cmd.Flags().BoolVar(&opts.noAuth, "no-auth", false, "Skip Entra ID sign-in (Direct Line secret only)")
	cmd.Flags().StringVarP(&opts.userName, "user-name", "n", "", "Display name for the user")

	return cmd
}

func runChat(ctx context.Context, opts chatOptions) error {
	cfg, err := loadConfigAndInitLogging()
	if err != nil {
		return err
	}

	client, err := newDirectLineClient(cfg)
	if err != nil {
		return err
	}

	userToken := acquireUserToken(ctx, cfg, opts.noAuth)

	conv, err := openConversation(ctx, client, opts, userToken)
	if err != nil {
		return cli.ClassifyError(err, client.Endpoint())
	}

	session := reconciler.NewSession(client, conv)

	if opts.message != "" {
		return runSingleMessage(ctx, cfg, session, opts.message)
	}
	return runInteractive(ctx, cfg, session)
}

// acquireUserToken signs the user in when Entra ID is configured and the
// user did not opt out. Sign-in failure degrades to unauthenticated mode
// with a warning, mirroring --no-auth.
func acquireUserToken(ctx context.Context, cfg config.Config, noAuth bool) string {
	if noAuth || !entraConfigured(cfg) {
		if !noAuth {
			logging.Debug("Chat", "Entra ID not configured, continuing unauthenticated")
		}
		return ""
	}

	provider, err := newAuthProvider(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sign-in unavailable: %v\nContinuing without authentication.\n", err)
		return ""
	}

	token, err := provider.AcquireInteractive(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sign-in failed: %v\nContinuing without authentication.\n", err)
		return ""
	}

	if token.Username != "" {
		fmt.Printf("Signed in as %s\n", token.Username)
	}
	return token.AccessToken
}

// openConversation starts a new conversation, or resumes one by ID in
// degraded secret mode.
func openConversation(ctx context.Context, client *directline.Client, opts chatOptions, userToken string) (*directline.Conversation, error) {
	if opts.conversationID != "" {
		fmt.Printf("Resuming conversation %s\n", opts.conversationID)
		return client.ResumeConversation(opts.conversationID), nil
	}

	return client.StartConversation(ctx, directline.StartOptions{
		UserToken: userToken,
		UserName:  opts.userName,
	})
}

func runSingleMessage(ctx context.Context, cfg config.Config, session *reconciler.Session, message string) error {
	fmt.Printf("You: %s\n", message)

	if _, err := session.Send(ctx, message); err != nil {
		return cli.ClassifyError(err, cfg.DirectLine.Endpoint)
	}

	progress := cli.NewProgress(false)
	progress.Start("Waiting for the bot to respond...")
	responses, err := session.AwaitResponse(ctx, reconciler.Options{WaitBeforeFirstPoll: true})
	progress.Stop()

	if err != nil {
		return cli.ClassifyError(err, cfg.DirectLine.Endpoint)
	}
	if len(responses) == 0 {
		fmt.Println("No response received")
		return nil
	}

	cli.PrintResponses(os.Stdout, cfg.DirectLine.BotName, responses)
	return nil
}

func runInteractive(ctx context.Context, cfg config.Config, session *reconciler.Session) error {
	fmt.Println("Chat mode (type 'exit' or 'quit' to end)")
	fmt.Println()

	// Drain history so the first turn only surfaces fresh replies.
	if err := session.Seed(ctx); err != nil {
		logging.Debug("Chat", "Could not seed conversation history: %v", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "You> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".dlchat_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline instance: %w", err)
	}
	defer rl.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				fmt.Println("Goodbye!")
				return nil
			}
			continue
		} else if err == io.EOF {
			fmt.Println("Goodbye!")
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" || input == "q" {
			fmt.Println("Goodbye!")
			return nil
		}

		if _, err := session.Send(ctx, input); err != nil {
			fmt.Fprintf(os.Stderr, "Error sending message: %v\n", cli.ClassifyError(err, cfg.DirectLine.Endpoint))
			continue
		}

		progress := cli.NewProgress(false)
		progress.Start("")
		responses, err := session.AwaitResponse(ctx, reconciler.Options{})
		progress.Stop()

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", cli.ClassifyError(err, cfg.DirectLine.Endpoint))
			continue
		}
		if len(responses) == 0 {
			fmt.Println("No response received")
			continue
		}

		cli.PrintResponses(os.Stdout, cfg.DirectLine.BotName, responses)
		fmt.Println()
	}
}
