package cmd

import (
	"errors"
	"fmt"
	"testing"

	"dlchat/internal/cli"
)

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic error", errors.New("boom"), ExitCodeError},
		{"auth required", &cli.AuthRequiredError{Reason: "no secret"}, ExitCodeAuthRequired},
		{"auth failed", &cli.AuthFailedError{Reason: errors.New("declined")}, ExitCodeAuthFailed},
		{"wrapped auth required", fmt.Errorf("starting chat: %w", &cli.AuthRequiredError{}), ExitCodeAuthRequired},
		{"wrapped auth failed", fmt.Errorf("login: %w", &cli.AuthFailedError{}), ExitCodeAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getExitCode(tt.err); got != tt.want {
				t.Errorf("getExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommandTree(t *testing.T) {
	for _, name := range []string{"chat", "auth", "serve", "version", "self-update"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}

	authCmd, _, err := rootCmd.Find([]string{"auth"})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"login", "status", "logout"} {
		found := false
		for _, sub := range authCmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("auth subcommand %q not registered", name)
		}
	}
}

func TestVersionInjection(t *testing.T) {
	SetVersion("1.2.3")
	if GetVersion() != "1.2.3" {
		t.Errorf("GetVersion() = %q, want 1.2.3", GetVersion())
	}
}
