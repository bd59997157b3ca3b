// Package cli holds shared terminal helpers for the dlchat commands:
// progress spinners, transcript rendering, account tables, and error
// classification for exit codes and user-facing messages.
package cli
