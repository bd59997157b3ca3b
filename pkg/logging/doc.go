// Package logging provides structured logging for dlchat with level filtering
// and per-subsystem tagging.
//
// The package is a thin layer over Go's standard slog package. All log entries
// carry a subsystem attribute ("Auth", "DirectLine", "Reconciler", "Chat",
// "WebChat", "ConfigLoader") so that output can be filtered and attributed.
//
// Usage:
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//	logging.Info("DirectLine", "Started conversation: %s", conv.ID)
//	logging.Error("Auth", err, "Token acquisition failed")
//
// Credential hygiene: access tokens, Direct Line secrets and conversation
// tokens must never be passed to any logging function. Log conversation IDs
// and endpoints instead.
package logging
