// Package app is the composition root for bgremover.
//
// # Overview
//
// Every entry point resolves configuration the same way (see LoadConfig),
// builds a zap logger and a Gemini client, and then hands a session
// controller to one of three front ends:
//
//   - Run: the Bubble Tea TUI. Logs go to a file.
//   - RemoveOnce: one file in, one file out. Logs go to stderr.
//   - Serve: the echo HTTP service. Logs go to stderr.
//
// TailLogs reads back the TUI log file.
//
// # Data Flow
//
//	┌──────────────┐
//	│ LoadConfig() │ defaults → TOML → .env/BGREMOVER_* → flags
//	└──────┬───────┘
//	       ├─────> logging.New()      zap logger
//	       ├─────> gemini.NewClient() API client, key read per call
//	       ├─────> session.New()      state machine
//	       └─────> ui.Run() | ctrl.Process() | server.Run()
//
// # Error Handling
//
// Configuration, logger and listener failures are returned to the caller.
// A failed removal in RemoveOnce is returned as the underlying error, so
// callers can use errors.As with gemini.MissingCredentialError or
// gemini.RefusalError.
package app
