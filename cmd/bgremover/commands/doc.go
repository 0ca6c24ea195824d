// Package commands defines the bgremover CLI.
//
// Commands
//
//   - bgremover          Open the terminal UI
//   - remove <image>     Remove the background of one file and save the result
//   - serve              Run the HTTP upload service
//   - logs               Print recent lines of the TUI log file
//
// Persistent flags override the config file and BGREMOVER_* variables.
package commands
