// Package config loads bgremover settings.
//
// # Resolution Order
//
//  1. Built-in defaults (see Defaults)
//  2. The TOML file, ~/.config/bgremover/config.toml unless a path is given
//  3. BGREMOVER_* environment variables, including ones loaded from .env
//  4. Command-line flags, applied by the caller
//
// A missing config file is not an error. Blank values fall back to defaults
// and tilde paths are expanded.
//
// # TOML Format
//
//	model = "gemini-2.5-flash-image"
//	api_key_env = "GEMINI_API_KEY"
//	output_dir = "~/Pictures/no-bg"
//	output_format = "png"        # png | webp
//	log_path = "~/.local/share/bgremover/bgremover.log"
//	log_level = "info"           # debug | info | warn | error
//	listen_addr = "127.0.0.1:8089"
//	result_ttl_seconds = 600
//
// # Credentials
//
// The API key itself is never stored in Config. Only the name of the
// environment variable that holds it is configured; the Gemini client reads
// the variable on every request.
package config
