// Package api provides the HTTP surface for the traza gateway: session
// lifecycle, interaction recording, trace and risk reporting, research
// export, and LLM provider administration.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string
}
