// Package trazacmder
package trazacmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/atelieredu/traza/cmd/traza/config"
	initcmder "github.com/atelieredu/traza/cmd/traza/init"
	servecmder "github.com/atelieredu/traza/cmd/traza/serve"
	sessioncmder "github.com/atelieredu/traza/cmd/traza/session"
	versioncmder "github.com/atelieredu/traza/cmd/version"
)

const trazaLongDesc string = `Traza records and analyzes student-AI tutoring interactions.

Run the server using:
  traza serve          Run the recording gateway API server

Work with sessions from the terminal:
  traza session open   Open a tutoring session
  traza session ask    Send a prompt through the gateway

Manage configuration:
  traza config set     Set a configuration value
  traza config get     Get a configuration value
  traza config list    List all configuration values`

const trazaShortDesc string = "Traza - Cognitive Traceability for AI-Assisted Learning"

func NewTrazaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "traza",
		Short: trazaShortDesc,
		Long:  trazaLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .traza config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(sessioncmder.NewSessionCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
