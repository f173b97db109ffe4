// Package sessioncmder provides the session command group for working with
// tutoring sessions against a running traza API server.
//
// The active session is persisted in the .traza/ directory so consecutive
// commands (ask, status, close) operate on the same session without
// re-entering identifiers.
package sessioncmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atelieredu/traza/pkg/config"
	"github.com/atelieredu/traza/pkg/dotdir"
)

const sessionLongDesc string = `Work with tutoring sessions from the terminal.

Opens sessions against a running traza API server and keeps the active
session in the .traza/ directory so subsequent commands resume it.

Examples:
  traza session open --student alice --activity prog2_tp1
  traza session ask "¿Qué es una cola circular?"
  traza session mode SIMULATOR
  traza session status
  traza session close`

const sessionShortDesc string = "Work with tutoring sessions"

func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: sessionShortDesc,
		Long:  sessionLongDesc,
	}

	cmd.AddCommand(newOpenCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newModeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newCloseCmd())

	return cmd
}

// apiTarget resolves the API server URL: flag if changed, config otherwise.
func apiTarget(cmd *cobra.Command, flagValue string) (string, error) {
	if cmd.Flags().Changed("api-target") {
		return flagValue, nil
	}

	configDir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return "", fmt.Errorf("loading config: %w", err)
	}
	return cfg.Client.APITarget, nil
}

// activeSession loads the persisted session state, erroring with a usage
// hint when none exists.
func activeSession(cmd *cobra.Command) (*dotdir.SessionState, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	state, err := dotdir.NewManager().LoadSessionState(configDir)
	if err != nil {
		return nil, "", fmt.Errorf("loading session state: %w", err)
	}
	if state == nil {
		return nil, "", fmt.Errorf("no active session; open one with \"traza session open\"")
	}
	return state, configDir, nil
}
