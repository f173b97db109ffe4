package sessioncmder

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/atelieredu/traza/api"
	"github.com/atelieredu/traza/pkg/cliui"
	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/config"
	"github.com/atelieredu/traza/pkg/dotdir"
)

const modeLongDesc string = `Switch the active session's agent mode.

Valid modes: TUTOR, EVALUATOR, SIMULATOR, GOVERNANCE, TRACEABILITY.

Examples:
  traza session mode SIMULATOR`

const modeShortDesc string = "Switch the session's agent mode"

func newModeCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "mode <mode>",
		Short: modeShortDesc,
		Long:  modeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := apiTarget(cmd, target)
			if err != nil {
				return err
			}
			return runMode(cmd, resolved, args[0])
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&target, "api-target", "a", defaults.Client.APITarget, "Traza API server URL")

	return cmd
}

func runMode(cmd *cobra.Command, target, mode string) error {
	state, configDir, err := activeSession(cmd)
	if err != nil {
		return err
	}

	var session cognitive.Session
	err = newClient(target).do(http.MethodPatch,
		"/v1/sessions/"+state.SessionID,
		api.UpdateSessionRequest{Mode: mode},
		&session,
	)
	if err != nil {
		return err
	}

	state.Mode = string(session.Mode)
	if err := dotdir.NewManager().SaveSessionState(state, configDir); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}

	fmt.Printf("\n  %s Mode set to %s\n\n", cliui.SuccessMark, cliui.ValueStyle.Render(string(session.Mode)))
	return nil
}
