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

const closeLongDesc string = `Complete the active session.

Marks the session completed on the server, which triggers the final
competency evaluation, then clears the local session state.

Examples:
  traza session close`

const closeShortDesc string = "Complete the active session"

func newCloseCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "close",
		Short: closeShortDesc,
		Long:  closeLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := apiTarget(cmd, target)
			if err != nil {
				return err
			}
			return runClose(cmd, resolved)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&target, "api-target", "a", defaults.Client.APITarget, "Traza API server URL")

	return cmd
}

type evaluationsResponse struct {
	Count       int                     `json:"count"`
	Evaluations []*cognitive.Evaluation `json:"evaluations"`
}

func runClose(cmd *cobra.Command, target string) error {
	state, configDir, err := activeSession(cmd)
	if err != nil {
		return err
	}

	c := newClient(target)

	var session cognitive.Session
	err = c.do(http.MethodPatch,
		"/v1/sessions/"+state.SessionID,
		api.UpdateSessionRequest{Status: string(cognitive.StatusCompleted)},
		&session,
	)
	if err != nil {
		return err
	}

	if err := dotdir.NewManager().ClearSessionState(configDir); err != nil {
		return fmt.Errorf("clearing session state: %w", err)
	}

	fmt.Printf("\n  %s Session %s completed\n", cliui.SuccessMark, cliui.ValueStyle.Render(session.ID))

	// The final evaluation is best-effort server-side; show it if present.
	var evals evaluationsResponse
	if err := c.do(http.MethodGet, "/v1/sessions/"+state.SessionID+"/evaluations", nil, &evals); err == nil && evals.Count > 0 {
		latest := evals.Evaluations[evals.Count-1]
		fmt.Printf("  %s %s (%.2f)\n",
			cliui.KeyStyle.Render("Competency:"),
			string(latest.OverallCompetency),
			latest.OverallScore,
		)
	}
	fmt.Println()
	return nil
}
