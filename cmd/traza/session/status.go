package sessioncmder

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/atelieredu/traza/pkg/cliui"
	"github.com/atelieredu/traza/pkg/cognitive"
	"github.com/atelieredu/traza/pkg/config"
	"github.com/atelieredu/traza/pkg/dotdir"
	"github.com/atelieredu/traza/pkg/gateway"
)

const statusLongDesc string = `Show the active session's state.

Displays the persisted session from the .traza/ directory along with its
current server-side status and any detected risks.

Examples:
  traza session status`

const statusShortDesc string = "Show the active session's state"

func newStatusCmd() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := apiTarget(cmd, target)
			if err != nil {
				return err
			}
			return runStatus(cmd, resolved)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&target, "api-target", "a", defaults.Client.APITarget, "Traza API server URL")

	return cmd
}

func runStatus(cmd *cobra.Command, target string) error {
	configDir, _ := cmd.Flags().GetString("config-dir")

	state, err := dotdir.NewManager().LoadSessionState(configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}
	if state == nil {
		fmt.Printf("  %s No active session. Open one with \"traza session open\".\n", cliui.DimStyle.Render("●"))
		return nil
	}

	c := newClient(target)

	var session cognitive.Session
	if err := c.do(http.MethodGet, "/v1/sessions/"+state.SessionID, nil, &session); err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("Session: "), session.ID)
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Student: "), session.StudentID)
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Activity:"), session.ActivityID)
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Mode:    "), string(session.Mode))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Status:  "), string(session.Status))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Started: "), session.StartedAt.Local().Format("2006-01-02 15:04:05"))

	var report gateway.RiskReport
	if err := c.do(http.MethodGet, "/v1/sessions/"+state.SessionID+"/risks", nil, &report); err != nil {
		return err
	}

	if report.Stats.Total == 0 {
		fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Risks:   "), cliui.DimStyle.Render("none detected"))
		return nil
	}

	unresolved := report.Stats.Total - report.Stats.Resolved
	fmt.Printf("  %s %d detected, %d unresolved\n\n", cliui.KeyStyle.Render("Risks:   "), report.Stats.Total, unresolved)
	return nil
}
