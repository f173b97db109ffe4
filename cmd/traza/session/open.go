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

const openLongDesc string = `Open a new tutoring session.

Creates a session on the traza API server and makes it the active session
for subsequent ask, status, and close commands.

Examples:
  traza session open --student alice --activity prog2_tp1`

const openShortDesc string = "Open a new tutoring session"

func newOpenCmd() *cobra.Command {
	var studentID, activityID, target string

	cmd := &cobra.Command{
		Use:   "open",
		Short: openShortDesc,
		Long:  openLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := apiTarget(cmd, target)
			if err != nil {
				return err
			}
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runOpen(resolved, studentID, activityID, configDir)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&studentID, "student", "", "Student identifier (required)")
	cmd.Flags().StringVar(&activityID, "activity", "", "Activity identifier (required)")
	cmd.Flags().StringVarP(&target, "api-target", "a", defaults.Client.APITarget, "Traza API server URL")
	cmd.MarkFlagRequired("student")
	cmd.MarkFlagRequired("activity")

	return cmd
}

func runOpen(target, studentID, activityID, configDir string) error {
	var session cognitive.Session
	err := newClient(target).do(http.MethodPost, "/v1/sessions", api.CreateSessionRequest{
		StudentID:  studentID,
		ActivityID: activityID,
	}, &session)
	if err != nil {
		return err
	}

	state := &dotdir.SessionState{
		SessionID:  session.ID,
		StudentID:  session.StudentID,
		ActivityID: session.ActivityID,
		Mode:       string(session.Mode),
	}
	if err := dotdir.NewManager().SaveSessionState(state, configDir); err != nil {
		return fmt.Errorf("saving session state: %w", err)
	}

	fmt.Printf("\n  %s Opened session %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(session.ID))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Student: "), session.StudentID)
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Activity:"), session.ActivityID)
	fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Mode:    "), string(session.Mode))
	return nil
}
