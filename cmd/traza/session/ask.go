package sessioncmder

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atelieredu/traza/api"
	"github.com/atelieredu/traza/pkg/cliui"
	"github.com/atelieredu/traza/pkg/config"
	"github.com/atelieredu/traza/pkg/gateway"
	"github.com/atelieredu/traza/pkg/utils"
)

const askLongDesc string = `Send a prompt through the recording gateway.

The prompt runs the full pipeline: classification, governance gating, and
agent dispatch, and the interaction is recorded as a trace on the active
session. A prompt asking for the complete solution is blocked and explained
rather than answered.

Examples:
  traza session ask "¿Qué es una cola circular?"
  traza session ask --intent PLAN_APPROACH "¿Cómo encaro este ejercicio?"`

const askShortDesc string = "Send a prompt through the gateway"

func newAskCmd() *cobra.Command {
	var intent, target string

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := apiTarget(cmd, target)
			if err != nil {
				return err
			}
			return runAsk(cmd, resolved, strings.Join(args, " "), intent)
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVar(&intent, "intent", "", "Declared cognitive intent (e.g. PLAN_APPROACH)")
	cmd.Flags().StringVarP(&target, "api-target", "a", defaults.Client.APITarget, "Traza API server URL")

	return cmd
}

func runAsk(cmd *cobra.Command, target, prompt, intent string) error {
	state, _, err := activeSession(cmd)
	if err != nil {
		return err
	}

	var result gateway.InteractionResult
	err = newClient(target).do(http.MethodPost,
		"/v1/sessions/"+state.SessionID+"/interactions",
		api.InteractionRequest{Prompt: prompt, IntentHint: intent},
		&result,
	)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n\n",
		cliui.DimStyle.Render("you>"),
		utils.Truncate(prompt, 72),
	)

	if result.Blocked {
		fmt.Printf("\n  %s %s\n\n", cliui.WarnMark, cliui.KeyStyle.Render("Blocked"))
		fmt.Printf("  %s\n\n", result.Message)
		return nil
	}

	rendered, err := cliui.RenderMarkdown(result.Message)
	if err != nil {
		rendered = result.Message
	}
	fmt.Println(rendered)

	fmt.Printf("  %s %s  %s %.2f\n\n",
		cliui.DimStyle.Render("state:"),
		string(result.CognitiveState),
		cliui.DimStyle.Render("ai involvement:"),
		result.AIInvolvement,
	)
	return nil
}
