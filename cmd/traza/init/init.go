// Package initcmder provides the init command for initializing a local
// .traza directory in the current working directory.
package initcmder

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atelieredu/traza/pkg/config"
)

const (
	dirName = ".traza"
)

const initLongDesc string = `Initialize a new .traza/ directory in the current working directory.

Creates a local .traza/ directory that takes precedence over the default
~/.traza/ directory for configuration, session state, and other traza
operations, and writes a config.toml with default values. This is useful
for maintaining separate traza state per course or activity.

With --preset, the config.toml is preconfigured for a known LLM provider
(mock, openai, anthropic, gemini), or fetched from an HTTP(S) URL pointing
at a shared institutional config.

Examples:
  traza init
  traza init --preset mock
  traza init --preset anthropic
  traza init --preset https://configs.example.edu/traza/prog2.toml`

const initShortDesc string = "Initialize a local .traza/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "",
		"Provider preset ("+strings.Join(config.ValidPresetNames(), ", ")+") or a config URL")

	return cmd
}

func runInit(preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() && preset == "" {
		fmt.Printf("Already initialized: %s\n", dir)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .traza directory: %w", err)
	}

	cfg, err := resolveConfig(preset)
	if err != nil {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Initialized .traza directory: %s\n", dir)
	return nil
}

// resolveConfig builds the initial config from the preset argument: empty
// means defaults, a URL is fetched, anything else is a named preset.
func resolveConfig(preset string) (*config.Config, error) {
	switch {
	case preset == "":
		return config.NewDefaultConfig(), nil

	case strings.HasPrefix(preset, "http://"), strings.HasPrefix(preset, "https://"):
		return fetchRemoteConfig(preset)

	default:
		return config.PresetConfig(preset)
	}
}

func fetchRemoteConfig(url string) (*config.Config, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
