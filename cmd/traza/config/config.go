// Package configcmder provides the config command for managing persistent
// traza configuration stored in the .traza/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent traza configuration.

Configuration is stored as config.toml in the .traza/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values, and TRAZA_ environment variables sit between the two.

Keys use dotted notation matching the TOML section structure:
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  api.listen,
  llm.provider, llm.model, llm.base_url, llm.max_tokens, llm.timeout_seconds,
  governance.patterns_path,
  risk.high_involvement, risk.streak_length, risk.blocked_attempts,
  risk.acceptance_window,
  export.k_anonymity,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  client.api_target

Use subcommands to get, set, or list configuration values:
  traza config set <key> <value>    Set a configuration value
  traza config get <key>            Get a configuration value
  traza config list                 List all configuration values

Examples:
  traza config set llm.provider anthropic
  traza config set storage.driver sqlite
  traza config get llm.provider
  traza config list`

const configShortDesc string = "Manage persistent traza configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
