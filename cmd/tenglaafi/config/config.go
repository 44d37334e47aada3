// Package configcmder provides the config command for managing persistent
// tenglaafi configuration stored in the .tenglaafi/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent tenglaafi configuration.

Configuration is stored as config.toml in the .tenglaafi/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  corpus.path, api.listen,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.provider, llm.target, llm.model, llm.max_tokens, llm.temperature,
  rag.top_k, rag.cache_size, rag.context_budget, rag.excerpt_limit,
  events.provider, events.brokers, events.topic,
  collect.email, collect.api_key, collect.max_results

Use subcommands to get, set, or list configuration values:
  tenglaafi config set <key> <value>    Set a configuration value
  tenglaafi config get <key>            Get a configuration value
  tenglaafi config list                 List all configuration values

Examples:
  tenglaafi config set embedding.model nomic-embed-text
  tenglaafi config set vector_store.provider sqlite
  tenglaafi config get rag.top_k
  tenglaafi config list`

const configShortDesc string = "Manage persistent tenglaafi configuration"

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
