// Package tenglaaficmder
package tenglaaficmder

import (
	"github.com/spf13/cobra"

	collectcmder "github.com/tenglaafi/tenglaafi/cmd/tenglaafi/collect"
	configcmder "github.com/tenglaafi/tenglaafi/cmd/tenglaafi/config"
	indexcmder "github.com/tenglaafi/tenglaafi/cmd/tenglaafi/index"
	querycmder "github.com/tenglaafi/tenglaafi/cmd/tenglaafi/query"
	servecmder "github.com/tenglaafi/tenglaafi/cmd/tenglaafi/serve"
)

const tenglaafiLongDesc string = `Tenglaafi is a medical question answering service for tropical diseases
and African medicinal plants, backed by a curated corpus.

Common workflows:
  tenglaafi collect      Build the corpus from PubMed
  tenglaafi index        Build or rebuild the vector index
  tenglaafi serve        Run the HTTP API server
  tenglaafi query "..."  Ask a question from the command line`

const tenglaafiShortDesc string = "Tenglaafi - Tropical Medicine QA"

func NewTenglaafiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenglaafi",
		Short: tenglaafiShortDesc,
		Long:  tenglaafiLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing config.toml (default: .tenglaafi/ resolution)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(querycmder.NewQueryCmd())
	cmd.AddCommand(collectcmder.NewCollectCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}
