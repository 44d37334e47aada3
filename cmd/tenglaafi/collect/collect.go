// Package collectcmder provides the collect command for building the corpus
// from PubMed.
package collectcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/pkg/collect"
	"github.com/tenglaafi/tenglaafi/pkg/config"
	"github.com/tenglaafi/tenglaafi/pkg/logger"
)

type collectCommander struct {
	output     string
	maxResults int
	minDocs    int
	debug      bool
	logger     *zap.Logger
}

const collectLongDesc string = `Collect corpus documents from the PubMed E-utilities API.

Runs a curated set of queries about tropical diseases and African medicinal
plants, fetches the matching abstracts, validates and deduplicates them, and
writes the result as a JSON corpus file.

NCBI identity (collect.email and collect.api_key in config.toml) raises the
rate limit and is recommended for large collections.

Examples:
  tenglaafi collect
  tenglaafi collect -o data/corpus.json --max-results 100`

const collectShortDesc string = "Collect corpus documents from PubMed"

func NewCollectCmd() *cobra.Command {
	cmder := &collectCommander{}

	cmd := &cobra.Command{
		Use:   "collect",
		Short: collectShortDesc,
		Long:  collectLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}

			if cmder.output == "" {
				cmder.output = v.GetString("corpus.path")
			}
			if !cmd.Flags().Changed("max-results") {
				cmder.maxResults = v.GetInt("collect.max_results")
			}

			return cmder.run(v.GetString("collect.email"), v.GetString("collect.api_key"))
		},
	}

	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", "Path to write the corpus JSON (default: corpus.path)")
	cmd.Flags().IntVar(&cmder.maxResults, "max-results", collect.DefaultMaxResults, "Maximum abstracts per query")
	cmd.Flags().IntVar(&cmder.minDocs, "min-docs", 0, "Fail unless at least this many documents were collected")

	return cmd
}

func (c *collectCommander) run(email, apiKey string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	client := collect.NewPubMedClient(c.logger,
		collect.WithPubMedIdentity(email, apiKey),
	)
	collector := collect.NewCollector(client, c.logger,
		collect.WithMaxResultsPerQuery(c.maxResults),
	)

	docs, err := collector.Collect(context.Background())
	if err != nil {
		return err
	}

	if len(docs) < c.minDocs {
		return fmt.Errorf("collected %d documents, need at least %d", len(docs), c.minDocs)
	}

	if err := collect.Save(docs, c.output); err != nil {
		return err
	}

	fmt.Printf("Collected %d documents into %s\n", len(docs), c.output)
	return nil
}
