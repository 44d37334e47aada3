// Package indexcmder provides the index command for building the vector index.
package indexcmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/cmd/tenglaafi/wiring"
	"github.com/tenglaafi/tenglaafi/pkg/config"
	"github.com/tenglaafi/tenglaafi/pkg/logger"
)

type indexCommander struct {
	corpus string
	force  bool
	debug  bool
	logger *zap.Logger
}

const indexLongDesc string = `Build or rebuild the vector index from the corpus.

The index is rebuilt when it is empty, when the embedding model changed, or
when the corpus content changed. Use --force to rebuild unconditionally.`

const indexShortDesc string = "Build or rebuild the vector index"

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
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
			fs := config.DefaultFlagSet()
			config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagCorpus})

			cmder.logger = logger.NewLogger(cmder.debug)
			defer cmder.logger.Sync()

			pipeline, cleanup, err := wiring.BuildPipeline(context.Background(), v, cmder.force, cmder.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			stats := pipeline.Stats()
			fmt.Printf("Indexed %d documents (corpus %s, model %s)\n",
				stats.Documents, stats.CorpusHash[:12], stats.EmbeddingModel)

			return nil
		},
	}

	fs := config.DefaultFlagSet()
	config.AddStringFlag(cmd, fs, config.FlagCorpus, &cmder.corpus)
	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Rebuild the index even if it is up to date")

	return cmd
}
