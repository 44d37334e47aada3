// Package querycmder provides the query command for one-shot questions.
package querycmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/cmd/tenglaafi/wiring"
	"github.com/tenglaafi/tenglaafi/pkg/config"
	"github.com/tenglaafi/tenglaafi/pkg/logger"
	"github.com/tenglaafi/tenglaafi/pkg/rag"
)

type queryCommander struct {
	corpus  string
	topK    int
	sources bool
	noCache bool
	debug   bool
	logger  *zap.Logger
}

const queryLongDesc string = `Ask a single question from the command line.

The pipeline retrieves the most relevant corpus documents, generates an
answer from them, and prints the answer with its sources.

Examples:
  tenglaafi query "Quels sont les symptômes du paludisme ?"
  tenglaafi query -k 5 "Quelles plantes traitent la fièvre ?"`

const queryShortDesc string = "Ask a question from the command line"

func NewQueryCmd() *cobra.Command {
	cmder := &queryCommander{}

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: queryShortDesc,
		Long:  queryLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			config.BindRegisteredFlags(v, cmd, fs, []string{
				config.FlagCorpus,
				config.FlagTopK,
			})

			return cmder.run(v, strings.Join(args, " "))
		},
	}

	fs := config.DefaultFlagSet()
	config.AddStringFlag(cmd, fs, config.FlagCorpus, &cmder.corpus)
	config.AddIntFlag(cmd, fs, config.FlagTopK, &cmder.topK)
	cmd.Flags().BoolVar(&cmder.sources, "sources", true, "Print the consulted sources")
	cmd.Flags().BoolVar(&cmder.noCache, "no-cache", false, "Bypass the query cache")

	return cmd
}

func (c *queryCommander) run(v *viper.Viper, question string) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()

	pipeline, cleanup, err := wiring.BuildPipeline(ctx, v, false, c.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	answer, sources, err := pipeline.Query(ctx, question, rag.QueryOptions{
		K:             v.GetInt("rag.top_k"),
		ReturnSources: c.sources,
		UseCache:      !c.noCache,
	})
	if err != nil {
		return err
	}

	fmt.Println(answer)

	if c.sources && len(sources) > 0 {
		fmt.Println()
		for _, src := range sources {
			fmt.Printf("  [%d] %s (%d%%) %s\n", src.ID, src.Title, int(src.Similarity*100), src.URL)
		}
	}

	return nil
}
