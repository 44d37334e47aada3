// Package servecmder provides the serve command running the HTTP API server,
// with optional corpus watching and an optional MCP endpoint.
package servecmder

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/tenglaafi/tenglaafi/api"
	"github.com/tenglaafi/tenglaafi/api/mcp"
	"github.com/tenglaafi/tenglaafi/cmd/tenglaafi/wiring"
	"github.com/tenglaafi/tenglaafi/pkg/config"
	"github.com/tenglaafi/tenglaafi/pkg/logger"
	"github.com/tenglaafi/tenglaafi/pkg/rag"
)

type ServeCommander struct {
	listen    string
	corpus    string
	watch     bool
	withMCP   bool
	mcpListen string
	force     bool
	debug     bool
	logger    *zap.Logger
}

const serveLongDesc string = `Run the Tenglaafi HTTP API server.

The server loads the corpus, reindexes it if the embedding model or the
corpus changed, and answers questions over HTTP:
  GET  /health        Liveness check
  POST /query         Answer one question
  POST /query/batch   Answer several questions
  GET  /suggestions   Related topics for a question
  GET  /stats         Pipeline statistics

With --watch the server rebuilds the index when the corpus file changes.
With --mcp an MCP (Model Context Protocol) endpoint is served alongside.`

const serveShortDesc string = "Run the Tenglaafi API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
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
			config.BindRegisteredFlags(v, cmd, fs, []string{
				config.FlagCorpus,
				config.FlagAPIListen,
			})

			return cmder.run(v.GetString("corpus.path"), v.GetString("api.listen"), v)
		},
	}

	fs := config.DefaultFlagSet()
	config.AddStringFlag(cmd, fs, config.FlagCorpus, &cmder.corpus)
	config.AddStringFlag(cmd, fs, config.FlagAPIListen, &cmder.listen)
	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Rebuild the index when the corpus file changes")
	cmd.Flags().BoolVar(&cmder.withMCP, "mcp", false, "Serve an MCP endpoint alongside the API")
	cmd.Flags().StringVar(&cmder.mcpListen, "mcp-listen", ":8002", "Address for the MCP endpoint to listen on")
	cmd.Flags().BoolVar(&cmder.force, "force", false, "Force a full reindex at startup")

	return cmd
}

func (c *ServeCommander) run(corpusPath, listen string, v *viper.Viper) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	ctx := context.Background()

	pipeline, cleanup, err := wiring.BuildPipeline(ctx, v, c.force, c.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	apiServer := api.NewServer(api.Config{ListenAddr: listen}, pipeline, c.logger)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 3)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	var mcpHTTP *http.Server
	if c.withMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Pipeline: pipeline,
			Logger:   c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}

		mcpHTTP = &http.Server{
			Addr:    c.mcpListen,
			Handler: mcpServer.Handler(),
		}

		c.logger.Info("starting MCP endpoint",
			zap.String("listen", c.mcpListen),
		)

		go func() {
			if err := mcpHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("MCP server error: %w", err)
			}
		}()
	}

	var watcher *fsnotify.Watcher
	if c.watch {
		watcher, err = c.watchCorpus(ctx, corpusPath, pipeline, errChan)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		if mcpHTTP != nil {
			mcpHTTP.Shutdown(ctx)
		}
		return apiServer.Shutdown()
	}
}

// watchCorpus rebuilds the index whenever the corpus file is rewritten.
func (c *ServeCommander) watchCorpus(ctx context.Context, corpusPath string, pipeline *rag.Pipeline, errChan chan<- error) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating corpus watcher: %w", err)
	}

	if err := watcher.Add(corpusPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching corpus %s: %w", corpusPath, err)
	}

	c.logger.Info("watching corpus for changes",
		zap.String("path", corpusPath),
	)

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				c.logger.Info("corpus changed, reloading",
					zap.String("event", event.Op.String()),
				)
				if err := pipeline.Reload(ctx); err != nil {
					c.logger.Error("corpus reload failed", zap.Error(err))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				errChan <- fmt.Errorf("corpus watcher error: %w", err)
				return
			}
		}
	}()

	return watcher, nil
}
