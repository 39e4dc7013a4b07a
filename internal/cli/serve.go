package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/urbanweave/streetscope/internal/server"
	"github.com/urbanweave/streetscope/pkg/cache"
	"github.com/urbanweave/streetscope/pkg/pipeline"
)

// serveCommand creates the "serve" command exposing the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noCache   bool
		redisAddr string
		redisDB   int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis pipeline over an HTTP API",
		Long: `Serve starts an HTTP server exposing the pipeline:

  POST /api/accessibility
  POST /api/betweenness
  POST /api/service-area
  GET  /healthz

Request bodies are pipeline option documents in JSON; input paths are
resolved on the server. With --redis, cached networks and results are
shared across server instances instead of using the local file cache.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				store cache.Cache
				err   error
			)
			if redisAddr != "" {
				store, err = cache.NewRedisCache(ctx, cache.RedisConfig{
					Addr:     redisAddr,
					Password: os.Getenv("REDIS_PASSWORD"),
					DB:       redisDB,
				})
			} else {
				store, err = newCache(noCache)
			}
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(store, nil, c.Logger)
			defer runner.Close()

			return server.New(addr, runner, c.Logger).Start(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "Redis address for shared caching (password via REDIS_PASSWORD)")
	cmd.Flags().IntVar(&redisDB, "redis-db", 0, "Redis logical database")

	return cmd
}
