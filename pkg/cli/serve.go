package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/courseguide/pkg/catalog"
	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/server"
	"github.com/m-mizutani/courseguide/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	var (
		cfg          config
		addr         string
		allowOrigin  string
		watchCatalog bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Aliases:     []string{"a"},
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("COURSEGUIDE_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "allow-origin",
			Usage:       "Access-Control-Allow-Origin value, empty to disable CORS headers",
			Value:       "*",
			Sources:     cli.EnvVars("COURSEGUIDE_ALLOW_ORIGIN"),
			Destination: &allowOrigin,
		},
		&cli.BoolFlag{
			Name:        "watch-catalog",
			Usage:       "Reload the catalog file when it changes",
			Sources:     cli.EnvVars("COURSEGUIDE_WATCH_CATALOG"),
			Destination: &watchCatalog,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP chat API",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, os.Stdout)
			logger := logging.From(ctx)

			if watchCatalog && cfg.catalogPath == "" {
				return goerr.New("--watch-catalog requires --catalog")
			}

			// The server starts without a credential so that requests get a
			// configuration error instead of a dead endpoint.
			chatModel, err := cfg.newChatModel(ctx)
			if err != nil {
				if !goerr.HasTag(err, model.ErrTagConfiguration) {
					return err
				}
				_, credential := cfg.providerNames()
				logger.Warn("model provider credential is not set, chat requests will fail", "env", credential)
				chatModel = nil
			}

			rt, err := cfg.newRuntime(ctx, chatModel)
			if err != nil {
				return err
			}

			providerName, credentialName := cfg.providerNames()
			gin.SetMode(gin.ReleaseMode)
			srv := server.New(rt.chat,
				server.WithLogger(logger),
				server.WithMetrics(rt.metrics),
				server.WithProvider(providerName, credentialName),
				server.WithAllowOrigin(allowOrigin),
			)

			httpServer := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			eg, ctx := errgroup.WithContext(ctx)

			eg.Go(func() error {
				logger.Info("server listening", "addr", addr, "provider", providerName, "configured", rt.chat.Configured())
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "http server failed", goerr.V("addr", addr))
				}
				return nil
			})

			eg.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "graceful shutdown failed")
				}
				logger.Info("server stopped")
				return nil
			})

			if watchCatalog {
				eg.Go(func() error {
					return catalog.Watch(ctx, cfg.catalogPath, func(text string) {
						if rt.instruction.Update(text) {
							logger.Info("system instruction rebuilt")
						}
					})
				})
			}

			return eg.Wait()
		},
	}
}
