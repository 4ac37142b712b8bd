package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/skillsynx/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis and matching api over http",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "listen address (default :8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()

	d := buildDeps(ctx, config, logger)
	defer d.Close()

	logger.Info("starting the skillsynx server", zap.String("version", version))

	s := server.New(config.Server, server.Deps{
		Analyzer: d.analyzer,
		Matcher:  d.matcher,
		Store:    d.store,
		Logger:   logger,
	})

	if err := s.Listen(ctx); err != nil {
		logger.Error("http server stopped", zap.Error(err))
	}
}
