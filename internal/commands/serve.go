package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fireflybt/fireflybt/internal/firefly"
	"github.com/fireflybt/fireflybt/internal/importer"
	"github.com/fireflybt/fireflybt/internal/logger"
	"github.com/fireflybt/fireflybt/internal/server"
)

func newServeCommand() *cobra.Command {
	var configPath string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket bridge for form UIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.ListenAddr = addr
			}

			log := logger.New()
			client := firefly.NewClient(cfg.Firefly.URL, cfg.Firefly.Token)
			srv := server.New(client, importer.DefaultRegistry(), cfg.Import.LogRoot, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx, cfg.Server.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to fireflybt.yaml")
	cmd.Flags().StringVar(&addr, "listen", "", "listen address (overrides config)")

	return cmd
}
