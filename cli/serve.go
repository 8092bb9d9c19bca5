package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cppla/fitquest/gamification"
	"github.com/cppla/fitquest/realtime"
	"github.com/cppla/fitquest/routes"
	"github.com/cppla/fitquest/utils"
)

var servePort string

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, db, err := bootstrap()
	if err != nil {
		return err
	}
	defer utils.Logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	defer hub.Close()

	var backplane *realtime.RedisBackplane
	if cfg.RealtimeBackplane {
		backplane = realtime.NewRedisBackplane(utils.GetRedis(), cfg.RealtimeChannel, hub)
		if err := backplane.Start(ctx); err != nil {
			return fmt.Errorf("start realtime backplane: %w", err)
		}
	}

	svc := gamification.NewService(newStore(cfg, db), realtime.NewNotifier(hub, backplane),
		gamification.WithLocation(cfg.Location()),
	)
	r := routes.SetupRouter(db, svc, hub)

	port := cfg.AppPort
	if servePort != "" {
		port = servePort
	}
	utils.Sugar.Infof("Starting server on port %s (graceful)", port)
	if err := utils.GraceServer(ctx, ":"+port, r); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}
