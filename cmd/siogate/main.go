package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/amoylab/siogate/internal/common/cnst"
	"github.com/amoylab/siogate/internal/common/config"
	"github.com/amoylab/siogate/internal/core"
	"github.com/amoylab/siogate/internal/handshake"
	"github.com/amoylab/siogate/internal/session"
	"github.com/amoylab/siogate/pkg/helper"
	"github.com/amoylab/siogate/pkg/logger"
	"github.com/amoylab/siogate/pkg/metrics"
	"github.com/amoylab/siogate/pkg/trace"
	"github.com/amoylab/siogate/pkg/utils"
	"github.com/amoylab/siogate/pkg/version"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	pidFile    string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of " + cnst.CommandName,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version.String(cnst.CommandName))
		},
	}

	testCmd = &cobra.Command{
		Use:   "test",
		Short: "Test the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := config.LoadConfig[config.GatewayConfig](configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration %s: %w", cfgPath, err)
			}
			if err := config.ValidateGatewayConfig(cfg, cfgPath); err != nil {
				return err
			}
			fmt.Printf("configuration file %s test is successful\n", cfgPath)
			return nil
		},
	}

	rootCmd = &cobra.Command{
		Use:   cnst.CommandName,
		Short: "socket.io handshake gateway",
		Long:  `siogate answers socket.io handshakes, tracks session authorization and upgrades authorized sessions to websocket`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", cnst.SiogateYaml, "path to configuration file, like /etc/siogate/siogate.yaml")
	rootCmd.PersistentFlags().StringVar(&pidFile, "pid", "", "path to PID file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(testCmd)
}

// app bundles everything that lives for the duration of the process
type app struct {
	server  *core.Server
	store   session.Store
	cleanup []func(context.Context) error
}

func (a *app) close(ctx context.Context, lg *zap.Logger) {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		if err := a.cleanup[i](ctx); err != nil {
			lg.Warn("cleanup failed", zap.Error(err))
		}
	}
}

// buildApp wires the session registry, lifecycle hooks and HTTP server from cfg
func buildApp(ctx context.Context, lg *zap.Logger, cfg *config.GatewayConfig) (*app, error) {
	a := &app{}

	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.cleanup = append(a.cleanup, shutdownTracing)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	store, err := session.NewStore(ctx, lg, &cfg.Session)
	if err != nil {
		a.close(ctx, lg)
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	a.store = store
	a.cleanup = append(a.cleanup, func(context.Context) error { return store.Close() })

	listener := handshake.ConnectListenerFunc(func(_ context.Context, c handshake.Client) {
		lg.Info("client connected", zap.String("session_id", c.SessionID().String()))
	})
	srv, err := core.NewServer(lg, cfg, store, listener, m)
	if err != nil {
		a.close(ctx, lg)
		return nil, fmt.Errorf("failed to create server: %w", err)
	}
	srv.RegisterRoutes()
	a.server = srv
	return a, nil
}

func run() {
	cfg, cfgPath, err := config.LoadConfig[config.GatewayConfig](configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", cfgPath, err)
	}
	if err := config.ValidateGatewayConfig(cfg, cfgPath); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer lg.Sync()

	lg.Info("Starting siogate",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	if pidFile == "" {
		pidFile = cfg.PID
	}
	pidManager := utils.NewPIDManager(helper.GetPIDPath(pidFile))
	if err := pidManager.WritePID(); err != nil {
		lg.Fatal("Failed to write PID file", zap.Error(err))
	}
	defer func() {
		if err := pidManager.RemovePID(); err != nil {
			lg.Error("Failed to remove PID file", zap.Error(err))
		}
	}()

	if lg.Core().Enabled(zap.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, lg, cfg)
	if err != nil {
		lg.Fatal("Failed to start", zap.Error(err))
	}
	a.server.Start()
	lg.Info("Server listening", zap.Int("port", cfg.Port), zap.String("handshake_path", cfg.Handshake.Path))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	lg.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		lg.Error("Failed to shutdown server", zap.Error(err))
	}
	a.close(shutdownCtx, lg)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
