package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"SwapChat/internal/server"
	"SwapChat/internal/storage"
	"SwapChat/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference conversation service",
	Long:  `Run the conversation service backed by a SQLite database.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address")
	serveCmd.Flags().String("db", "", "Path to the SQLite database")
	serveCmd.Flags().String("jwt-secret", "", "HS256 secret; empty disables authentication")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.ListenAddr, _ = flags.GetString("addr")
	}
	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("jwt-secret") {
		cfg.JWTSecret, _ = flags.GetString("jwt-secret")
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := telemetry.InitLogger(cfg.LogDir, cfg.ServiceName+"-server", cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closeLog()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := server.New(db, server.Options{JWTSecret: cfg.JWTSecret, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.JWTSecret == "" {
		logger.Warn("authentication disabled")
	}
	fmt.Fprintf(os.Stderr, "SwapChat service listening on %s\n", cfg.ListenAddr)
	return srv.Run(ctx, cfg.ListenAddr)
}
