package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"SwapChat/internal/chat"
	"SwapChat/internal/session"
	"SwapChat/internal/syncclient"
	"SwapChat/internal/telemetry"
	"SwapChat/internal/view"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat client",
	Long: `Open the interactive chat client. Plain lines are sent as messages,
lines starting with / are commands (see /help).`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("base-url", "", "Base URL of the conversation service")
	chatCmd.Flags().String("token", "", "Bearer token for the conversation service")
	chatCmd.Flags().Int64("conversation", 0, "Conversation to load on startup")
	chatCmd.Flags().Int64("user", 0, "Local user id for the startup conversation")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("token") {
		cfg.Token, _ = flags.GetString("token")
	}
	if flags.Changed("conversation") {
		cfg.ConversationID, _ = flags.GetInt64("conversation")
	}
	if flags.Changed("user") {
		cfg.UserID, _ = flags.GetInt64("user")
	}
	if err := cfg.ValidateClient(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := telemetry.InitLogger(cfg.LogDir, cfg.ServiceName, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, telemetry.Options{
		Dir:            cfg.LogDir,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		MetricInterval: cfg.MetricsInterval,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	client, err := syncclient.New(syncclient.Options{
		BaseURL: cfg.BaseURL,
		Token:   cfg.Token,
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
		Tracer:  tracer,
		Meter:   meter,
	})
	if err != nil {
		return fmt.Errorf("failed to create sync client: %w", err)
	}

	sink := view.NewTerminalSink(os.Stdout, cfg.ViewWidth, cfg.ViewHeight)
	ctrl, err := chat.NewController(client, sink, chat.Options{
		Logger: logger,
		Tracer: tracer,
		Meter:  meter,
	})
	if err != nil {
		return fmt.Errorf("failed to create controller: %w", err)
	}

	var initial *session.Session
	if cfg.HasInitialSession() {
		initial = &session.Session{ConversationID: cfg.ConversationID, LocalUserID: cfg.UserID}
	}

	logger.Info("chat client starting", "base_url", cfg.BaseURL, "conversation_id", cfg.ConversationID, "user_id", cfg.UserID)
	return chat.NewApp(ctrl, os.Stdin, os.Stdout, logger).Run(ctx, initial)
}
