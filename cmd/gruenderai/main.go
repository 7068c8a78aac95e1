package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LukaSashic/gruenderai/internal/analysis"
	"github.com/LukaSashic/gruenderai/internal/config"
	"github.com/LukaSashic/gruenderai/internal/delivery"
	"github.com/LukaSashic/gruenderai/internal/logging"
	"github.com/LukaSashic/gruenderai/internal/mail"
	"github.com/LukaSashic/gruenderai/internal/payment"
	"github.com/LukaSashic/gruenderai/internal/report"
	"github.com/LukaSashic/gruenderai/internal/server"
	"github.com/LukaSashic/gruenderai/internal/store"
	"github.com/LukaSashic/gruenderai/internal/telemetry"
)

var Version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "gruenderai",
		Short:   "Businessplan-Analyse für den Gründungszuschuss",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg.Telemetry.Version = Version
	tracer, err := telemetry.NewProvider(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer tracer.Shutdown(context.Background())

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	requester, err := analysis.NewAnthropicRequesterFromEnv(cfg.Anthropic.Model)
	if err != nil {
		return err
	}

	payments := payment.NewClient(payment.Config{
		Mode:         cfg.PayPal.Mode,
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
		Price:        cfg.PayPal.Price,
		Currency:     cfg.PayPal.Currency,
	})

	mailer := buildMailer(cfg, log)
	worker := delivery.NewWorker(st, report.NewChromiumPDFRenderer(), mailer, cfg.Server.ReportsDir, log)
	worker.Start(ctx)
	defer worker.Close()

	srv := server.New(server.Options{
		Config:     cfg,
		Store:      st,
		Requester:  requester,
		Payments:   payments,
		Deliveries: worker,
		Tracer:     tracer,
		Log:        log,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(cfg.Server.Addr) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnw("shutdown incomplete", "error", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return store.NewSQLiteStore(cfg.Store.Path)
	default:
		return store.NewMemoryStore(), nil
	}
}

func buildMailer(cfg *config.Config, log *zap.SugaredLogger) mail.Mailer {
	switch cfg.Email.Mode {
	case "smtp":
		return mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Email.SMTP.Host,
			Port:     cfg.Email.SMTP.Port,
			Username: cfg.Email.SMTP.Username,
			Password: cfg.Email.SMTP.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
			Insecure: cfg.Email.SMTP.Insecure,
		})
	case "sendgrid":
		return mail.NewSendGridMailer(mail.SendGridConfig{
			APIKey:   cfg.Email.SendGrid.APIKey,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		})
	default:
		log.Warnw("email delivery disabled", "mode", cfg.Email.Mode)
		return dropMailer{}
	}
}

// dropMailer swallows messages when email delivery is turned off.
type dropMailer struct{}

func (dropMailer) Send(ctx context.Context, msg mail.Message) error { return nil }
