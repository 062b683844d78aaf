package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"campus-relay/handler"
	"campus-relay/internal/config"
	"campus-relay/internal/domain"
	"campus-relay/internal/integrations/gradio"
	"campus-relay/internal/integrations/huggingface"
	"campus-relay/internal/integrations/paramstore"
	"campus-relay/internal/integrations/telegram"
	"campus-relay/internal/repository"
	"campus-relay/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load configuration", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	// ---- AWS SDK config (only when SSM or DynamoDB is in use) ----
	var awsCfg aws.Config
	if cfg.ParamPrefix != "" || cfg.JournalTable != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			fatal("failed to load AWS config", err)
		}
	}

	if cfg.ParamPrefix != "" {
		params, err := paramstore.New(awsssm.NewFromConfig(awsCfg), cfg.ParamPrefix)
		if err != nil {
			fatal("failed to create SSM client", err)
		}
		cfg, err = cfg.ResolveSecrets(ctx, params, logger)
		if err != nil {
			fatal("failed to resolve secrets", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	// ---- Clients ----
	telegram.InstallLogger(logger)
	sender, err := telegram.NewSender(cfg.TelegramToken,
		telegram.WithAPIEndpoint(cfg.TelegramEndpoint),
		telegram.WithTimeout(cfg.SendTimeout),
	)
	if err != nil {
		fatal("failed to create telegram sender", err)
	}

	backend, err := newBackend(cfg, logger)
	if err != nil {
		fatal("failed to create inference backend", err)
	}

	var relayOpts []usecase.RelayOption
	relayOpts = append(relayOpts, usecase.WithLogger(logger))
	if cfg.JournalTable != "" {
		journal, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.JournalTable)
		if err != nil {
			fatal("failed to create journal", err)
		}
		relayOpts = append(relayOpts, usecase.WithJournal(journal))
	}

	// ---- Handler ----
	relay, err := usecase.NewRelayService(backend, sender, usecase.Selectors{
		Conversation: domain.Selector(cfg.ConversationModel),
		Summary:      domain.Selector(cfg.SummaryModel),
	}, relayOpts...)
	if err != nil {
		fatal("failed to create relay service", err)
	}

	h, err := handler.NewHandler(relay, handler.WithLogger(logger))
	if err != nil {
		fatal("failed to create handler", err)
	}

	logger.Info("campus relay starting", "mode", string(cfg.Mode), "backend", string(cfg.Backend))
	if cfg.Mode == config.ModeLambda {
		lambda.Start(h.Handle)
		return
	}
	if err := serve(cfg.Addr(), h.Routes(), logger); err != nil {
		fatal("http server failed", err)
	}
}

func newBackend(cfg config.Config, logger *slog.Logger) (usecase.Backend, error) {
	if cfg.Backend == config.BackendGradio {
		gc, err := gradio.NewClient(cfg.ServiceURL,
			gradio.WithToken(cfg.InferenceToken),
			gradio.WithTimeout(cfg.InferenceTimeout),
			gradio.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return gc, nil
	}
	hf := huggingface.NewClient(cfg.InferenceToken,
		huggingface.WithBaseURL(cfg.HFBaseURL),
		huggingface.WithTimeout(cfg.InferenceTimeout),
		huggingface.WithLogger(logger),
	)
	if !hf.Enabled() {
		logger.Warn("HF_API_KEY not set, AI replies disabled")
	}
	return hf, nil
}

// serve runs until SIGINT or SIGTERM and then drains in-flight webhooks.
func serve(addr string, routes http.Handler, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           routes,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
