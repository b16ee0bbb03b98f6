package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/pesan/adapters/catalog"
	"github.com/satriahrh/pesan/adapters/llm"
	"github.com/satriahrh/pesan/domain/repositories"
	"github.com/satriahrh/pesan/internal/api"
	"github.com/satriahrh/pesan/internal/auth"
	"github.com/satriahrh/pesan/internal/config"
	"github.com/satriahrh/pesan/internal/saga"
	"github.com/satriahrh/pesan/internal/saga/checkout"
	"github.com/satriahrh/pesan/internal/websocket"
	"github.com/satriahrh/pesan/usecase"
)

const retentionInterval = time.Hour

var serveMockLive bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the kiosk server",
	Long: `Run the kiosk server.

Browsers connect to /ws and stream microphone audio; the server runs one
ordering session per connection and streams the assistant's voice back.
Settings come from the environment (see .env.example).`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMockLive, "mock-live", false, "use a silent mock assistant instead of Gemini")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Development())
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.NewFileSource(cfg.CatalogPath, logger).Load(ctx)
	if err != nil {
		return err
	}

	orders, closeOrders, err := openOrders(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeOrders()

	retention := usecase.NewOrderRetentionService(orders, cfg.OrderRetention, retentionInterval, logger)
	retention.Start()
	defer retention.Stop()

	sagaManager := saga.NewManager(logger)
	go logSagaEvents(ctx, sagaManager, logger)
	checkoutService := checkout.NewService(sagaManager, orders, logger)

	var connector repositories.LiveConnector = llm.NewGeminiLiveConnector(logger)
	apiKey := cfg.GeminiAPIKey
	if serveMockLive {
		connector = llm.NewMockLiveConnector()
		if apiKey == "" {
			apiKey = "mock"
		}
	}

	sessionConfig := usecase.OrderSessionConfig{
		Model: cfg.GeminiModel,
		Voice: cfg.GeminiVoice,
	}

	hub := websocket.NewHub(func(c *websocket.Client) websocket.OrderSession {
		c.ShowMenu(cat.Categories)
		return usecase.NewOrderSession(sessionConfig, usecase.OrderSessionDeps{
			Connector: connector,
			Input:     c.Microphone(),
			Output:    c.Speaker(),
			Presenter: c,
			Catalog:   cat,
			Orders:    checkoutService.ForSession(c.ID()),
		}, c.Loop(), logger.With(zap.String("clientID", c.ID()), zap.String("kioskID", c.KioskID())))
	}, websocket.HubConfig{
		APIKey:        apiKey,
		IdleTimeout:   cfg.SessionIdleTimeout,
		ResumeTimeout: cfg.ResumeTimeout,
	}, logger)
	go hub.Run(ctx)

	var issuer *auth.Issuer
	if cfg.AuthEnabled() {
		issuer = auth.NewIssuer(cfg.JWTSecret, cfg.KioskAccessCode)
	}

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, api.Dependencies{
		Hub:     hub,
		Catalog: cat,
		Orders:  orders,
		Issuer:  issuer,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.Bool("auth", issuer != nil),
		zap.Bool("mockLive", serveMockLive))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("Server exited")
	return nil
}

func logSagaEvents(ctx context.Context, manager *saga.Manager, logger *zap.Logger) {
	events := manager.EventChannel()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			logger.Debug("Saga event",
				zap.String("sagaID", string(event.SagaID)),
				zap.String("type", event.Type))
		}
	}
}
