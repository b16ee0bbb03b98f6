package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/satriahrh/pesan/adapters/catalog"
	"github.com/satriahrh/pesan/adapters/credential"
	"github.com/satriahrh/pesan/adapters/device"
	"github.com/satriahrh/pesan/adapters/llm"
	"github.com/satriahrh/pesan/internal/audio"
	"github.com/satriahrh/pesan/internal/config"
	"github.com/satriahrh/pesan/internal/eventloop"
	"github.com/satriahrh/pesan/internal/saga"
	"github.com/satriahrh/pesan/internal/saga/checkout"
	"github.com/satriahrh/pesan/usecase"
)

var (
	talkInput string
	talkModel string
)

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Order by voice from this machine",
	Long: `Start an ordering conversation using this machine's microphone and
speaker. Requires ffmpeg and ffplay on PATH. Press Ctrl+C to stop.

The API key is read from GEMINI_API_KEY or the credential file
(see 'pesan key set').`,
	RunE: runTalk,
}

func init() {
	talkCmd.Flags().StringVar(&talkInput, "input", "", "ffmpeg capture device (default depends on the OS)")
	talkCmd.Flags().StringVar(&talkModel, "model", "", "Gemini model (overrides config)")
}

func runTalk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := credential.NewFileStore(credentialFile)
	if err != nil {
		return err
	}
	stored, err := store.LoadConfig()
	if err != nil {
		return err
	}

	apiKey := cfg.GeminiAPIKey
	if apiKey == "" {
		apiKey = stored.APIKey
	}
	model := cfg.GeminiModel
	if stored.Model != "" {
		model = stored.Model
	}
	if talkModel != "" {
		model = talkModel
	}

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

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()
	loop := eventloop.New(logger)
	go loop.Run(loopCtx)

	terminal := device.NewTerminal(cmd.OutOrStdout())
	checkoutService := checkout.NewService(saga.NewManager(logger), orders, logger)

	session := usecase.NewOrderSession(usecase.OrderSessionConfig{
		Model: model,
		Voice: cfg.GeminiVoice,
	}, usecase.OrderSessionDeps{
		Connector: llm.NewGeminiLiveConnector(logger),
		Input:     device.NewMicrophone(talkInput, logger),
		Output:    device.NewSpeaker(audio.PlaybackSampleRate, logger),
		Presenter: terminal,
		Catalog:   cat,
		Orders:    checkoutService.ForSession("talk-" + uuid.NewString()),
	}, loop, logger)

	terminal.ShowMenu(cat.Categories)

	if err := session.Start(ctx, apiKey); err != nil {
		if errors.Is(err, usecase.ErrMissingCredential) {
			return fmt.Errorf("no API key: run 'pesan key set' or set GEMINI_API_KEY")
		}
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return session.Stop(stopCtx)
}
