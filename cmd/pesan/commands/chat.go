package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/satriahrh/pesan/adapters/catalog"
	"github.com/satriahrh/pesan/adapters/credential"
	"github.com/satriahrh/pesan/adapters/device"
	"github.com/satriahrh/pesan/adapters/llm"
	"github.com/satriahrh/pesan/internal/config"
	"github.com/satriahrh/pesan/internal/saga"
	"github.com/satriahrh/pesan/internal/saga/checkout"
	"github.com/satriahrh/pesan/usecase"
)

var chatModel string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Order by typing",
	Long: `Order by typing instead of talking. The assistant uses the same menu,
cart and checkout as 'pesan talk'. Type 'quit' or press Ctrl+D to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatModel, "model", llm.DefaultChatModel, "Gemini text model")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
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
	apiKey := cfg.GeminiAPIKey
	if apiKey == "" {
		if apiKey, err = store.Load(); err != nil {
			return err
		}
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

	out := cmd.OutOrStdout()
	terminal := device.NewTerminal(out)
	checkoutService := checkout.NewService(saga.NewManager(logger), orders, logger)

	session, err := usecase.NewTextOrderSession(ctx, usecase.OrderSessionConfig{Model: chatModel}, apiKey, usecase.TextOrderDeps{
		Connector: llm.NewGeminiChatConnector(logger),
		Presenter: terminal,
		Catalog:   cat,
		Orders:    checkoutService.ForSession("chat-" + uuid.NewString()),
	}, logger)
	if errors.Is(err, usecase.ErrMissingCredential) {
		return fmt.Errorf("no API key: run 'pesan key set' or set GEMINI_API_KEY")
	}
	if err != nil {
		return err
	}

	terminal.ShowMenu(cat.Categories)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		if _, err := session.Send(ctx, line); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			terminal.ShowStatus("Error: " + err.Error())
		}
	}
}
