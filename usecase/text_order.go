package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
	"github.com/satriahrh/pesan/internal/cart"
	"github.com/satriahrh/pesan/internal/tools"
)

// maxToolRounds bounds how many tool exchanges one typed message may trigger
const maxToolRounds = 8

// ErrTooManyToolRounds is returned when the assistant keeps calling tools
var ErrTooManyToolRounds = errors.New("assistant did not reply after repeated tool calls")

// TextOrderDeps are the services a typed ordering conversation uses
type TextOrderDeps struct {
	Connector repositories.ChatConnector
	Presenter repositories.Presenter
	Catalog   *entities.Catalog
	// Orders records checked out carts. Optional.
	Orders tools.OrderPlacer
}

// TextOrderSession is the typed counterpart of OrderSession: the same tools
// and cart, driven by request/response text turns instead of live audio.
// It is not safe for concurrent use.
type TextOrderSession struct {
	id         string
	deps       TextOrderDeps
	chat       repositories.ChatSession
	cart       *cart.Manager
	dispatcher *tools.Dispatcher
	logger     *zap.Logger
}

// NewTextOrderSession opens a chat with the assistant
func NewTextOrderSession(ctx context.Context, cfg OrderSessionConfig, apiKey string, deps TextOrderDeps, logger *zap.Logger) (*TextOrderSession, error) {
	if apiKey == "" {
		if deps.Presenter != nil {
			deps.Presenter.ShowStatus(entities.StatusMissingKey)
		}
		return nil, ErrMissingCredential
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = tools.SystemInstruction
	}

	chat, err := deps.Connector.NewChat(ctx, repositories.ChatConfig{
		APIKey:            apiKey,
		Model:             cfg.Model,
		SystemInstruction: cfg.SystemInstruction,
		Tools:             tools.Definitions(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start chat: %w", err)
	}

	id := uuid.NewString()
	s := &TextOrderSession{
		id:     id,
		deps:   deps,
		chat:   chat,
		cart:   cart.NewManager(),
		logger: logger.With(zap.String("sessionID", id)),
	}

	var view tools.MenuView
	if deps.Presenter != nil {
		view = deps.Presenter
		s.cart.Subscribe(deps.Presenter.ShowCart)
	}
	s.dispatcher = tools.NewDispatcher(deps.Catalog, s.cart, view, deps.Orders, s.logger)
	return s, nil
}

// ID identifies the session in logs
func (s *TextOrderSession) ID() string {
	return s.id
}

// Cart exposes the session cart
func (s *TextOrderSession) Cart() *cart.Manager {
	return s.cart
}

// Send delivers one typed message and returns the assistant's answer after
// running any tools it asks for.
func (s *TextOrderSession) Send(ctx context.Context, text string) (string, error) {
	s.appendTranscript(entities.TranscriptRoleUser, text)

	turn, err := s.chat.SendText(ctx, text)
	for round := 0; err == nil && len(turn.ToolCalls) > 0; round++ {
		if round == maxToolRounds {
			return "", ErrTooManyToolRounds
		}
		responses := s.dispatcher.Dispatch(ctx, turn.ToolCalls)
		turn, err = s.chat.SendToolResponses(ctx, responses)
	}
	if err != nil {
		s.logger.Error("Chat turn failed", zap.Error(err))
		return "", err
	}

	s.appendTranscript(entities.TranscriptRoleAssistant, turn.Text)
	return turn.Text, nil
}

func (s *TextOrderSession) appendTranscript(role entities.TranscriptRole, text string) {
	if s.deps.Presenter != nil && text != "" {
		s.deps.Presenter.AppendTranscript(entities.TranscriptEntry{Role: role, Text: text})
	}
}
