package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain"
	"github.com/satriahrh/pesan/domain/entities"
	"github.com/satriahrh/pesan/domain/repositories"
	"github.com/satriahrh/pesan/internal/audio"
	"github.com/satriahrh/pesan/internal/cart"
	"github.com/satriahrh/pesan/internal/eventloop"
	"github.com/satriahrh/pesan/internal/tools"
)

var (
	// ErrMissingCredential is returned by Start when no API key is available
	ErrMissingCredential = errors.New("missing api key")
	// ErrSessionActive is returned by Start while a session is already running
	ErrSessionActive = errors.New("session already active")
)

// OrderSessionConfig selects the assistant model and persona
type OrderSessionConfig struct {
	Model             string
	Voice             string
	SystemInstruction string
}

// OrderSessionDeps are the devices and services an ordering session drives
type OrderSessionDeps struct {
	Connector repositories.LiveConnector
	Input     repositories.AudioInput
	Output    repositories.AudioOutput
	Presenter repositories.Presenter
	Catalog   *entities.Catalog
	// Orders records checked out carts. Optional.
	Orders tools.OrderPlacer
}

// OrderSession is the voice ordering session controller. It connects the
// microphone, the speaker and the assistant channel, routes tool calls to the
// cart and keeps the presenter up to date.
//
// All session state is owned by loop. Device and channel callbacks are posted
// onto it and carry the epoch they were registered in, so callbacks belonging
// to an earlier session are ignored.
type OrderSession struct {
	id     string
	cfg    OrderSessionConfig
	deps   OrderSessionDeps
	loop   *eventloop.Loop
	logger *zap.Logger

	cart       *cart.Manager
	capture    *audio.Capture
	player     *audio.Player
	dispatcher *tools.Dispatcher

	epoch      uint64
	active     bool
	channel    repositories.LiveChannel
	sessionCtx context.Context
	cancel     context.CancelFunc
	lastStatus string
}

// NewOrderSession creates a stopped session. loop must be running for Start
// and Stop to make progress.
func NewOrderSession(
	cfg OrderSessionConfig,
	deps OrderSessionDeps,
	loop *eventloop.Loop,
	logger *zap.Logger,
) *OrderSession {
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = tools.SystemInstruction
	}

	id := uuid.NewString()
	logger = logger.With(zap.String("sessionID", id))

	s := &OrderSession{
		id:     id,
		cfg:    cfg,
		deps:   deps,
		loop:   loop,
		logger: logger,
		cart:   cart.NewManager(),
	}

	s.capture = audio.NewCapture(logger)
	s.capture.OnSendError = func(err error) {
		s.teardown("Error: " + err.Error())
	}
	s.player = audio.NewPlayer(deps.Output, loop.Schedule, logger)

	var view tools.MenuView
	if deps.Presenter != nil {
		view = deps.Presenter
		s.cart.Subscribe(deps.Presenter.ShowCart)
	}
	s.dispatcher = tools.NewDispatcher(deps.Catalog, s.cart, view, deps.Orders, logger)

	return s
}

// ID identifies the session in logs and stored orders
func (s *OrderSession) ID() string {
	return s.id
}

// Cart exposes the session cart. It must only be used from the session loop.
func (s *OrderSession) Cart() *cart.Manager {
	return s.cart
}

// Player exposes the playback pipeline. It must only be used from the session loop.
func (s *OrderSession) Player() *audio.Player {
	return s.player
}

// Active reports whether the session is connecting or connected
func (s *OrderSession) Active(ctx context.Context) (bool, error) {
	var active bool
	err := s.loop.Do(ctx, func() { active = s.active })
	return active, err
}

// Start opens the devices and connects to the assistant. It returns once the
// channel is connected; listening begins when the channel reports open.
// Failures leave the session stopped and Start may be called again.
func (s *OrderSession) Start(ctx context.Context, apiKey string) error {
	var (
		epoch      uint64
		sessionCtx context.Context
		startErr   error
	)

	err := s.loop.Do(ctx, func() {
		if apiKey == "" {
			s.setStatus(entities.StatusMissingKey)
			startErr = ErrMissingCredential
			return
		}
		if s.active {
			startErr = ErrSessionActive
			return
		}

		s.epoch++
		epoch = s.epoch
		s.active = true
		s.sessionCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
		sessionCtx = s.sessionCtx

		s.setStatus(entities.StatusConnecting)
		if s.deps.Presenter != nil {
			s.deps.Presenter.ClearTranscript()
		}
		s.cart.Clear()
		s.player.Reset()
	})
	if err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}

	s.logger.Info("Starting order session")

	channel, err := s.open(ctx, sessionCtx, epoch, apiKey)
	if err != nil {
		s.logger.Error("Failed to start order session", zap.Error(err))
		_ = s.loop.Do(context.WithoutCancel(ctx), func() {
			if s.epoch == epoch {
				s.teardown("Failed to start: " + err.Error())
				return
			}
			s.releaseIfIdle()
		})
		return fmt.Errorf("failed to start session: %w", err)
	}

	var attached bool
	err = s.loop.Do(context.WithoutCancel(ctx), func() {
		if s.epoch != epoch {
			s.releaseIfIdle()
			return
		}
		s.channel = channel
		s.capture.Attach(channel)
		attached = true
	})
	if err != nil || !attached {
		_ = channel.Close()
		if err != nil {
			return err
		}
		return fmt.Errorf("failed to start session: %w", context.Canceled)
	}

	channel.Listen(s.handler(epoch))
	return nil
}

// open acquires the output, the microphone and the channel, in that order.
// It runs off the loop because each step may block.
func (s *OrderSession) open(ctx, sessionCtx context.Context, epoch uint64, apiKey string) (repositories.LiveChannel, error) {
	if err := s.deps.Output.Resume(ctx); err != nil {
		return nil, fmt.Errorf("failed to open audio output: %w", err)
	}

	onFrame := func(frame []float32) {
		s.post(epoch, func() { s.capture.HandleFrame(frame) })
	}
	if err := s.deps.Input.Start(sessionCtx, audio.CaptureSampleRate, onFrame); err != nil {
		return nil, fmt.Errorf("failed to open microphone: %w", err)
	}

	channel, err := s.deps.Connector.Connect(ctx, repositories.LiveConfig{
		APIKey:            apiKey,
		Model:             s.cfg.Model,
		Voice:             s.cfg.Voice,
		SystemInstruction: s.cfg.SystemInstruction,
		Tools:             tools.Definitions(),
	})
	if err != nil {
		return nil, err
	}
	return channel, nil
}

func (s *OrderSession) handler(epoch uint64) repositories.LiveHandler {
	return repositories.LiveHandler{
		OnOpen: func() {
			s.post(epoch, func() {
				s.setStatus(entities.StatusListening)
				s.capture.SetRecording(true)
				s.logger.Info("Order session connected")
			})
		},
		OnMessage: func(msg domain.LiveMessage) {
			s.post(epoch, func() { s.handleMessage(msg) })
		},
		OnError: func(err error) {
			s.post(epoch, func() {
				s.logger.Error("Assistant channel error", zap.Error(err))
				s.teardown("Error: " + err.Error())
			})
		},
		OnClose: func(reason string) {
			s.post(epoch, func() {
				s.logger.Info("Assistant channel closed", zap.String("reason", reason))
				s.teardown(entities.StatusDisconnected)
			})
		},
	}
}

// post queues fn on the loop, dropping it if the session has moved on
func (s *OrderSession) post(epoch uint64, fn func()) {
	s.loop.Schedule(func() {
		if s.epoch != epoch || !s.active {
			return
		}
		fn()
	})
}

func (s *OrderSession) handleMessage(msg domain.LiveMessage) {
	if len(msg.ToolCalls) > 0 {
		responses := s.dispatcher.Dispatch(s.sessionCtx, msg.ToolCalls)
		if err := s.channel.SendToolResponses(responses); err != nil {
			s.logger.Error("Failed to send tool responses", zap.Error(err))
			s.teardown("Error: " + err.Error())
			return
		}
	}

	if msg.Interrupted {
		s.player.Interrupt()
		return
	}

	if msg.InputTranscript != "" {
		s.appendTranscript(entities.TranscriptRoleUser, msg.InputTranscript)
	}

	for _, part := range msg.Parts {
		if part.Text != "" {
			s.appendTranscript(entities.TranscriptRoleAssistant, part.Text)
		}
		if part.Audio != nil && part.Audio.Data != "" {
			if err := s.player.EnqueueBase64(part.Audio.Data); err != nil {
				s.logger.Warn("Dropped undecodable audio part", zap.Error(err))
			}
		}
	}
}

func (s *OrderSession) appendTranscript(role entities.TranscriptRole, text string) {
	if s.deps.Presenter != nil {
		s.deps.Presenter.AppendTranscript(entities.TranscriptEntry{Role: role, Text: text})
	}
}

// Stop ends the session. Stopping a stopped session is a no-op apart from
// releasing devices again.
func (s *OrderSession) Stop(ctx context.Context) error {
	return s.loop.Do(ctx, func() {
		s.teardown(entities.StatusStopped)
	})
}

// teardown releases everything the session holds and shows status. It runs on
// the loop and is safe to call repeatedly.
func (s *OrderSession) teardown(status string) {
	wasActive := s.active

	s.capture.SetRecording(false)
	s.capture.Detach()

	if err := s.deps.Input.Stop(); err != nil {
		s.logger.Warn("Failed to stop microphone", zap.Error(err))
	}
	if err := s.deps.Output.Close(); err != nil {
		s.logger.Warn("Failed to close audio output", zap.Error(err))
	}
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.logger.Warn("Failed to close assistant channel", zap.Error(err))
		}
		s.channel = nil
	}

	s.player.Reset()
	s.cart.Clear()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.epoch++
	s.active = false

	if wasActive || status != s.lastStatus {
		s.setStatus(status)
	}
	if wasActive {
		s.logger.Info("Order session stopped", zap.String("status", status))
	}
}

// releaseIfIdle stops devices a setup acquired after the session it belonged
// to was already torn down.
func (s *OrderSession) releaseIfIdle() {
	if s.active {
		return
	}
	if err := s.deps.Input.Stop(); err != nil {
		s.logger.Warn("Failed to stop microphone", zap.Error(err))
	}
	if err := s.deps.Output.Close(); err != nil {
		s.logger.Warn("Failed to close audio output", zap.Error(err))
	}
}

func (s *OrderSession) setStatus(text string) {
	s.lastStatus = text
	if s.deps.Presenter != nil {
		s.deps.Presenter.ShowStatus(text)
	}
}
