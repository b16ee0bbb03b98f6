package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/repositories"
	"github.com/satriahrh/pesan/internal/audio"
)

// ErrOutputClosed is returned when playing on a closed remote speaker
var ErrOutputClosed = errors.New("audio output closed")

// defaultDeviceSampleRate is assumed until the browser says hello
const defaultDeviceSampleRate = 48000

// RemoteMicrophone receives float32 frames from the browser and resamples them
// to the rate the session asked for.
type RemoteMicrophone struct {
	mu         sync.Mutex
	deviceRate int
	onFrame    func([]float32)
	resampler  *audio.Resampler
	logger     *zap.Logger
}

func newRemoteMicrophone(logger *zap.Logger) *RemoteMicrophone {
	return &RemoteMicrophone{deviceRate: defaultDeviceSampleRate, logger: logger}
}

// SetDeviceRate records the browser capture rate. It applies from the next Start.
func (m *RemoteMicrophone) SetDeviceRate(rate int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deviceRate = rate
}

// Start implements repositories.AudioInput
func (m *RemoteMicrophone) Start(ctx context.Context, sampleRate int, onFrame func([]float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	resampler, err := audio.NewResampler(m.deviceRate, sampleRate)
	if err != nil {
		return fmt.Errorf("failed to start microphone: %w", err)
	}
	m.resampler = resampler
	m.onFrame = onFrame
	return nil
}

// Stop implements repositories.AudioInput
func (m *RemoteMicrophone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFrame = nil
	m.resampler = nil
	return nil
}

// handleFrame is called from the read pump with one binary frame
func (m *RemoteMicrophone) handleFrame(data []byte) {
	m.mu.Lock()
	onFrame, resampler := m.onFrame, m.resampler
	m.mu.Unlock()

	if onFrame == nil {
		return
	}

	samples, err := DecodeMicFrame(data)
	if err != nil {
		m.logger.Warn("Dropped malformed audio frame", zap.Error(err))
		return
	}
	samples, err = resampler.Process(samples)
	if err != nil {
		m.logger.Warn("Dropped audio frame", zap.Error(err))
		return
	}
	if len(samples) > 0 {
		onFrame(samples)
	}
}

// RemoteSpeaker plays buffers in the browser. Each buffer is sent as a
// playback frame and its completion arrives as a playback_ended message.
type RemoteSpeaker struct {
	mu            sync.Mutex
	state         repositories.OutputState
	nextID        uint32
	pending       map[uint32]func()
	waiters       []chan struct{}
	resumeTimeout time.Duration

	send   func(WriteData) error
	notify func(v interface{}) error
	logger *zap.Logger
}

func newRemoteSpeaker(send func(WriteData) error, notify func(v interface{}) error, resumeTimeout time.Duration, logger *zap.Logger) *RemoteSpeaker {
	return &RemoteSpeaker{
		state:         repositories.OutputStateSuspended,
		pending:       make(map[uint32]func()),
		resumeTimeout: resumeTimeout,
		send:          send,
		notify:        notify,
		logger:        logger,
	}
}

// State implements repositories.AudioOutput
func (s *RemoteSpeaker) State() repositories.OutputState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resume implements repositories.AudioOutput. It asks the browser to resume
// its output and waits for it to report running.
func (s *RemoteSpeaker) Resume(ctx context.Context) error {
	s.mu.Lock()
	if s.state == repositories.OutputStateRunning {
		s.mu.Unlock()
		return nil
	}
	wait := make(chan struct{})
	s.waiters = append(s.waiters, wait)
	s.mu.Unlock()

	if err := s.notify(&BaseMessage{Type: MessageTypeResume, Timestamp: time.Now().Format(time.RFC3339)}); err != nil {
		return fmt.Errorf("failed to request resume: %w", err)
	}

	timer := time.NewTimer(s.resumeTimeout)
	defer timer.Stop()

	select {
	case <-wait:
		return nil
	case <-timer.C:
		return errors.New("timed out waiting for audio output")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Play implements repositories.AudioOutput
func (s *RemoteSpeaker) Play(buf repositories.AudioBuffer, onEnded func()) error {
	s.mu.Lock()
	if s.state == repositories.OutputStateClosed {
		s.mu.Unlock()
		return ErrOutputClosed
	}
	s.nextID++
	id := s.nextID
	if onEnded != nil {
		s.pending[id] = onEnded
	}
	s.mu.Unlock()

	if err := s.send(WriteData{Type: websocket.BinaryMessage, Payload: EncodePlaybackFrame(id, buf.Samples)}); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return err
	}
	return nil
}

// Close implements repositories.AudioOutput. Completions of buffers already
// sent are dropped.
func (s *RemoteSpeaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = repositories.OutputStateClosed
	s.pending = make(map[uint32]func())
	return nil
}

// setState records a state reported by the browser
func (s *RemoteSpeaker) setState(state repositories.OutputState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	if state != repositories.OutputStateRunning {
		return
	}
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = nil
}

// ended runs the completion callback of buffer id
func (s *RemoteSpeaker) ended(id uint32) {
	s.mu.Lock()
	onEnded, ok := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()

	if ok {
		onEnded()
	}
}
