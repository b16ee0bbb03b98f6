// Package device drives the local microphone and speaker through ffmpeg and
// ffplay child processes, and renders the session to a terminal.
package device

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/repositories"
)

// FrameSize is the number of samples delivered per microphone frame
const FrameSize = 4096

// MicArgs returns the ffmpeg arguments capturing mono float32 audio at sampleRate
func MicArgs(goos, input string, sampleRate int) []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	switch goos {
	case "darwin":
		if input == "" {
			input = "none:0"
		}
		args = append(args, "-f", "avfoundation", "-i", input)
	case "windows":
		if input == "" {
			input = "audio=default"
		}
		args = append(args, "-f", "dshow", "-i", input)
	default:
		if input == "" {
			input = "default"
		}
		args = append(args, "-f", "pulse", "-i", input)
	}
	return append(args,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-f", "f32le",
		"-")
}

// Microphone captures audio with ffmpeg
type Microphone struct {
	input  string
	logger *zap.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
	done   chan struct{}
}

// NewMicrophone creates a microphone. input selects the capture device; empty
// means the platform default.
func NewMicrophone(input string, logger *zap.Logger) *Microphone {
	return &Microphone{input: input, logger: logger}
}

// Start implements repositories.AudioInput
func (m *Microphone) Start(ctx context.Context, sampleRate int, onFrame func(frame []float32)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cmd != nil {
		return errors.New("microphone already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, "ffmpeg", MicArgs(runtime.GOOS, m.input, sampleRate)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("failed to open microphone pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	m.cmd = cmd
	m.cancel = cancel
	m.done = make(chan struct{})

	m.logger.Info("Microphone started", zap.Int("sample_rate", sampleRate))

	go func(done chan struct{}) {
		defer close(done)
		if err := ReadFrames(stdout, FrameSize, onFrame); err != nil && ctx.Err() == nil {
			m.logger.Error("Microphone read failed", zap.Error(err))
		}
	}(m.done)

	return nil
}

// Stop implements repositories.AudioInput
func (m *Microphone) Stop() error {
	m.mu.Lock()
	cmd, cancel, done := m.cmd, m.cancel, m.done
	m.cmd, m.cancel, m.done = nil, nil, nil
	m.mu.Unlock()

	if cmd == nil {
		return nil
	}

	cancel()
	<-done
	_ = cmd.Wait()
	m.logger.Info("Microphone stopped")
	return nil
}

// ReadFrames decodes little-endian float32 samples from r and hands them to
// onFrame in frames of frameSize. A trailing partial frame is delivered too.
func ReadFrames(r io.Reader, frameSize int, onFrame func([]float32)) error {
	reader := bufio.NewReaderSize(r, frameSize*4)
	raw := make([]byte, frameSize*4)
	for {
		n, err := io.ReadFull(reader, raw)
		if n >= 4 {
			frame := make([]float32, n/4)
			for i := range frame {
				frame[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
			}
			onFrame(frame)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Speaker plays float32 buffers through a long-lived ffplay process. Play
// writes samples immediately and reports the end of each buffer once its
// duration has elapsed on the speaker's own clock.
type Speaker struct {
	sampleRate int
	logger     *zap.Logger
	now        func() time.Time
	afterFunc  func(time.Duration, func()) *time.Timer

	mu       sync.Mutex
	state    repositories.OutputState
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	playhead time.Time
	timers   []*time.Timer
}

// NewSpeaker creates a speaker for mono audio at sampleRate. The player
// process starts on Resume or on the first Play, and again after Close.
func NewSpeaker(sampleRate int, logger *zap.Logger) *Speaker {
	return &Speaker{
		sampleRate: sampleRate,
		logger:     logger,
		now:        time.Now,
		afterFunc:  time.AfterFunc,
		state:      repositories.OutputStateSuspended,
	}
}

// State implements repositories.AudioOutput
func (s *Speaker) State() repositories.OutputState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Resume implements repositories.AudioOutput
func (s *Speaker) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureRunning()
}

// ensureRunning starts ffplay unless it is already running. A closed speaker
// is reopened with a fresh process.
func (s *Speaker) ensureRunning() error {
	if s.state == repositories.OutputStateRunning {
		return nil
	}

	cmd := exec.Command("ffplay",
		"-hide_banner", "-loglevel", "error",
		"-f", "f32le",
		"-ar", fmt.Sprintf("%d", s.sampleRate),
		"-ac", "1",
		"-nodisp",
		"-autoexit",
		"-")
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open speaker pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffplay: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.playhead = time.Time{}
	s.state = repositories.OutputStateRunning
	s.logger.Info("Speaker started", zap.Int("sample_rate", s.sampleRate))
	return nil
}

// Play implements repositories.AudioOutput
func (s *Speaker) Play(buf repositories.AudioBuffer, onEnded func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureRunning(); err != nil {
		return err
	}

	raw := make([]byte, len(buf.Samples)*4)
	for i, v := range buf.Samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	if _, err := s.stdin.Write(raw); err != nil {
		return fmt.Errorf("failed to write to speaker: %w", err)
	}

	rate := buf.SampleRate
	if rate <= 0 {
		rate = s.sampleRate
	}
	duration := time.Duration(len(buf.Samples)) * time.Second / time.Duration(rate)

	now := s.now()
	if s.playhead.Before(now) {
		s.playhead = now
	}
	s.playhead = s.playhead.Add(duration)

	if onEnded != nil {
		s.timers = append(s.timers, s.afterFunc(s.playhead.Sub(now), onEnded))
	}
	return nil
}

// Close implements repositories.AudioOutput
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == repositories.OutputStateClosed {
		return nil
	}
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.state = repositories.OutputStateClosed

	if s.cmd == nil {
		return nil
	}
	_ = s.stdin.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	s.cmd, s.stdin = nil, nil
	s.logger.Info("Speaker closed")
	return nil
}
