package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/pesan/domain/repositories"
)

const defaultResumeTimeout = 2 * time.Second

// Player plays queued PCM chunks back to back on an output device.
//
// Player is driven from a single event loop. Callbacks coming from the device
// (playback ended, resume finished) are handed to schedule, which must run them
// on that same loop.
type Player struct {
	output   repositories.AudioOutput
	schedule func(func())

	queue   [][]byte
	playing bool

	// generation changes on every interrupt so completions of buffers
	// submitted before it are ignored
	generation uint64

	ResumeTimeout time.Duration

	logger *zap.Logger
}

// NewPlayer creates a player for output. If schedule is nil callbacks run inline.
func NewPlayer(output repositories.AudioOutput, schedule func(func()), logger *zap.Logger) *Player {
	if schedule == nil {
		schedule = func(fn func()) { fn() }
	}
	return &Player{
		output:        output,
		schedule:      schedule,
		ResumeTimeout: defaultResumeTimeout,
		logger:        logger,
	}
}

// SetOutput swaps the output device. Pending audio is discarded.
func (p *Player) SetOutput(output repositories.AudioOutput) {
	p.Interrupt()
	p.output = output
}

// EnqueueBase64 decodes a base64 PCM chunk and enqueues it
func (p *Player) EnqueueBase64(data string) error {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("failed to decode audio chunk: %w", err)
	}
	p.Enqueue(pcm)
	return nil
}

// Enqueue appends a PCM chunk and starts playback if nothing is playing
func (p *Player) Enqueue(pcm []byte) {
	p.queue = append(p.queue, pcm)
	if p.playing {
		return
	}
	p.start()
}

// Interrupt discards every queued chunk and clears the playing flag. A buffer
// already handed to the device is left to finish.
func (p *Player) Interrupt() {
	dropped := len(p.queue)
	p.queue = nil
	p.playing = false
	p.generation++
	if dropped > 0 {
		p.logger.Debug("Playback interrupted", zap.Int("dropped", dropped))
	}
}

// Reset forgets all playback state
func (p *Player) Reset() {
	p.Interrupt()
}

// Pending returns the number of chunks waiting to be played
func (p *Player) Pending() int {
	return len(p.queue)
}

// Playing reports whether a playback sequence is active
func (p *Player) Playing() bool {
	return p.playing
}

func (p *Player) start() {
	if p.output == nil {
		p.logger.Warn("No audio output, dropping queued audio", zap.Int("queued", len(p.queue)))
		p.queue = nil
		return
	}

	p.playing = true
	if p.output.State() != repositories.OutputStateSuspended {
		p.playNext()
		return
	}

	gen := p.generation
	output := p.output
	timeout := p.ResumeTimeout
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := output.Resume(ctx)

		p.schedule(func() {
			if gen != p.generation {
				return
			}
			if err != nil {
				p.logger.Warn("Failed to resume audio output", zap.Error(err))
			}
			p.playNext()
		})
	}()
}

// playNext submits the head of the queue. Chunks the device refuses are dropped.
func (p *Player) playNext() {
	for {
		if len(p.queue) == 0 {
			p.playing = false
			return
		}

		pcm := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]

		buf := repositories.AudioBuffer{
			SampleRate: PlaybackSampleRate,
			Channels:   1,
			Samples:    PCM16ToFloat32(pcm),
		}

		gen := p.generation
		err := p.output.Play(buf, func() {
			p.schedule(func() {
				if gen != p.generation {
					return
				}
				p.playNext()
			})
		})
		if err == nil {
			return
		}
		p.logger.Error("Failed to play audio buffer",
			zap.Int("samples", len(buf.Samples)),
			zap.Error(err))
	}
}
