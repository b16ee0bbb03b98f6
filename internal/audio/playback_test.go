package audio

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/pesan/domain/repositories"
)

type fakeOutput struct {
	state     repositories.OutputState
	played    []repositories.AudioBuffer
	pending   []func()
	resumed   int
	resumeErr error
	playErr   error
}

func (o *fakeOutput) State() repositories.OutputState { return o.state }

func (o *fakeOutput) Resume(ctx context.Context) error {
	o.resumed++
	if o.resumeErr != nil {
		return o.resumeErr
	}
	o.state = repositories.OutputStateRunning
	return nil
}

func (o *fakeOutput) Play(buf repositories.AudioBuffer, onEnded func()) error {
	if o.playErr != nil {
		return o.playErr
	}
	o.played = append(o.played, buf)
	o.pending = append(o.pending, onEnded)
	return nil
}

func (o *fakeOutput) Close() error { return nil }

// finish completes the oldest buffer still playing
func (o *fakeOutput) finish(t *testing.T) {
	t.Helper()
	if len(o.pending) == 0 {
		t.Fatal("No buffer is playing")
	}
	done := o.pending[0]
	o.pending = o.pending[1:]
	done()
}

func pcmChunk(marker int16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(marker))
	return b
}

func TestPlayer_PlaysInArrivalOrder(t *testing.T) {
	out := &fakeOutput{state: repositories.OutputStateRunning}
	p := NewPlayer(out, nil, zaptest.NewLogger(t))

	p.Enqueue(pcmChunk(100))
	p.Enqueue(pcmChunk(200))
	p.Enqueue(pcmChunk(300))

	if len(out.played) != 1 {
		t.Fatalf("Expected exactly one active playback, got %d", len(out.played))
	}
	if p.Pending() != 2 {
		t.Errorf("Expected 2 pending chunks, got %d", p.Pending())
	}

	out.finish(t)
	p.Enqueue(pcmChunk(400))
	out.finish(t)
	out.finish(t)
	out.finish(t)

	if len(out.played) != 4 {
		t.Fatalf("Expected 4 buffers played, got %d", len(out.played))
	}
	for i, want := range []float32{100, 200, 300, 400} {
		buf := out.played[i]
		if buf.SampleRate != 24000 || buf.Channels != 1 {
			t.Errorf("Buffer %d: expected 24000 Hz mono, got %d Hz %d ch", i, buf.SampleRate, buf.Channels)
		}
		if got := buf.Samples[0] * 32768; got != want {
			t.Errorf("Buffer %d: expected marker %v, got %v", i, want, got)
		}
	}
	if p.Playing() {
		t.Error("Expected player to be idle after draining the queue")
	}
}

func TestPlayer_RestartsAfterIdle(t *testing.T) {
	out := &fakeOutput{state: repositories.OutputStateRunning}
	p := NewPlayer(out, nil, zaptest.NewLogger(t))

	p.Enqueue(pcmChunk(1))
	out.finish(t)
	if p.Playing() {
		t.Fatal("Expected idle player")
	}

	p.Enqueue(pcmChunk(2))
	if len(out.played) != 2 || !p.Playing() {
		t.Errorf("Expected new chunk to restart playback, played=%d playing=%v", len(out.played), p.Playing())
	}
}

func TestPlayer_Interrupt(t *testing.T) {
	out := &fakeOutput{state: repositories.OutputStateRunning}
	p := NewPlayer(out, nil, zaptest.NewLogger(t))

	for i := 0; i < 10; i++ {
		p.Enqueue(pcmChunk(int16(i)))
	}
	p.Interrupt()

	if p.Pending() != 0 {
		t.Errorf("Expected empty queue after interrupt, got %d", p.Pending())
	}
	if p.Playing() {
		t.Error("Expected playing flag cleared after interrupt")
	}

	// the buffer that was already playing finishes after the interrupt
	out.finish(t)
	if len(out.played) != 1 {
		t.Errorf("Expected stale completion to be ignored, got %d buffers played", len(out.played))
	}

	p.Enqueue(pcmChunk(42))
	p.Enqueue(pcmChunk(43))
	if len(out.played) != 2 {
		t.Fatalf("Expected playback to restart after interrupt, got %d buffers", len(out.played))
	}
	out.finish(t)
	if len(out.played) != 3 {
		t.Errorf("Expected next chunk to follow, got %d buffers", len(out.played))
	}
}

func TestPlayer_InterruptOnEmptyQueue(t *testing.T) {
	out := &fakeOutput{state: repositories.OutputStateRunning}
	p := NewPlayer(out, nil, zaptest.NewLogger(t))

	p.Interrupt()
	if p.Pending() != 0 || p.Playing() {
		t.Error("Expected idle player after interrupt")
	}
}

func TestPlayer_ResumesSuspendedOutput(t *testing.T) {
	out := &fakeOutput{state: repositories.OutputStateSuspended}
	ran := make(chan struct{}, 1)
	schedule := func(fn func()) {
		fn()
		ran <- struct{}{}
	}
	p := NewPlayer(out, schedule, zaptest.NewLogger(t))

	p.Enqueue(pcmChunk(7))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("Resume callback never ran")
	}

	if out.resumed != 1 {
		t.Errorf("Expected 1 resume, got %d", out.resumed)
	}
	if len(out.played) != 1 {
		t.Errorf("Expected playback after resume, got %d buffers", len(out.played))
	}
}

func TestPlayer_ResumeFailureStillPlays(t *testing.T) {
	out := &fakeOutput{state: repositories.OutputStateSuspended, resumeErr: errors.New("denied")}
	ran := make(chan struct{}, 1)
	p := NewPlayer(out, func(fn func()) {
		fn()
		ran <- struct{}{}
	}, zaptest.NewLogger(t))

	p.Enqueue(pcmChunk(7))
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("Resume callback never ran")
	}
	if len(out.played) != 1 {
		t.Errorf("Expected playback attempt after failed resume, got %d buffers", len(out.played))
	}
}

func TestPlayer_PlayErrorSkipsChunk(t *testing.T) {
	out := &fakeOutput{state: repositories.OutputStateRunning, playErr: errors.New("device gone")}
	p := NewPlayer(out, nil, zaptest.NewLogger(t))

	p.Enqueue(pcmChunk(1))
	if p.Playing() || p.Pending() != 0 {
		t.Errorf("Expected failed chunks to be dropped, playing=%v pending=%d", p.Playing(), p.Pending())
	}
}

func TestPlayer_EnqueueBase64(t *testing.T) {
	out := &fakeOutput{state: repositories.OutputStateRunning}
	p := NewPlayer(out, nil, zaptest.NewLogger(t))

	if err := p.EnqueueBase64("not base64!"); err == nil {
		t.Error("Expected error for invalid base64")
	}

	data := base64.StdEncoding.EncodeToString(pcmChunk(512))
	if err := p.EnqueueBase64(data); err != nil {
		t.Fatalf("EnqueueBase64 failed: %v", err)
	}
	if len(out.played) != 1 || out.played[0].Samples[0]*32768 != 512 {
		t.Errorf("Expected decoded chunk to play, got %+v", out.played)
	}
}
